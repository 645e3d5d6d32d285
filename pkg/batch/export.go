package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hadoopt/odoo-bridge/pkg/client"
)

// Sink receives export chunks. Begin is called once with the field
// names and their display headers before any records; Flush is called
// once after the last chunk.
type Sink interface {
	Begin(fields, headers []string) error
	WriteRecords(records []client.Record) error
	Flush() error
}

// Export streams the records matching job through sink. Relational
// field values keep their id+label shape in structured sinks and
// flatten to label strings in tabular ones.
func (e *Engine) Export(ctx context.Context, job ReadJob, sink Sink) (Result, error) {
	if job.Model == "" || len(job.Fields) == 0 {
		return Result{}, fmt.Errorf("%w: export requires model and fields", ErrInvalidOperation)
	}
	if job.Sink != nil {
		return Result{}, fmt.Errorf("%w: export owns the chunk sink", ErrInvalidOperation)
	}

	headers := e.fieldHeaders(ctx, job.Model, job.Fields)
	if err := sink.Begin(job.Fields, headers); err != nil {
		return Result{}, fmt.Errorf("begin export: %w", err)
	}

	job.Sink = sink.WriteRecords
	_, result, err := e.SearchReadAll(ctx, job)
	if err != nil {
		return result, err
	}
	result.Operation = "export"

	if err := sink.Flush(); err != nil {
		return result, fmt.Errorf("flush export: %w", err)
	}
	return result, nil
}

// fieldHeaders resolves display labels for the export columns, falling
// back to the technical field names.
func (e *Engine) fieldHeaders(ctx context.Context, model string, fields []string) []string {
	headers := make([]string, len(fields))
	copy(headers, fields)

	defs, err := e.client.FieldsGet(ctx, model, []string{"string", "type"})
	if err != nil {
		e.logger.Warn().Err(err).Str("model", model).Msg("Field metadata unavailable, using raw names")
		return headers
	}
	for i, field := range fields {
		if def, ok := defs[field]; ok {
			if label, ok := def.Str("string"); ok && label != "" {
				headers[i] = label
			}
		}
	}
	return headers
}

// CSVSink writes records as CSV rows, one line per record.
type CSVSink struct {
	writer *csv.Writer
	fields []string
}

// NewCSVSink creates a CSV sink over w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{writer: csv.NewWriter(w)}
}

// Begin writes the header row.
func (s *CSVSink) Begin(fields, headers []string) error {
	s.fields = fields
	return s.writer.Write(headers)
}

// WriteRecords appends one row per record.
func (s *CSVSink) WriteRecords(records []client.Record) error {
	for _, rec := range records {
		row := make([]string, len(s.fields))
		for i, field := range s.fields {
			row[i] = flattenTabular(rec[field])
		}
		if err := s.writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush finalizes the output.
func (s *CSVSink) Flush() error {
	s.writer.Flush()
	return s.writer.Error()
}

// flattenTabular renders a field value for tabular output. Relational
// pairs flatten to their labels; pair collections join labels with a
// comma; the remote's false-means-empty convention maps to "".
func flattenTabular(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case bool:
		if !value {
			return ""
		}
		return "true"
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case []any:
		if ref, ok := client.DecodeReference(value); ok {
			return ref.Name
		}
		parts := make([]string, 0, len(value))
		for _, item := range value {
			if ref, ok := client.DecodeReference(item); ok {
				parts = append(parts, ref.Name)
			} else {
				parts = append(parts, flattenTabular(item))
			}
		}
		return strings.Join(parts, ",")
	case map[string]any:
		data, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return fmt.Sprint(value)
	}
}

// JSONSink writes records as a streaming JSON array.
type JSONSink struct {
	writer io.Writer
	fields []string
	count  int
}

// NewJSONSink creates a JSON sink over w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{writer: w}
}

// Begin opens the array.
func (s *JSONSink) Begin(fields, headers []string) error {
	s.fields = fields
	_, err := io.WriteString(s.writer, "[")
	return err
}

// WriteRecords appends one object per record, with relational values as
// nested objects and arrays.
func (s *JSONSink) WriteRecords(records []client.Record) error {
	for _, rec := range records {
		obj := make(map[string]any, len(s.fields))
		for _, field := range s.fields {
			obj[field] = structuredValue(rec[field])
		}
		data, err := json.Marshal(obj)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		prefix := ",\n"
		if s.count == 0 {
			prefix = "\n"
		}
		if _, err := io.WriteString(s.writer, prefix+string(data)); err != nil {
			return err
		}
		s.count++
	}
	return nil
}

// Flush closes the array.
func (s *JSONSink) Flush() error {
	_, err := io.WriteString(s.writer, "\n]\n")
	return err
}

// structuredValue converts relational pairs to nested shapes for
// structured output.
func structuredValue(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	if ref, ok := client.DecodeReference(list); ok {
		return ref
	}
	refs := make([]any, 0, len(list))
	pairs := false
	for _, item := range list {
		if ref, ok := client.DecodeReference(item); ok {
			refs = append(refs, ref)
			pairs = true
		} else {
			refs = append(refs, item)
		}
	}
	if pairs {
		return refs
	}
	return v
}
