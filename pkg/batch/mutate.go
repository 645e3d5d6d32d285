package batch

import (
	"context"
	"fmt"
	"time"
)

// Operation names for bulk mutations.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// MutateOptions tunes a bulk mutation.
type MutateOptions struct {
	// ChunkSize overrides the engine default when positive.
	ChunkSize int

	// ContinueOnError keeps the job going past a failed chunk or
	// record. With it off the first error halts the job and the
	// partial result is returned.
	ContinueOnError bool
}

// MutationRequest carries the parameters for Run's operation dispatch.
type MutationRequest struct {
	Model   string           `json:"model"`
	Records []map[string]any `json:"records,omitempty"`
	IDs     []int64          `json:"ids,omitempty"`
	Values  map[string]any   `json:"values,omitempty"`
	MutateOptions
}

// Run dispatches a named bulk mutation. Unsupported operation names and
// missing required parameters return ErrInvalidOperation.
func (e *Engine) Run(ctx context.Context, op Operation, req MutationRequest) (Result, error) {
	if req.Model == "" {
		return Result{}, fmt.Errorf("%w: model is required", ErrInvalidOperation)
	}
	switch op {
	case OpCreate:
		if len(req.Records) == 0 {
			return Result{}, fmt.Errorf("%w: create requires records", ErrInvalidOperation)
		}
		return e.BatchCreate(ctx, req.Model, req.Records, req.MutateOptions), nil
	case OpUpdate:
		if len(req.IDs) == 0 || len(req.Values) == 0 {
			return Result{}, fmt.Errorf("%w: update requires ids and values", ErrInvalidOperation)
		}
		return e.BatchUpdate(ctx, req.Model, req.IDs, req.Values, req.MutateOptions), nil
	case OpDelete:
		if len(req.IDs) == 0 {
			return Result{}, fmt.Errorf("%w: delete requires ids", ErrInvalidOperation)
		}
		return e.BatchDelete(ctx, req.Model, req.IDs, req.MutateOptions), nil
	default:
		return Result{}, fmt.Errorf("%w: unsupported operation %q", ErrInvalidOperation, op)
	}
}

// BatchCreate creates records in chunks. Records are submitted
// individually within each chunk so one bad record cannot discard the
// rest of its chunk.
func (e *Engine) BatchCreate(ctx context.Context, model string, records []map[string]any, opts MutateOptions) Result {
	result := Result{Operation: string(OpCreate), Model: model, Total: len(records)}
	chunkSize := e.chunkSize(opts)
	start := time.Now()
	defer func() {
		jobDuration.WithLabelValues(string(OpCreate)).Observe(time.Since(start).Seconds())
	}()

	e.logger.Info().Str("model", model).Int("total", len(records)).Msg("Batch create starting")

	for chunkStart := 0; chunkStart < len(records); chunkStart += chunkSize {
		chunk := records[chunkStart:min(chunkStart+chunkSize, len(records))]

		for i, values := range chunk {
			id, err := e.client.CreateRecord(ctx, model, values)
			if err != nil {
				result.Failed++
				result.addError(ItemError{Index: chunkStart + i, Message: err.Error()})
				itemsTotal.WithLabelValues(string(OpCreate), "failed").Inc()
				e.logger.Error().Err(err).
					Str("model", model).
					Int("index", chunkStart+i).
					Msg("Record create failed")
				if !opts.ContinueOnError {
					result.finish(start)
					return result
				}
				continue
			}
			result.CreatedIDs = append(result.CreatedIDs, id)
			result.Processed++
			itemsTotal.WithLabelValues(string(OpCreate), "ok").Inc()
		}

		chunksTotal.WithLabelValues(string(OpCreate)).Inc()
		e.logger.Info().
			Str("model", model).
			Int("created", result.Processed).
			Int("total", result.Total).
			Msg("Batch create progress")
	}

	result.finish(start)
	return result
}

// BatchUpdate writes values onto the id set in chunks, one remote call
// per chunk. The remote side applies set semantics within a chunk.
func (e *Engine) BatchUpdate(ctx context.Context, model string, ids []int64, values map[string]any, opts MutateOptions) Result {
	return e.mutateChunks(ctx, OpUpdate, model, ids, opts, func(chunk []int64) error {
		return e.client.UpdateRecords(ctx, model, chunk, values)
	})
}

// BatchDelete deletes the id set in chunks, one remote call per chunk.
func (e *Engine) BatchDelete(ctx context.Context, model string, ids []int64, opts MutateOptions) Result {
	return e.mutateChunks(ctx, OpDelete, model, ids, opts, func(chunk []int64) error {
		return e.client.DeleteRecords(ctx, model, chunk)
	})
}

// mutateChunks runs a per-chunk remote call over the id list with the
// shared stop/continue and bookkeeping policy.
func (e *Engine) mutateChunks(ctx context.Context, op Operation, model string, ids []int64, opts MutateOptions, apply func(chunk []int64) error) Result {
	result := Result{Operation: string(op), Model: model, Total: len(ids)}
	chunkSize := e.chunkSize(opts)
	start := time.Now()
	defer func() {
		jobDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
	}()

	e.logger.Info().
		Str("model", model).
		Str("operation", string(op)).
		Int("total", len(ids)).
		Msg("Batch mutation starting")

	for chunkStart := 0; chunkStart < len(ids); chunkStart += chunkSize {
		chunk := ids[chunkStart:min(chunkStart+chunkSize, len(ids))]

		if err := apply(chunk); err != nil {
			// The whole chunk fails as a unit.
			result.Failed += len(chunk)
			result.addError(ItemError{Index: chunkStart, ChunkSize: len(chunk), Message: err.Error()})
			itemsTotal.WithLabelValues(string(op), "failed").Add(float64(len(chunk)))
			e.logger.Error().Err(err).
				Str("model", model).
				Str("operation", string(op)).
				Int("offset", chunkStart).
				Msg("Chunk mutation failed")
			if !opts.ContinueOnError {
				break
			}
			continue
		}

		result.Processed += len(chunk)
		chunksTotal.WithLabelValues(string(op)).Inc()
		itemsTotal.WithLabelValues(string(op), "ok").Add(float64(len(chunk)))
	}

	result.finish(start)
	e.logger.Info().
		Str("model", model).
		Str("operation", string(op)).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Msg("Batch mutation complete")
	return result
}

func (e *Engine) chunkSize(opts MutateOptions) int {
	if opts.ChunkSize > 0 {
		return opts.ChunkSize
	}
	return e.config.ChunkSize
}
