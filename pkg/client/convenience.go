package client

import (
	"context"
	"fmt"
)

// SearchOptions tunes SearchRead. Zero values are omitted from the
// outgoing call.
type SearchOptions struct {
	Fields []string
	Offset int
	Limit  int
	Order  string
}

func (o SearchOptions) kwargs(withFields bool) map[string]any {
	kwargs := make(map[string]any)
	if withFields && len(o.Fields) > 0 {
		kwargs["fields"] = o.Fields
	}
	if o.Offset > 0 {
		kwargs["offset"] = o.Offset
	}
	if o.Limit > 0 {
		kwargs["limit"] = o.Limit
	}
	if o.Order != "" {
		kwargs["order"] = o.Order
	}
	return kwargs
}

// SearchRead searches and reads records in one call. When the remote
// side rejects the combined call it degrades to a search followed by a
// read; an empty result is returned only when even the fallback search
// matches nothing.
func (c *Client) SearchRead(ctx context.Context, model string, domain []any, opts SearchOptions) ([]Record, error) {
	if domain == nil {
		domain = []any{}
	}

	result, err := c.Call(ctx, model, "search_read", []any{domain}, opts.kwargs(true))
	if err == nil {
		return DecodeRecords(result), nil
	}
	c.logger.Warn().Err(err).Str("model", model).
		Msg("search_read rejected, falling back to search + read")

	ids, err := c.Search(ctx, model, domain, opts)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}
	return c.ReadRecords(ctx, model, ids, opts.Fields)
}

// Search returns the ids of records matching domain.
func (c *Client) Search(ctx context.Context, model string, domain []any, opts SearchOptions) ([]int64, error) {
	if domain == nil {
		domain = []any{}
	}
	result, err := c.Call(ctx, model, "search", []any{domain}, opts.kwargs(false))
	if err != nil {
		return nil, err
	}

	list, ok := result.([]any)
	if !ok {
		return nil, remoteErr(model, "search", fmt.Sprintf("unexpected result shape %T", result), nil)
	}
	ids := make([]int64, 0, len(list))
	for _, item := range list {
		if id, ok := item.(float64); ok {
			ids = append(ids, int64(id))
		}
	}
	return ids, nil
}

// SearchCount returns the number of records matching domain.
func (c *Client) SearchCount(ctx context.Context, model string, domain []any) (int, error) {
	if domain == nil {
		domain = []any{}
	}
	result, err := c.Call(ctx, model, "search_count", []any{domain}, nil)
	if err != nil {
		return 0, err
	}
	count, ok := result.(float64)
	if !ok {
		return 0, remoteErr(model, "search_count", fmt.Sprintf("unexpected result shape %T", result), nil)
	}
	return int(count), nil
}

// ReadRecords reads the given record ids. A nil fields slice reads all
// fields.
func (c *Client) ReadRecords(ctx context.Context, model string, ids []int64, fields []string) ([]Record, error) {
	var kwargs map[string]any
	if len(fields) > 0 {
		kwargs = map[string]any{"fields": fields}
	}
	result, err := c.Call(ctx, model, "read", []any{ids}, kwargs)
	if err != nil {
		return nil, err
	}
	return DecodeRecords(result), nil
}

// CreateRecord creates one record and returns its id.
func (c *Client) CreateRecord(ctx context.Context, model string, values map[string]any) (int64, error) {
	result, err := c.Call(ctx, model, "create", []any{values}, nil)
	if err != nil {
		return 0, err
	}
	id, ok := result.(float64)
	if !ok {
		return 0, remoteErr(model, "create", fmt.Sprintf("unexpected result shape %T", result), nil)
	}
	return int64(id), nil
}

// UpdateRecords writes values to every record in ids. The remote side
// applies the write to the id set as a whole.
func (c *Client) UpdateRecords(ctx context.Context, model string, ids []int64, values map[string]any) error {
	_, err := c.Call(ctx, model, "write", []any{ids, values}, nil)
	return err
}

// UpdateRecord writes values to a single record.
func (c *Client) UpdateRecord(ctx context.Context, model string, id int64, values map[string]any) error {
	return c.UpdateRecords(ctx, model, []int64{id}, values)
}

// DeleteRecords deletes every record in ids.
func (c *Client) DeleteRecords(ctx context.Context, model string, ids []int64) error {
	_, err := c.Call(ctx, model, "unlink", []any{ids}, nil)
	return err
}

// DeleteRecord deletes a single record.
func (c *Client) DeleteRecord(ctx context.Context, model string, id int64) error {
	return c.DeleteRecords(ctx, model, []int64{id})
}

// FieldsGet returns field definitions for a model, optionally limited
// to the given attributes per field.
func (c *Client) FieldsGet(ctx context.Context, model string, attributes []string) (map[string]Record, error) {
	var kwargs map[string]any
	if len(attributes) > 0 {
		kwargs = map[string]any{"attributes": attributes}
	}
	result, err := c.Call(ctx, model, "fields_get", nil, kwargs)
	if err != nil {
		return nil, err
	}

	raw, ok := result.(map[string]any)
	if !ok {
		return nil, remoteErr(model, "fields_get", fmt.Sprintf("unexpected result shape %T", result), nil)
	}
	fields := make(map[string]Record, len(raw))
	for name, def := range raw {
		if m, ok := def.(map[string]any); ok {
			fields[name] = Record(m)
		}
	}
	return fields, nil
}
