package client

import (
	"context"
	"fmt"
	"regexp"
	"sort"
)

// ModelCatalog lists the models installed on an endpoint.
type ModelCatalog struct {
	Names   []string          `json:"model_names"`
	Details map[string]string `json:"models_details"`
}

// Models lists available models, optionally filtered by a regexp
// pattern matched against the technical model name.
func (c *Client) Models(ctx context.Context, pattern string) (ModelCatalog, error) {
	var filter *regexp.Regexp
	if pattern != "" {
		var err error
		filter, err = regexp.Compile(pattern)
		if err != nil {
			return ModelCatalog{}, fmt.Errorf("invalid model pattern %q: %w", pattern, err)
		}
	}

	records, err := c.SearchRead(ctx, "ir.model", nil, SearchOptions{
		Fields: []string{"model", "name"},
	})
	if err != nil {
		return ModelCatalog{}, err
	}

	catalog := ModelCatalog{Details: make(map[string]string)}
	for _, rec := range records {
		model, ok := rec.Str("model")
		if !ok {
			continue
		}
		if filter != nil && !filter.MatchString(model) {
			continue
		}
		name, _ := rec.Str("name")
		catalog.Names = append(catalog.Names, model)
		catalog.Details[model] = name
	}
	sort.Strings(catalog.Names)
	return catalog, nil
}

// ModelInfo returns the ir.model record for a model together with its
// access rules.
func (c *Client) ModelInfo(ctx context.Context, model string) (Record, error) {
	records, err := c.SearchRead(ctx, "ir.model",
		[]any{[]any{"model", "=", model}},
		SearchOptions{Fields: []string{"name", "model", "info", "modules", "state"}})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, remoteErr("ir.model", "search_read", fmt.Sprintf("model %q not found", model), nil)
	}
	info := records[0]

	access, err := c.SearchRead(ctx, "ir.model.access",
		[]any{[]any{"model_id.model", "=", model}},
		SearchOptions{Fields: []string{"name", "perm_read", "perm_write", "perm_create", "perm_unlink"}})
	if err != nil {
		// Access rules are supplementary; keep the base info.
		c.logger.Warn().Err(err).Str("model", model).Msg("Failed to read access rules")
	} else {
		info["access_rights"] = access
	}
	return info, nil
}
