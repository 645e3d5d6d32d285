package discovery

import (
	"context"

	"github.com/hadoopt/odoo-bridge/pkg/client"
)

// ModelSource is the client slice discovery needs: a bulk read of the
// model catalog. Satisfied by *client.Client.
type ModelSource interface {
	SearchRead(ctx context.Context, model string, domain []any, opts client.SearchOptions) ([]client.Record, error)
}

// DiscoverModels fetches the endpoint's model catalog and ranks it
// against query. The catalog read goes through the client cache, so
// repeated discovery calls within the TTL cost one remote call.
func (s *Scorer) DiscoverModels(ctx context.Context, source ModelSource, query string) ([]Match, error) {
	records, err := source.SearchRead(ctx, "ir.model", nil, client.SearchOptions{
		Fields: []string{"model", "name", "info"},
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(records))
	for _, rec := range records {
		model, ok := rec.Str("model")
		if !ok {
			continue
		}
		label, _ := rec.Str("name")
		info, _ := rec.Str("info")
		candidates = append(candidates, Candidate{
			Model:       model,
			Label:       label,
			Description: info,
		})
	}
	return s.Rank(query, candidates), nil
}
