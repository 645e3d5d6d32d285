package client

import (
	"context"
	"fmt"
	"testing"

	"github.com/hadoopt/odoo-bridge/internal/testutil"
)

func catalogMock(t *testing.T) *testutil.MockOdoo {
	t.Helper()
	mock := testutil.NewMockOdoo()
	t.Cleanup(mock.Close)

	mock.Handle("ir.model", "search_read", func(args []any, kwargs map[string]any) (any, error) {
		// A domain filter means a single-model lookup.
		if domain, ok := args[0].([]any); ok && len(domain) > 0 {
			return []any{map[string]any{
				"id":    float64(1),
				"model": "res.partner",
				"name":  "Contact",
				"state": "base",
			}}, nil
		}
		return []any{
			map[string]any{"model": "res.partner", "name": "Contact"},
			map[string]any{"model": "sale.order", "name": "Sales Order"},
			map[string]any{"model": "sale.order.line", "name": "Sales Order Line"},
		}, nil
	})
	return mock
}

func TestModels(t *testing.T) {
	mock := catalogMock(t)
	c := newTestClient(t, mock, 0)

	catalog, err := c.Models(context.Background(), "")
	if err != nil {
		t.Fatalf("Models() error = %v", err)
	}
	if len(catalog.Names) != 3 {
		t.Fatalf("Names = %v, want 3 models", catalog.Names)
	}
	if catalog.Details["sale.order"] != "Sales Order" {
		t.Errorf("Details[sale.order] = %q, want %q", catalog.Details["sale.order"], "Sales Order")
	}
}

func TestModels_PatternFilter(t *testing.T) {
	mock := catalogMock(t)
	c := newTestClient(t, mock, 0)

	catalog, err := c.Models(context.Background(), `^sale\.`)
	if err != nil {
		t.Fatalf("Models() error = %v", err)
	}
	if len(catalog.Names) != 2 {
		t.Errorf("Names = %v, want the two sale models", catalog.Names)
	}

	if _, err := c.Models(context.Background(), "["); err == nil {
		t.Error("Models() with a broken pattern should fail")
	}
}

func TestModelInfo(t *testing.T) {
	mock := catalogMock(t)
	mock.Handle("ir.model.access", "search_read", func(args []any, kwargs map[string]any) (any, error) {
		return []any{map[string]any{"name": "res.partner user", "perm_read": true}}, nil
	})
	c := newTestClient(t, mock, 0)

	info, err := c.ModelInfo(context.Background(), "res.partner")
	if err != nil {
		t.Fatalf("ModelInfo() error = %v", err)
	}
	if model, _ := info.Str("model"); model != "res.partner" {
		t.Errorf("model = %q, want res.partner", model)
	}
	if _, ok := info["access_rights"]; !ok {
		t.Error("info should carry the access rules")
	}
}

func TestModelInfo_AccessRulesOptional(t *testing.T) {
	mock := catalogMock(t)
	mock.Handle("ir.model.access", "search_read", func(args []any, kwargs map[string]any) (any, error) {
		return nil, fmt.Errorf("access denied")
	})
	c := newTestClient(t, mock, 0)

	info, err := c.ModelInfo(context.Background(), "res.partner")
	if err != nil {
		t.Fatalf("ModelInfo() error = %v", err)
	}
	if _, ok := info["access_rights"]; ok {
		t.Error("unreadable access rules should be omitted, not fail the call")
	}
}
