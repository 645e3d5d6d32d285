package cache

import (
	"testing"
)

func TestNewKey_Deterministic(t *testing.T) {
	// Map iteration order must not leak into the key.
	kwargs1 := map[string]any{"fields": []string{"name"}, "limit": 10, "offset": 0}
	kwargs2 := map[string]any{"offset": 0, "limit": 10, "fields": []string{"name"}}

	key1, err := NewKey("res.partner", "search_read", []any{[]any{}}, kwargs1)
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}
	key2, err := NewKey("res.partner", "search_read", []any{[]any{}}, kwargs2)
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}

	if key1.String() != key2.String() {
		t.Errorf("keys differ for equivalent kwargs:\n%s\n%s", key1.String(), key2.String())
	}
}

func TestNewKey_DistinguishesCalls(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		method string
		args   []any
		kwargs map[string]any
	}{
		{
			name:   "different model",
			model:  "res.users",
			method: "search_read",
			args:   []any{[]any{}},
		},
		{
			name:   "different method",
			model:  "res.partner",
			method: "read",
			args:   []any{[]any{}},
		},
		{
			name:   "different args",
			model:  "res.partner",
			method: "search_read",
			args:   []any{[]any{[]any{"active", "=", true}}},
		},
		{
			name:   "different kwargs",
			model:  "res.partner",
			method: "search_read",
			args:   []any{[]any{}},
			kwargs: map[string]any{"limit": 5},
		},
	}

	base, err := NewKey("res.partner", "search_read", []any{[]any{}}, nil)
	if err != nil {
		t.Fatalf("NewKey() error = %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := NewKey(tt.model, tt.method, tt.args, tt.kwargs)
			if err != nil {
				t.Fatalf("NewKey() error = %v", err)
			}
			if key.String() == base.String() {
				t.Errorf("key %q should differ from base key", key.String())
			}
		})
	}
}

func TestNewKey_UnserializableArgs(t *testing.T) {
	if _, err := NewKey("res.partner", "read", []any{make(chan int)}, nil); err == nil {
		t.Error("NewKey() with a channel argument should fail")
	}
}
