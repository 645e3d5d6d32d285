package cache

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Key identifies a cached call result. Two calls share an entry only if
// model, method and both argument serializations match exactly.
type Key struct {
	// Model is the remote model name (e.g., "res.partner").
	Model string

	// Method is the remote method name (e.g., "search_read").
	Method string

	// Args is the canonical serialization of positional arguments.
	Args string

	// Kwargs is the canonical serialization of keyword arguments.
	Kwargs string
}

// NewKey builds a key from a call's arguments. Serialization is
// deterministic: JSON with lexically sorted map keys.
func NewKey(model, method string, args []any, kwargs map[string]any) (Key, error) {
	argsData, err := json.Marshal(args)
	if err != nil {
		return Key{}, fmt.Errorf("serialize args: %w", err)
	}
	kwargsData, err := json.Marshal(kwargs)
	if err != nil {
		return Key{}, fmt.Errorf("serialize kwargs: %w", err)
	}
	return Key{
		Model:  model,
		Method: method,
		Args:   string(argsData),
		Kwargs: string(kwargsData),
	}, nil
}

// String generates the map key string.
// Format: model:method:args:kwargs
func (k Key) String() string {
	return k.Model + ":" + k.Method + ":" + k.Args + ":" + k.Kwargs
}
