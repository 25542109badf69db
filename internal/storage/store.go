package storage

import (
	"context"
	"encoding/json"
)

// Store is the key-value backend behind the coordinator. Values are JSON
// documents; a key that was never set is simply absent from Get's result.
type Store interface {
	// Get returns the values for keys. With no keys it returns everything.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	// Set writes all items atomically.
	Set(ctx context.Context, items map[string]json.RawMessage) error
	// Clear removes every key.
	Clear(ctx context.Context) error
	// BytesInUse reports the approximate size of all stored keys and values.
	BytesInUse(ctx context.Context) (int64, error)
	Close() error
}

// Encode marshals each value and returns a map ready for Store.Set.
func Encode(values map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = b
	}
	return out, nil
}
