package casedb

import (
	"context"
	"sort"
	"sync"
)

// InMemoryDatabase keeps all keys and values in process memory. It is
// safe for concurrent use and useful for tests or as a scratch layer in
// a MultiplexedDatabase.
type InMemoryDatabase struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

var _ Database = (*InMemoryDatabase)(nil)

// NewInMemoryDatabase creates an empty in-memory database.
func NewInMemoryDatabase() *InMemoryDatabase {
	return &InMemoryDatabase{data: make(map[string]map[string][]byte)}
}

// Fetch returns all values stored under key in deterministic order.
func (d *InMemoryDatabase) Fetch(ctx context.Context, key []byte) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	vals := d.data[string(key)]
	if len(vals) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		out = append(out, append([]byte(nil), vals[k]...))
	}
	return out, nil
}

// Save stores value under key.
func (d *InMemoryDatabase) Save(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	vals, ok := d.data[string(key)]
	if !ok {
		vals = make(map[string][]byte)
		d.data[string(key)] = vals
	}
	vals[string(value)] = append([]byte(nil), value...)
	return nil
}

// Move replaces oldValue with newValue under the same key.
func (d *InMemoryDatabase) Move(ctx context.Context, key, oldValue, newValue []byte) error {
	if err := d.Save(ctx, key, newValue); err != nil {
		return err
	}
	return d.Delete(ctx, key, oldValue)
}

// Delete removes value from key.
func (d *InMemoryDatabase) Delete(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.data[string(key)], string(value))
	return nil
}
