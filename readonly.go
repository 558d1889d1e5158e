package casedb

import "context"

// ReadOnlyDatabase wraps another database and silently discards all
// writes. Reads delegate unchanged.
//
// Unlike ArtifactDatabase, which fails writes with ErrReadOnly, this
// wrapper makes a database usable where callers are allowed to attempt
// writes but the writes must not take effect.
type ReadOnlyDatabase struct {
	base Database
}

var _ Database = (*ReadOnlyDatabase)(nil)

// NewReadOnly wraps base in a write-suppressing database.
func NewReadOnly(base Database) *ReadOnlyDatabase {
	return &ReadOnlyDatabase{base: base}
}

// Fetch delegates to the wrapped database.
func (d *ReadOnlyDatabase) Fetch(ctx context.Context, key []byte) ([][]byte, error) {
	return d.base.Fetch(ctx, key)
}

// Save does nothing.
func (d *ReadOnlyDatabase) Save(ctx context.Context, key, value []byte) error {
	return nil
}

// Move does nothing.
func (d *ReadOnlyDatabase) Move(ctx context.Context, key, oldValue, newValue []byte) error {
	return nil
}

// Delete does nothing.
func (d *ReadOnlyDatabase) Delete(ctx context.Context, key, value []byte) error {
	return nil
}
