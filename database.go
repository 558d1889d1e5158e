package casedb

import "context"

// Database maps opaque byte-string keys to sets of opaque byte-string
// values. Implementations never interpret key or value contents.
type Database interface {
	// Fetch returns all values stored under key. A missing key is not an
	// error: Fetch returns an empty slice.
	Fetch(ctx context.Context, key []byte) ([][]byte, error)

	// Save stores value under key. Saving a value that is already
	// present is a no-op.
	Save(ctx context.Context, key, value []byte) error

	// Move replaces oldValue with newValue under the same key.
	Move(ctx context.Context, key, oldValue, newValue []byte) error

	// Delete removes value from key. Deleting an absent value is a
	// no-op.
	Delete(ctx context.Context, key, value []byte) error
}
