package casedb

import (
	"context"
	"errors"
)

// MultiplexedDatabase reads from and writes to several databases at
// once. Fetch concatenates results in constructor order; mutations are
// applied to every database.
//
// The common composition is a writable local database multiplexed with
// a read-only artifact database, so CI-recorded cases are visible
// alongside locally recorded ones.
type MultiplexedDatabase struct {
	dbs []Database
}

var _ Database = (*MultiplexedDatabase)(nil)

// NewMultiplexed creates a database that fans out to dbs.
func NewMultiplexed(dbs ...Database) *MultiplexedDatabase {
	return &MultiplexedDatabase{dbs: dbs}
}

// Fetch returns the values from every database, concatenated in
// constructor order. Duplicates across databases are not collapsed.
func (d *MultiplexedDatabase) Fetch(ctx context.Context, key []byte) ([][]byte, error) {
	var out [][]byte
	for _, db := range d.dbs {
		vals, err := db.Fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

// Save stores value in every database.
func (d *MultiplexedDatabase) Save(ctx context.Context, key, value []byte) error {
	var errs []error
	for _, db := range d.dbs {
		errs = append(errs, db.Save(ctx, key, value))
	}
	return errors.Join(errs...)
}

// Move applies the move to every database.
func (d *MultiplexedDatabase) Move(ctx context.Context, key, oldValue, newValue []byte) error {
	var errs []error
	for _, db := range d.dbs {
		errs = append(errs, db.Move(ctx, key, oldValue, newValue))
	}
	return errors.Join(errs...)
}

// Delete removes value from every database.
func (d *MultiplexedDatabase) Delete(ctx context.Context, key, value []byte) error {
	var errs []error
	for _, db := range d.dbs {
		errs = append(errs, db.Delete(ctx, key, value))
	}
	return errors.Join(errs...)
}
