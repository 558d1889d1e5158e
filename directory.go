package casedb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	// hashNameLen is the number of hex characters used for key and value
	// file names. Keys and values can contain arbitrary bytes, so names
	// are derived from a SHA-256 digest rather than the raw contents.
	hashNameLen = 16
)

// DirectoryDatabase stores keys and values as an ordinary directory
// tree: each key becomes a subdirectory named by a digest of the key,
// and each value becomes one file in that subdirectory named by a
// digest of the value.
//
// The layout is human-inspectable and safe to sync between machines
// with ordinary file tools, which is what makes it suitable as the
// payload of a CI artifact.
type DirectoryDatabase struct {
	root string
}

var _ Database = (*DirectoryDatabase)(nil)

// NewDirectoryDatabase creates a database rooted at the given
// directory. The directory does not need to exist yet; it is created on
// the first Save.
func NewDirectoryDatabase(root string) *DirectoryDatabase {
	return &DirectoryDatabase{root: root}
}

// Root returns the backing directory path.
func (d *DirectoryDatabase) Root() string {
	return d.root
}

func (d *DirectoryDatabase) String() string {
	return fmt.Sprintf("DirectoryDatabase(%q)", d.root)
}

// Fetch returns all values stored under key, in lexicographic order of
// their digests. A missing key or a missing root directory reads as
// empty.
func (d *DirectoryDatabase) Fetch(ctx context.Context, key []byte) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keyDir := filepath.Join(d.root, hashName(key))
	entries, err := os.ReadDir(keyDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read key dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	values := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(keyDir, name))
		if err != nil {
			// A value removed between listing and reading is not an
			// error; the snapshot is simply smaller.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read value: %w", err)
		}
		values = append(values, data)
	}
	return values, nil
}

// Save stores value under key. The write is atomic: the value is
// written to a temporary file in the key directory and renamed into
// place, so readers never observe a partially written value.
func (d *DirectoryDatabase) Save(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keyDir := filepath.Join(d.root, hashName(key))
	path := filepath.Join(keyDir, hashName(value))

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat value: %w", err)
	}

	if err := os.MkdirAll(keyDir, dirPerm); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}

	tmp, err := os.CreateTemp(keyDir, "value-*")
	if err != nil {
		return fmt.Errorf("create temp value file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write value: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close value file: %w", err)
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod value file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename value file: %w", err)
	}
	return nil
}

// Move replaces oldValue with newValue under the same key.
func (d *DirectoryDatabase) Move(ctx context.Context, key, oldValue, newValue []byte) error {
	if err := d.Save(ctx, key, newValue); err != nil {
		return err
	}
	return d.Delete(ctx, key, oldValue)
}

// Delete removes value from key. Deleting an absent value is a no-op.
func (d *DirectoryDatabase) Delete(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(d.root, hashName(key), hashName(value))
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove value: %w", err)
	}
	return nil
}

func hashName(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashNameLen]
}
