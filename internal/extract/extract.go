// Package extract unpacks zip archives into a directory without ever
// exposing a partially extracted tree.
package extract

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

const dirPerm = 0o755

// ErrUnsafePath is returned when an archive entry would land outside
// the destination directory.
var ErrUnsafePath = errors.New("extract: unsafe path in archive")

// Unzip extracts the zip archive at archivePath into dest.
//
// Extraction is staged: entries are written to a temporary sibling of
// dest and only promoted once the whole archive has been unpacked, so
// a failure mid-archive leaves dest exactly as it was. Entries whose
// cleaned path escapes the destination are rejected, and symlinks are
// skipped.
func Unzip(archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, dirPerm); err != nil {
		return fmt.Errorf("create destination parent: %w", err)
	}

	staging, err := os.MkdirTemp(parent, ".extract-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	for _, f := range r.File {
		if err := extractFile(f, staging); err != nil {
			return err
		}
	}

	return promote(staging, dest)
}

func extractFile(f *zip.File, staging string) error {
	name := filepath.ToSlash(f.Name)
	name = strings.TrimPrefix(name, "./")
	if name == "" || name == "." {
		return nil
	}
	if !fs.ValidPath(name) {
		return fmt.Errorf("%w: %q", ErrUnsafePath, f.Name)
	}

	target := filepath.Join(staging, filepath.FromSlash(name))

	if f.Mode().IsDir() || strings.HasSuffix(name, "/") {
		return os.MkdirAll(target, dirPerm)
	}
	if !f.Mode().IsRegular() {
		// Symlinks and other special entries are not part of the
		// database layout.
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return fmt.Errorf("create entry dir: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %q: %w", name, err)
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %q: %w", name, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("extract %q: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %q: %w", name, err)
	}
	return nil
}

// promote makes the fully extracted staging tree visible at dest. When
// dest does not exist yet, a single rename does it; otherwise staging
// entries are moved into dest one by one, replacing files but merging
// directories.
func promote(staging, dest string) error {
	if _, err := os.Stat(dest); errors.Is(err, fs.ErrNotExist) {
		if err := os.Rename(staging, dest); err != nil {
			return fmt.Errorf("promote extracted archive: %w", err)
		}
		return nil
	} else if err != nil {
		return fmt.Errorf("stat destination: %w", err)
	}

	entries, err := os.ReadDir(staging)
	if err != nil {
		return fmt.Errorf("read staging dir: %w", err)
	}
	for _, e := range entries {
		if err := moveEntry(filepath.Join(staging, e.Name()), filepath.Join(dest, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func moveEntry(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat staged entry: %w", err)
	}

	dstInfo, err := os.Stat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("move staged entry: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat destination entry: %w", err)
	}

	if srcInfo.IsDir() && dstInfo.IsDir() {
		entries, err := os.ReadDir(src)
		if err != nil {
			return fmt.Errorf("read staged dir: %w", err)
		}
		for _, e := range entries {
			if err := moveEntry(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
				return err
			}
		}
		return nil
	}

	// Replace a file (or a file/dir mismatch) with the staged version.
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("replace destination entry: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move staged entry: %w", err)
	}
	return nil
}
