package casedb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/casebank/casedb/github"
	"github.com/casebank/casedb/internal/extract"
)

// ArtifactDatabase exposes a test-case database uploaded as a CI
// artifact through the Database interface, read-only.
//
// The remote is contacted lazily: the first Fetch lists the
// repository's artifacts, downloads the newest one with the configured
// name, and extracts it into the local backing directory. Every later
// Fetch, in this process, reads from that directory without touching
// the network. Concurrent Fetch calls before the first success share a
// single download via singleflight.
//
// All mutating operations fail with [ErrReadOnly]. There is no internal
// retry: a failed fetch surfaces to the caller and leaves the database
// un-downloaded, so retrying Fetch re-attempts the whole protocol.
type ArtifactDatabase struct {
	owner        string
	repo         string
	artifactName string
	path         string

	client *github.Client
	logger *slog.Logger

	// store is written once, inside the fetch flight, before downloaded
	// flips to true; downloaded.Load() orders the read.
	store      *DirectoryDatabase
	downloaded atomic.Bool
	fetchGroup singleflight.Group
}

var _ Database = (*ArtifactDatabase)(nil)

// New creates an ArtifactDatabase for owner/repo.
//
// Unless overridden with WithToken, the bearer token is read from the
// GITHUB_TOKEN environment variable at construction; an absent token is
// valid and works for public repositories.
func New(owner, repo string, opts ...ArtifactOption) *ArtifactDatabase {
	cfg := artifactConfig{
		artifactName: DefaultArtifactName,
		token:        os.Getenv("GITHUB_TOKEN"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.path == "" {
		cfg.path = defaultPath()
	}

	client := cfg.client
	if client == nil {
		clientOpts := []github.Option{github.WithToken(cfg.token)}
		if cfg.logger != nil {
			clientOpts = append(clientOpts, github.WithLogger(cfg.logger))
		}
		client = github.New(clientOpts...)
	}

	return &ArtifactDatabase{
		owner:        owner,
		repo:         repo,
		artifactName: cfg.artifactName,
		path:         cfg.path,
		client:       client,
		logger:       cfg.logger,
	}
}

// log returns the logger, falling back to a discard logger if nil.
func (d *ArtifactDatabase) log() *slog.Logger {
	if d.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.logger
}

// String identifies the database for logs and debugging.
func (d *ArtifactDatabase) String() string {
	return fmt.Sprintf("ArtifactDatabase(owner=%s, repo=%s, artifact=%s)", d.owner, d.repo, d.artifactName)
}

// Path returns the local backing directory.
func (d *ArtifactDatabase) Path() string {
	return d.path
}

// Fetch ensures the artifact has been materialized locally, then reads
// key from the backing directory. A missing key returns an empty slice.
func (d *ArtifactDatabase) Fetch(ctx context.Context, key []byte) ([][]byte, error) {
	if err := d.ensureDownloaded(ctx); err != nil {
		return nil, err
	}
	return d.store.Fetch(ctx, key)
}

// Save always fails with ErrReadOnly.
func (d *ArtifactDatabase) Save(ctx context.Context, key, value []byte) error {
	return ErrReadOnly
}

// Move always fails with ErrReadOnly.
func (d *ArtifactDatabase) Move(ctx context.Context, key, oldValue, newValue []byte) error {
	return ErrReadOnly
}

// Delete always fails with ErrReadOnly.
func (d *ArtifactDatabase) Delete(ctx context.Context, key, value []byte) error {
	return ErrReadOnly
}

// ensureDownloaded runs the fetch protocol at most once per process.
//
// All concurrent callers share one flight; each caller blocks until the
// flight resolves. On failure the downloaded flag stays false, so the
// next Fetch starts a fresh flight.
func (d *ArtifactDatabase) ensureDownloaded(ctx context.Context) error {
	if d.downloaded.Load() {
		return nil
	}

	_, err, _ := d.fetchGroup.Do("fetch", func() (any, error) {
		// Double-check: an earlier flight may have completed between the
		// fast-path check and joining this one.
		if d.downloaded.Load() {
			return nil, nil
		}
		if err := d.fetchArtifact(ctx); err != nil {
			return nil, err
		}
		d.downloaded.Store(true)
		return nil, nil
	})
	return err
}

// fetchArtifact lists, selects, downloads, and extracts the artifact.
func (d *ArtifactDatabase) fetchArtifact(ctx context.Context) error {
	artifacts, err := d.client.ListArtifacts(ctx, d.owner, d.repo)
	if err != nil {
		return err
	}

	artifact, err := github.Latest(artifacts, d.artifactName)
	if err != nil {
		return err
	}
	d.log().Debug("selected artifact",
		"name", artifact.Name,
		"created_at", artifact.CreatedAt,
	)

	body, err := d.client.Download(ctx, artifact.ArchiveDownloadURL)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp("", "casedb-artifact-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("buffer artifact archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp archive: %w", err)
	}

	if err := os.MkdirAll(d.path, dirPerm); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	if err := extract.Unzip(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("extract artifact: %w", err)
	}

	// Re-root the delegate so it observes the extracted tree.
	d.store = NewDirectoryDatabase(d.path)

	d.log().Info("artifact downloaded",
		"owner", d.owner,
		"repo", d.repo,
		"artifact", d.artifactName,
		"path", d.path,
	)
	return nil
}
