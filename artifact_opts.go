package casedb

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/casebank/casedb/github"
)

// DefaultArtifactName is the artifact name fetched when none is
// configured. Repositories with several databases (mono-repos, one
// database per branch) should set a distinct name per database with
// WithArtifactName.
const DefaultArtifactName = "casedb-example-db"

// ArtifactOption configures an ArtifactDatabase.
type ArtifactOption func(*artifactConfig)

type artifactConfig struct {
	artifactName string
	path         string
	token        string
	client       *github.Client
	logger       *slog.Logger
}

// WithArtifactName sets the name of the artifact to fetch.
func WithArtifactName(name string) ArtifactOption {
	return func(cfg *artifactConfig) {
		cfg.artifactName = name
	}
}

// WithPath sets the local backing directory the artifact is extracted
// into. Defaults to a "casedb/ci" directory under the user cache dir.
func WithPath(path string) ArtifactOption {
	return func(cfg *artifactConfig) {
		cfg.path = path
	}
}

// WithToken sets the bearer token, overriding GITHUB_TOKEN.
func WithToken(token string) ArtifactOption {
	return func(cfg *artifactConfig) {
		cfg.token = token
	}
}

// WithClient sets the API client, overriding token and endpoint
// configuration. Useful for custom transports, timeouts, and tests.
func WithClient(client *github.Client) ArtifactOption {
	return func(cfg *artifactConfig) {
		cfg.client = client
	}
}

// WithLogger sets the logger. Logging is off by default.
func WithLogger(logger *slog.Logger) ArtifactOption {
	return func(cfg *artifactConfig) {
		cfg.logger = logger
	}
}

func defaultPath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = ".cache"
	}
	return filepath.Join(base, "casedb", "ci")
}
