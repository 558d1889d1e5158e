// Command casedb fetches a CI-recorded test-case artifact and reads
// keys from it.
//
// The GitHub token is taken from GITHUB_TOKEN, optionally loaded from a
// .env file. Example:
//
//	casedb -owner myorg -repo myrepo -key some-key
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/casebank/casedb"
)

type config struct {
	owner    string
	repo     string
	artifact string
	path     string
	key      string
	hexKey   bool
	envFile  string
	verbose  bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.owner, "owner", "", "repository owner (required)")
	flag.StringVar(&cfg.repo, "repo", "", "repository name (required)")
	flag.StringVar(&cfg.artifact, "artifact", casedb.DefaultArtifactName, "artifact name")
	flag.StringVar(&cfg.path, "path", "", "local extraction directory (default: user cache dir)")
	flag.StringVar(&cfg.key, "key", "", "key to read (required)")
	flag.BoolVar(&cfg.hexKey, "hex", false, "interpret -key as hex instead of raw bytes")
	flag.StringVar(&cfg.envFile, "env", ".env", "env file to load GITHUB_TOKEN from, if present")
	flag.BoolVar(&cfg.verbose, "v", false, "verbose logging")
	flag.Parse()

	if cfg.owner == "" || cfg.repo == "" || cfg.key == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(&cfg); err != nil {
		log.Fatalf("casedb: %v", err)
	}
}

func run(cfg *config) error {
	// Missing .env is fine; the token may already be in the environment
	// or unnecessary for public repositories.
	_ = godotenv.Load(cfg.envFile)

	opts := []casedb.ArtifactOption{
		casedb.WithArtifactName(cfg.artifact),
	}
	if cfg.path != "" {
		opts = append(opts, casedb.WithPath(cfg.path))
	}
	if cfg.verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, casedb.WithLogger(logger))
	}

	key := []byte(cfg.key)
	if cfg.hexKey {
		decoded, err := hex.DecodeString(cfg.key)
		if err != nil {
			return fmt.Errorf("decode -key: %w", err)
		}
		key = decoded
	}

	db := casedb.New(cfg.owner, cfg.repo, opts...)
	values, err := db.Fetch(context.Background(), key)
	if err != nil {
		return err
	}

	for _, value := range values {
		fmt.Println(hex.EncodeToString(value))
	}
	fmt.Fprintf(os.Stderr, "%d value(s) for key in %s\n", len(values), db)
	return nil
}
