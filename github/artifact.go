package github

import (
	"fmt"
	"time"
)

// Artifact describes one artifact produced by a CI run.
//
// Multiple artifacts may share a name; each upload creates a new
// artifact with its own creation time and download URL.
type Artifact struct {
	Name               string    `json:"name"`
	CreatedAt          time.Time `json:"created_at"`
	ArchiveDownloadURL string    `json:"archive_download_url"`
}

// Latest returns the newest artifact named name.
//
// Among artifacts with the same maximum creation time, the first in
// input order wins, so the result is deterministic for a given listing.
func Latest(artifacts []Artifact, name string) (Artifact, error) {
	var (
		best  Artifact
		found bool
	)
	for _, a := range artifacts {
		if a.Name != name {
			continue
		}
		if !found || a.CreatedAt.After(best.CreatedAt) {
			best = a
			found = true
		}
	}
	if !found {
		return Artifact{}, fmt.Errorf("%w: no artifact named %q; check that the CI workflow uploaded one", ErrArtifactNotFound, name)
	}
	return best, nil
}
