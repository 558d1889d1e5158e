package casedb

import (
	"errors"

	"github.com/casebank/casedb/github"
)

// ErrReadOnly is returned by every mutating operation on an
// ArtifactDatabase. The database never supports writes; callers that
// want writes silently discarded instead should compose the database
// behind [ReadOnlyDatabase], i.e. NewReadOnly(New(...)).
var ErrReadOnly = errors.New("casedb: database is read-only; wrap it with NewReadOnly to suppress writes instead of failing them")

// Errors re-exported from github.
var (
	// ErrRemoteUnavailable is returned when the artifact service could
	// not be reached at all (DNS failure, refused connection, timeout
	// before any HTTP response).
	ErrRemoteUnavailable = github.ErrUnavailable

	// ErrRemoteRequest is returned when the artifact service responded
	// with a non-success status.
	ErrRemoteRequest = github.ErrRequestFailed

	// ErrArtifactNotFound is returned when the artifact listing contains
	// no artifact with the configured name.
	ErrArtifactNotFound = github.ErrArtifactNotFound
)
