package github

import "errors"

// Sentinel errors for artifact operations.
var (
	// ErrUnavailable is returned when the API could not be reached at
	// all: DNS failure, refused connection, or a timeout before any
	// HTTP response arrived.
	ErrUnavailable = errors.New("github: service unavailable")

	// ErrRequestFailed is returned when the API responded with a
	// non-success status.
	ErrRequestFailed = errors.New("github: request failed")

	// ErrArtifactNotFound is returned when a listing contains no
	// artifact with the requested name.
	ErrArtifactNotFound = errors.New("github: artifact not found")
)
