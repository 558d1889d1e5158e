// Package casedb provides key-value databases for recorded test cases,
// including a read-only database populated lazily from a CI artifact.
//
// The central abstraction is [Database]: an opaque byte-string key maps
// to a set of opaque byte-string values. [DirectoryDatabase] stores the
// mapping in an ordinary directory tree, [InMemoryDatabase] keeps it in
// memory, and [ArtifactDatabase] exposes an artifact uploaded by a CI
// run through the same interface without ever writing to the remote.
//
// # Quick Start
//
// Read values recorded by CI:
//
//	db := casedb.New("myorg", "myrepo")
//	values, err := db.Fetch(ctx, []byte("some-key"))
//
// The first Fetch downloads the newest matching artifact and extracts it
// into a local cache directory; every later Fetch reads locally.
//
// # Composition
//
// ArtifactDatabase rejects all writes with [ErrReadOnly]. To combine CI
// data with a writable local database, multiplex them:
//
//	local := casedb.NewDirectoryDatabase(".cases")
//	shared := casedb.NewReadOnly(casedb.New("myorg", "myrepo"))
//	db := casedb.NewMultiplexed(local, shared)
package casedb
