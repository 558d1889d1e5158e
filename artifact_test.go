package casedb

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casebank/casedb/github"
)

// buildArchive produces a zip payload in the directory-database layout:
// one directory per key digest, one file per value digest.
func buildArchive(t *testing.T, entries map[string][]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for key, values := range entries {
		for _, value := range values {
			f, err := w.Create(hashName([]byte(key)) + "/" + hashName([]byte(value)))
			require.NoError(t, err)
			_, err = f.Write([]byte(value))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// fakeRemote simulates the artifact listing and download endpoints and
// counts how often each is hit.
type fakeRemote struct {
	srv     *httptest.Server
	archive []byte

	listings  atomic.Int32
	downloads atomic.Int32

	listStatus     int
	downloadStatus int
	listingBody    string
}

func newFakeRemote(t *testing.T, archive []byte) *fakeRemote {
	t.Helper()

	f := &fakeRemote{
		archive:        archive,
		listStatus:     http.StatusOK,
		downloadStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}/actions/artifacts", func(w http.ResponseWriter, r *http.Request) {
		f.listings.Add(1)
		if f.listStatus != http.StatusOK {
			http.Error(w, http.StatusText(f.listStatus), f.listStatus)
			return
		}
		body := f.listingBody
		if body == "" {
			body = fmt.Sprintf(`{"artifacts": [
				{"name": "db", "created_at": "2026-01-01T00:00:00Z", "archive_download_url": %q},
				{"name": "db", "created_at": "2026-01-02T00:00:00Z", "archive_download_url": %q},
				{"name": "other", "created_at": "2026-01-03T00:00:00Z", "archive_download_url": %q}
			]}`, f.srv.URL+"/stale.zip", f.srv.URL+"/latest.zip", f.srv.URL+"/other.zip")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("GET /latest.zip", func(w http.ResponseWriter, r *http.Request) {
		f.downloads.Add(1)
		if f.downloadStatus != http.StatusOK {
			http.Error(w, http.StatusText(f.downloadStatus), f.downloadStatus)
			return
		}
		_, _ = w.Write(f.archive)
	})
	mux.HandleFunc("GET /stale.zip", func(w http.ResponseWriter, r *http.Request) {
		t.Error("stale artifact must not be downloaded")
	})
	mux.HandleFunc("GET /other.zip", func(w http.ResponseWriter, r *http.Request) {
		t.Error("artifact with a different name must not be downloaded")
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRemote) database(t *testing.T, opts ...ArtifactOption) *ArtifactDatabase {
	t.Helper()

	client := github.New(github.WithBaseURL(f.srv.URL))
	opts = append([]ArtifactOption{
		WithArtifactName("db"),
		WithPath(filepath.Join(t.TempDir(), "ci")),
		WithClient(client),
	}, opts...)
	return New("myorg", "myrepo", opts...)
}

func TestArtifactDatabase_FetchDownloadsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	remote := newFakeRemote(t, buildArchive(t, map[string][]string{
		"some-key": {"value-a", "value-b"},
	}))
	db := remote.database(t)

	values, err := db.Fetch(ctx, []byte("some-key"))
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("value-a"), []byte("value-b")}, values)

	// Further reads, hits or misses, stay local.
	_, err = db.Fetch(ctx, []byte("some-key"))
	require.NoError(t, err)
	missing, err := db.Fetch(ctx, []byte("absent"))
	require.NoError(t, err)
	assert.Empty(t, missing)

	assert.Equal(t, int32(1), remote.listings.Load())
	assert.Equal(t, int32(1), remote.downloads.Load())
}

func TestArtifactDatabase_ConcurrentFetchSharesOneDownload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	remote := newFakeRemote(t, buildArchive(t, map[string][]string{
		"k": {"v"},
	}))
	db := remote.database(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			values, err := db.Fetch(ctx, []byte("k"))
			assert.NoError(t, err)
			assert.Equal(t, [][]byte{[]byte("v")}, values)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), remote.listings.Load())
	assert.Equal(t, int32(1), remote.downloads.Load())
}

func TestArtifactDatabase_DelegatesToDirectoryDatabase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	remote := newFakeRemote(t, buildArchive(t, map[string][]string{
		"k1": {"a", "b"},
		"k2": {"c"},
	}))
	db := remote.database(t)

	_, err := db.Fetch(ctx, []byte("k1"))
	require.NoError(t, err)

	direct := NewDirectoryDatabase(db.Path())
	for _, key := range []string{"k1", "k2"} {
		viaArtifact, err := db.Fetch(ctx, []byte(key))
		require.NoError(t, err)
		viaDirect, err := direct.Fetch(ctx, []byte(key))
		require.NoError(t, err)
		assert.Equal(t, viaDirect, viaArtifact, key)
	}
}

func TestArtifactDatabase_WritesAlwaysFail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	remote := newFakeRemote(t, buildArchive(t, map[string][]string{"k": {"v"}}))
	db := remote.database(t)

	// Before any fetch: fails without touching network or filesystem.
	assert.ErrorIs(t, db.Save(ctx, []byte("k"), []byte("v")), ErrReadOnly)
	assert.ErrorIs(t, db.Move(ctx, []byte("k"), []byte("v"), []byte("w")), ErrReadOnly)
	assert.ErrorIs(t, db.Delete(ctx, []byte("k"), []byte("v")), ErrReadOnly)
	assert.Zero(t, remote.listings.Load())
	_, statErr := os.Stat(db.Path())
	assert.True(t, os.IsNotExist(statErr))

	// After a fetch: still fails.
	_, err := db.Fetch(ctx, []byte("k"))
	require.NoError(t, err)
	assert.ErrorIs(t, db.Save(ctx, []byte("k"), []byte("v")), ErrReadOnly)
	assert.ErrorIs(t, db.Move(ctx, []byte("k"), []byte("v"), []byte("w")), ErrReadOnly)
	assert.ErrorIs(t, db.Delete(ctx, []byte("k"), []byte("v")), ErrReadOnly)

	assert.ErrorContains(t, db.Save(ctx, nil, nil), "NewReadOnly")
}

func TestArtifactDatabase_ArtifactNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	remote := newFakeRemote(t, nil)
	remote.listingBody = `{"artifacts": [{"name": "other", "created_at": "2026-01-01T00:00:00Z", "archive_download_url": "https://example.com/a"}]}`
	db := remote.database(t)

	_, err := db.Fetch(ctx, []byte("k"))
	require.ErrorIs(t, err, ErrArtifactNotFound)
	assert.ErrorContains(t, err, "db")

	_, statErr := os.Stat(db.Path())
	assert.True(t, os.IsNotExist(statErr), "local directory must be untouched")
}

func TestArtifactDatabase_ListingFailureRetriesOnNextFetch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	remote := newFakeRemote(t, buildArchive(t, map[string][]string{"k": {"v"}}))
	remote.listStatus = http.StatusUnauthorized
	db := remote.database(t)

	_, err := db.Fetch(ctx, []byte("k"))
	require.ErrorIs(t, err, ErrRemoteRequest)
	assert.Equal(t, int32(1), remote.listings.Load())

	// The failure did not latch the downloaded flag: the next Fetch
	// re-runs the whole protocol and succeeds.
	remote.listStatus = http.StatusOK
	values, err := db.Fetch(ctx, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("v")}, values)
	assert.Equal(t, int32(2), remote.listings.Load())
}

func TestArtifactDatabase_ListingUnavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	db := New("myorg", "myrepo",
		WithArtifactName("db"),
		WithPath(filepath.Join(t.TempDir(), "ci")),
		WithClient(github.New(github.WithBaseURL(url))),
	)

	_, err := db.Fetch(ctx, []byte("k"))
	require.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestArtifactDatabase_DownloadFailureLeavesDirectoryUntouched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	remote := newFakeRemote(t, buildArchive(t, map[string][]string{"k": {"v"}}))
	remote.downloadStatus = http.StatusForbidden
	db := remote.database(t)

	_, err := db.Fetch(ctx, []byte("k"))
	require.ErrorIs(t, err, ErrRemoteRequest)
	assert.ErrorContains(t, err, "download artifact")

	_, statErr := os.Stat(db.Path())
	assert.True(t, os.IsNotExist(statErr), "local directory must be untouched")

	// Recovery works once the remote does.
	remote.downloadStatus = http.StatusOK
	values, err := db.Fetch(ctx, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("v")}, values)
}

func TestArtifactDatabase_CorruptArchive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	remote := newFakeRemote(t, []byte("not a zip archive"))
	db := remote.database(t)

	_, err := db.Fetch(ctx, []byte("k"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "extract artifact")

	// downloaded never latched; the next Fetch retries from the top.
	_, err = db.Fetch(ctx, []byte("k"))
	require.Error(t, err)
	assert.Equal(t, int32(2), remote.listings.Load())
}

func TestArtifactDatabase_String(t *testing.T) {
	t.Parallel()

	db := New("myorg", "myrepo", WithArtifactName("db"))
	assert.Equal(t, "ArtifactDatabase(owner=myorg, repo=myrepo, artifact=db)", db.String())
}
