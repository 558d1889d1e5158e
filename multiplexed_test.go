package casedb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplexedDatabase_FetchConcatenatesInOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first := NewInMemoryDatabase()
	second := NewInMemoryDatabase()
	key := []byte("k")
	require.NoError(t, first.Save(ctx, key, []byte("a")))
	require.NoError(t, second.Save(ctx, key, []byte("b")))

	db := NewMultiplexed(first, second)
	values, err := db.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, values)
}

func TestMultiplexedDatabase_SaveFansOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first := NewInMemoryDatabase()
	second := NewInMemoryDatabase()
	key := []byte("k")

	db := NewMultiplexed(first, second)
	require.NoError(t, db.Save(ctx, key, []byte("v")))

	for _, backend := range []Database{first, second} {
		values, err := backend.Fetch(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("v")}, values)
	}
}

func TestMultiplexedDatabase_SaveReportsBackendErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	writable := NewInMemoryDatabase()
	readOnly := New("owner", "repo") // rejects writes without any I/O

	db := NewMultiplexed(writable, readOnly)
	err := db.Save(ctx, []byte("k"), []byte("v"))
	assert.ErrorIs(t, err, ErrReadOnly)

	// The writable backend still received the value.
	values, fetchErr := writable.Fetch(ctx, []byte("k"))
	require.NoError(t, fetchErr)
	assert.Len(t, values, 1)
}
