package casedb

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDatabase_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := NewInMemoryDatabase()

	key := []byte("k")
	require.NoError(t, db.Save(ctx, key, []byte("a")))
	require.NoError(t, db.Save(ctx, key, []byte("b")))
	require.NoError(t, db.Delete(ctx, key, []byte("a")))

	values, err := db.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("b")}, values)
}

func TestInMemoryDatabase_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := NewInMemoryDatabase()
	key := []byte("k")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value := fmt.Appendf(nil, "value-%d", i)
			assert.NoError(t, db.Save(ctx, key, value))
			_, err := db.Fetch(ctx, key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	values, err := db.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Len(t, values, 16)
}
