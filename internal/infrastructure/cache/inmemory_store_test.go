package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	defer store.Close()

	t.Run("missing key is a miss", func(t *testing.T) {
		_, err := store.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("stored value is returned", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(got))
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "copy", []byte("abc"), time.Minute))

		got, err := store.Get(ctx, "copy")
		require.NoError(t, err)
		got[0] = 'x'

		again, err := store.Get(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(again))
	})

	t.Run("non-positive ttl stores nothing", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "zero", []byte("v"), 0))
		_, err := store.Get(ctx, "zero")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}

func TestInMemoryStore_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Equal(t, 1, store.Size())

	now = now.Add(59 * time.Second)
	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Second)
	// Expired entries stay until they are read
	assert.Equal(t, 1, store.Size())
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 0, store.Size())
}

func TestInMemoryStore_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for _, k := range []string{"sp:dashboard:m1:7d", "sp:dashboard:m1:30d", "sp:dashboard:m2:7d", "sp:insights:m1:x"} {
		require.NoError(t, store.Set(ctx, k, []byte("v"), time.Minute))
	}

	n, err := store.DeletePrefix(ctx, "sp:dashboard:m1:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.Get(ctx, "sp:dashboard:m2:7d")
	assert.NoError(t, err)
	_, err = store.Get(ctx, "sp:insights:m1:x")
	assert.NoError(t, err)
}
