package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStateGuard_ConsumeOnce(t *testing.T) {
	guard := NewInMemoryStateGuard()
	ctx := context.Background()

	ok, err := guard.Consume(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Consume(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = guard.Consume(ctx, "jti-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInMemoryStateGuard_ExpiredEntriesAreDropped(t *testing.T) {
	guard := NewInMemoryStateGuard()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return now }

	ok, err := guard.Consume(context.Background(), "jti", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = guard.Consume(context.Background(), "other", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, guard.used, 1)
}

func TestInMemoryStateGuard_Concurrent(t *testing.T) {
	guard := NewInMemoryStateGuard()
	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := guard.Consume(context.Background(), "same", time.Minute); ok {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), accepted.Load())
}
