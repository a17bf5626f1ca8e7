//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/infrastructure/crypto"
	"github.com/storepulse/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *persistence.GormCredentialStore {
	t.Helper()
	tdb := NewTestDB(t)
	cipher, err := crypto.NewCipher("integration-secret")
	require.NoError(t, err)
	return persistence.NewGormCredentialStore(tdb.DB, cipher)
}

func TestCredentialStore_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	store := newStore(t)
	ctx := context.Background()

	t.Run("commerce round trip and unique shop domain", func(t *testing.T) {
		id := uuid.New()
		conn, err := store.UpsertCommerce(ctx, id, "pulse-demo.myshopify.com", "shpat_1")
		require.NoError(t, err)

		plain, ok := store.ReadPlain(ctx, conn.AccessToken)
		require.True(t, ok)
		assert.Equal(t, "shpat_1", plain.Reveal())

		_, err = store.UpsertCommerce(ctx, uuid.New(), "pulse-demo.myshopify.com", "shpat_2")
		assert.ErrorIs(t, err, merchant.ErrShopDomainInUse)
	})

	t.Run("traffic lifecycle", func(t *testing.T) {
		id := uuid.New()
		exp := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)

		conn, err := store.UpsertTraffic(ctx, id, merchant.TrafficGrant{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			ExpiresAt:    &exp,
		})
		require.NoError(t, err)
		require.NotNil(t, conn.ExpiresAt)
		assert.True(t, conn.ExpiresAt.Equal(exp))

		require.NoError(t, store.SetPropertyID(ctx, id, "properties/987654"))
		require.NoError(t, store.MarkNeedsReauth(ctx, id))

		conn, err = store.GetTraffic(ctx, id)
		require.NoError(t, err)
		assert.True(t, conn.NeedsReauth())
		assert.Equal(t, "properties/987654", conn.PropertyID)

		conn, err = store.UpsertTraffic(ctx, id, merchant.TrafficGrant{AccessToken: "access-2"})
		require.NoError(t, err)
		assert.False(t, conn.NeedsReauth())
		refresh, ok := store.ReadPlain(ctx, conn.RefreshToken)
		require.True(t, ok)
		assert.Equal(t, "refresh-1", refresh.Reveal())
	})

	t.Run("concurrent compare-and-set has one winner", func(t *testing.T) {
		id := uuid.New()
		conn, err := store.UpsertTraffic(ctx, id, merchant.TrafficGrant{AccessToken: "old", RefreshToken: "r"})
		require.NoError(t, err)

		const writers = 10
		var wg sync.WaitGroup
		results := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- store.UpdateTrafficTokens(ctx, id, conn.TokenVersion, merchant.TrafficGrant{AccessToken: "new"})
			}()
		}
		wg.Wait()
		close(results)

		wins := 0
		for err := range results {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, merchant.ErrTokenVersionConflict)
		}
		assert.Equal(t, 1, wins)
	})
}
