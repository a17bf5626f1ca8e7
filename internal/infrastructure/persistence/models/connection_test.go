package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealedEncoding(t *testing.T) {
	tests := []struct {
		name string
		in   merchant.SealedSecret
		want string
	}{
		{"empty", nil, ""},
		{"bytes", merchant.SealedSecret{0x00, 0xff, 0x10}, "AP8Q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeSealed(tt.in)
			assert.Equal(t, tt.want, encoded)
			assert.Equal(t, tt.in, DecodeSealed(encoded))
		})
	}

	t.Run("corrupt text decodes to empty", func(t *testing.T) {
		assert.True(t, DecodeSealed("not base64!").IsEmpty())
	})
}

func TestCommerceConnectionModel_ToDomain(t *testing.T) {
	id := uuid.New()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	m := NewCommerceConnectionModel(id, "demo.myshopify.com", merchant.SealedSecret("sealed"), now)
	conn := m.ToDomain()

	assert.Equal(t, "commerce_connections", m.TableName())
	assert.Equal(t, id, conn.MerchantID)
	assert.Equal(t, "demo.myshopify.com", conn.ShopDomain)
	assert.Equal(t, merchant.SealedSecret("sealed"), conn.AccessToken)
	assert.Equal(t, now, conn.CreatedAt)
}

func TestTrafficConnectionModel_ToDomain(t *testing.T) {
	t.Run("maps nullable columns", func(t *testing.T) {
		property := "properties/123"
		expires := time.Date(2024, 3, 1, 11, 0, 0, 0, time.FixedZone("CET", 3600))
		m := &TrafficConnectionModel{
			MerchantOwnedModel: MerchantOwnedModel{MerchantID: uuid.New()},
			PropertyID:         &property,
			AccessToken:        EncodeSealed(merchant.SealedSecret("a")),
			RefreshToken:       EncodeSealed(merchant.SealedSecret("r")),
			ExpiresAt:          &expires,
			Status:             "needs_reauth",
			TokenVersion:       4,
		}

		conn := m.ToDomain()
		assert.Equal(t, "traffic_connections", m.TableName())
		assert.Equal(t, "properties/123", conn.PropertyID)
		require.NotNil(t, conn.ExpiresAt)
		assert.True(t, conn.ExpiresAt.Equal(expires))
		assert.Equal(t, time.UTC, conn.ExpiresAt.Location())
		assert.True(t, conn.NeedsReauth())
		assert.True(t, conn.HasRefreshToken())
		assert.Equal(t, int64(4), conn.TokenVersion)
	})

	t.Run("null property and expiry", func(t *testing.T) {
		m := &TrafficConnectionModel{Status: "bogus"}

		conn := m.ToDomain()
		assert.False(t, conn.PropertyConfigured())
		assert.Nil(t, conn.ExpiresAt)
		assert.False(t, conn.HasRefreshToken())
		assert.Equal(t, merchant.ConnectionStatusActive, conn.Status)
	})
}
