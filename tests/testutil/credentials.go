package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storepulse/backend/internal/domain/merchant"
)

// MemoryCredentials is an in-memory merchant.CredentialStore. Secrets are "sealed" as
// their plaintext bytes.
type MemoryCredentials struct {
	mu       sync.Mutex
	commerce map[uuid.UUID]merchant.CommerceConnection
	traffic  map[uuid.UUID]merchant.TrafficConnection

	// GetErr, when set, is returned by every read
	GetErr error
}

var _ merchant.CredentialStore = (*MemoryCredentials)(nil)

// NewMemoryCredentials creates an empty store
func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{
		commerce: make(map[uuid.UUID]merchant.CommerceConnection),
		traffic:  make(map[uuid.UUID]merchant.TrafficConnection),
	}
}

// PutCommerce stores a commerce connection directly
func (s *MemoryCredentials) PutCommerce(merchantID uuid.UUID, shopDomain, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commerce[merchantID] = merchant.CommerceConnection{
		MerchantID:  merchantID,
		ShopDomain:  shopDomain,
		AccessToken: merchant.SealedSecret(token),
	}
}

// PutTraffic stores a traffic connection directly
func (s *MemoryCredentials) PutTraffic(conn merchant.TrafficConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn.Status == "" {
		conn.Status = merchant.ConnectionStatusActive
	}
	s.traffic[conn.MerchantID] = conn
}

func (s *MemoryCredentials) GetCommerce(_ context.Context, merchantID uuid.UUID) (*merchant.CommerceConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	conn, ok := s.commerce[merchantID]
	if !ok {
		return nil, merchant.ErrConnectionNotFound
	}
	return &conn, nil
}

func (s *MemoryCredentials) UpsertCommerce(_ context.Context, merchantID uuid.UUID, shopDomain string, accessToken merchant.Secret) (*merchant.CommerceConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.commerce {
		if id != merchantID && c.ShopDomain == shopDomain {
			return nil, merchant.ErrShopDomainInUse
		}
	}
	now := time.Now()
	conn, ok := s.commerce[merchantID]
	if !ok {
		conn = merchant.CommerceConnection{MerchantID: merchantID, CreatedAt: now}
	}
	conn.ShopDomain = shopDomain
	conn.AccessToken = merchant.SealedSecret(accessToken.Reveal())
	conn.UpdatedAt = now
	s.commerce[merchantID] = conn
	return &conn, nil
}

func (s *MemoryCredentials) GetTraffic(_ context.Context, merchantID uuid.UUID) (*merchant.TrafficConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	conn, ok := s.traffic[merchantID]
	if !ok {
		return nil, merchant.ErrConnectionNotFound
	}
	return &conn, nil
}

func (s *MemoryCredentials) UpsertTraffic(_ context.Context, merchantID uuid.UUID, grant merchant.TrafficGrant) (*merchant.TrafficConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	conn, ok := s.traffic[merchantID]
	if !ok {
		conn = merchant.TrafficConnection{MerchantID: merchantID, CreatedAt: now}
	}
	conn.AccessToken = merchant.SealedSecret(grant.AccessToken.Reveal())
	if !grant.RefreshToken.IsEmpty() {
		conn.RefreshToken = merchant.SealedSecret(grant.RefreshToken.Reveal())
	}
	conn.ExpiresAt = grant.ExpiresAt
	conn.Status = merchant.ConnectionStatusActive
	conn.TokenVersion++
	conn.UpdatedAt = now
	s.traffic[merchantID] = conn
	return &conn, nil
}

func (s *MemoryCredentials) SetPropertyID(_ context.Context, merchantID uuid.UUID, propertyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.traffic[merchantID]
	if !ok {
		return merchant.ErrConnectionNotFound
	}
	conn.PropertyID = propertyID
	s.traffic[merchantID] = conn
	return nil
}

func (s *MemoryCredentials) UpdateTrafficTokens(_ context.Context, merchantID uuid.UUID, expectedVersion int64, grant merchant.TrafficGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.traffic[merchantID]
	if !ok {
		return merchant.ErrConnectionNotFound
	}
	if conn.TokenVersion != expectedVersion {
		return merchant.ErrTokenVersionConflict
	}
	conn.AccessToken = merchant.SealedSecret(grant.AccessToken.Reveal())
	if !grant.RefreshToken.IsEmpty() {
		conn.RefreshToken = merchant.SealedSecret(grant.RefreshToken.Reveal())
	}
	conn.ExpiresAt = grant.ExpiresAt
	conn.TokenVersion++
	s.traffic[merchantID] = conn
	return nil
}

func (s *MemoryCredentials) MarkNeedsReauth(_ context.Context, merchantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.traffic[merchantID]
	if !ok {
		return merchant.ErrConnectionNotFound
	}
	conn.Status = merchant.ConnectionStatusNeedsReauth
	s.traffic[merchantID] = conn
	return nil
}

func (s *MemoryCredentials) ReadPlain(_ context.Context, sealed merchant.SealedSecret) (merchant.Secret, bool) {
	if sealed.IsEmpty() {
		return "", false
	}
	return merchant.Secret(sealed), true
}

func (s *MemoryCredentials) ReadEncryptedRaw(sealed merchant.SealedSecret) []byte {
	return append([]byte(nil), sealed...)
}
