package merchant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// CommerceCredentials is the commerce half of the credential store.
type CommerceCredentials interface {
	// GetCommerce returns ErrConnectionNotFound when the merchant has no storefront connected.
	GetCommerce(ctx context.Context, merchantID uuid.UUID) (*CommerceConnection, error)
	UpsertCommerce(ctx context.Context, merchantID uuid.UUID, shopDomain string, accessToken Secret) (*CommerceConnection, error)
}

// TrafficCredentials is the traffic half of the credential store.
type TrafficCredentials interface {
	// GetTraffic returns ErrConnectionNotFound when the merchant has no analytics connection.
	GetTraffic(ctx context.Context, merchantID uuid.UUID) (*TrafficConnection, error)
	// UpsertTraffic stores a grant from the authorization-code exchange and resets the status to active.
	// An empty grant.RefreshToken keeps the stored refresh token.
	UpsertTraffic(ctx context.Context, merchantID uuid.UUID, grant TrafficGrant) (*TrafficConnection, error)
	SetPropertyID(ctx context.Context, merchantID uuid.UUID, propertyID string) error
	// UpdateTrafficTokens writes a refreshed grant only if the stored token_version still equals
	// expectedVersion. It returns ErrTokenVersionConflict otherwise.
	UpdateTrafficTokens(ctx context.Context, merchantID uuid.UUID, expectedVersion int64, grant TrafficGrant) error
	MarkNeedsReauth(ctx context.Context, merchantID uuid.UUID) error
}

// SecretReader turns sealed secrets back into usable values. Callers state which form they need.
type SecretReader interface {
	// ReadPlain decrypts a sealed secret. ok is false when nothing is stored or decryption fails.
	ReadPlain(ctx context.Context, sealed SealedSecret) (secret Secret, ok bool)
	// ReadEncryptedRaw returns the stored ciphertext untouched.
	ReadEncryptedRaw(sealed SealedSecret) []byte
}

// CredentialStore is the full credential store boundary.
type CredentialStore interface {
	CommerceCredentials
	TrafficCredentials
	SecretReader
}

// Connections is a snapshot of both connections for one merchant. Either may be nil.
type Connections struct {
	Commerce *CommerceConnection
	Traffic  *TrafficConnection
	LoadedAt time.Time
}

// CommerceConnected reports whether a storefront is connected
func (c Connections) CommerceConnected() bool {
	return c.Commerce != nil
}

// TrafficConnected reports whether an analytics account is connected
func (c Connections) TrafficConnected() bool {
	return c.Traffic != nil
}

// TrafficReady reports whether reports can be run (connected and property configured)
func (c Connections) TrafficReady() bool {
	return c.Traffic.PropertyConfigured()
}

// ConnectionReader is the read side needed to snapshot a merchant's connections.
type ConnectionReader interface {
	GetCommerce(ctx context.Context, merchantID uuid.UUID) (*CommerceConnection, error)
	GetTraffic(ctx context.Context, merchantID uuid.UUID) (*TrafficConnection, error)
}

// LoadConnections reads both connections. Missing connections are nil; other errors are returned.
func LoadConnections(ctx context.Context, r ConnectionReader, merchantID uuid.UUID) (Connections, error) {
	conns := Connections{LoadedAt: time.Now()}

	commerce, err := r.GetCommerce(ctx, merchantID)
	switch {
	case err == nil:
		conns.Commerce = commerce
	case !errors.Is(err, ErrConnectionNotFound):
		return Connections{}, err
	}

	traffic, err := r.GetTraffic(ctx, merchantID)
	switch {
	case err == nil:
		conns.Traffic = traffic
	case !errors.Is(err, ErrConnectionNotFound):
		return Connections{}, err
	}

	return conns, nil
}
