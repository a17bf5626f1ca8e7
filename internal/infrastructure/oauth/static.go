package oauth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
)

// StaticToken serves a token that has no refresh grant, such as a storefront admin token.
// ForceRefresh always fails, so a rejected call surfaces as exhausted after zero retries.
type StaticToken struct {
	name  string
	token merchant.Secret
}

var _ TokenProvider = StaticToken{}

// NewStaticToken wraps a plaintext token. An empty token yields ErrNoCredential on use.
func NewStaticToken(name string, token merchant.Secret) StaticToken {
	return StaticToken{name: name, token: token}
}

// Name returns the provider name
func (s StaticToken) Name() string {
	return s.name
}

// Token returns the wrapped token
func (s StaticToken) Token(_ context.Context, _ *Session, _ uuid.UUID) (merchant.Secret, error) {
	if s.token.IsEmpty() {
		return "", fmt.Errorf("%w: no %s token stored", integration.ErrNoCredential, s.name)
	}
	return s.token, nil
}

// ForceRefresh always fails
func (s StaticToken) ForceRefresh(_ context.Context, _ *Session, _ uuid.UUID, _ merchant.Secret) (merchant.Secret, error) {
	return "", fmt.Errorf("%w: %s tokens cannot be refreshed", integration.ErrNoCredential, s.name)
}
