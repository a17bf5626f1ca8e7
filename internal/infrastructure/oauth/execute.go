package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"github.com/storepulse/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Execute obtains a token from provider and runs call with it. When the provider rejects
// the token, the token is refreshed once and call is retried once. A rejection after a
// refresh, or a failed forced refresh, is reported as integration.ErrAuthExhausted.
func Execute[T any](ctx context.Context, provider TokenProvider, merchantID uuid.UUID, call func(ctx context.Context, token merchant.Secret) (T, error)) (T, error) {
	var zero T
	session := NewSession()

	token, err := provider.Token(ctx, session, merchantID)
	if err != nil {
		if !errors.Is(err, integration.ErrNoCredential) {
			err = fmt.Errorf("%w: %w", integration.ErrNoCredential, err)
		}
		return zero, err
	}

	v, err := call(ctx, token)
	if err == nil || !errors.Is(err, integration.ErrAuthRejected) {
		return v, err
	}

	log := logger.L(ctx).With(zap.String("merchant_id", merchantID.String()), zap.String("provider", provider.Name()))
	if session.Refreshed() {
		log.Warn("Provider rejected a freshly refreshed token")
		return zero, fmt.Errorf("%w: %v", integration.ErrAuthExhausted, err)
	}

	fresh, refreshErr := provider.ForceRefresh(ctx, session, merchantID, token)
	if refreshErr != nil {
		log.Warn("Forced refresh after rejection failed", zap.Error(refreshErr))
		return zero, fmt.Errorf("%w: refresh after rejection: %v", integration.ErrAuthExhausted, refreshErr)
	}

	telemetry.AddEvent(telemetry.SpanFromContext(ctx), "provider.retry", telemetry.SpanAttrRetry, 1)
	v, err = call(ctx, fresh)
	if errors.Is(err, integration.ErrAuthRejected) {
		log.Warn("Provider rejected the token again after refresh")
		return zero, fmt.Errorf("%w: %v", integration.ErrAuthExhausted, err)
	}
	return v, err
}
