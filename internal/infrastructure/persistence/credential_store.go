package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/infrastructure/crypto"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"github.com/storepulse/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// credentialAAD binds sealed values to this store.
var credentialAAD = []byte("storepulse/credential")

// GormCredentialStore implements merchant.CredentialStore using GORM.
// Tokens are sealed before they reach the database and are only opened through ReadPlain.
type GormCredentialStore struct {
	db     *gorm.DB
	cipher *crypto.Cipher
	now    func() time.Time
}

var _ merchant.CredentialStore = (*GormCredentialStore)(nil)

// NewGormCredentialStore creates a new GormCredentialStore
func NewGormCredentialStore(db *gorm.DB, cipher *crypto.Cipher) *GormCredentialStore {
	return &GormCredentialStore{db: db, cipher: cipher, now: time.Now}
}

// WithTx returns a new store instance bound to the given transaction
func (s *GormCredentialStore) WithTx(tx *gorm.DB) *GormCredentialStore {
	return &GormCredentialStore{db: tx, cipher: s.cipher, now: s.now}
}

// GetCommerce loads the storefront connection of a merchant
func (s *GormCredentialStore) GetCommerce(ctx context.Context, merchantID uuid.UUID) (*merchant.CommerceConnection, error) {
	var model models.CommerceConnectionModel
	if err := s.db.WithContext(ctx).Where("merchant_id = ?", merchantID).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, merchant.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("load commerce connection: %w", err)
	}
	return model.ToDomain(), nil
}

// UpsertCommerce seals the access token and creates or replaces the storefront connection.
func (s *GormCredentialStore) UpsertCommerce(ctx context.Context, merchantID uuid.UUID, shopDomain string, accessToken merchant.Secret) (*merchant.CommerceConnection, error) {
	sealed, err := s.seal(accessToken)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CommerceConnectionModel
		err := tx.Where("merchant_id = ?", merchantID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(models.NewCommerceConnectionModel(merchantID, shopDomain, sealed, now)).Error
		case err != nil:
			return err
		}
		return tx.Model(&models.CommerceConnectionModel{}).
			Where("merchant_id = ?", merchantID).
			Updates(map[string]any{
				"shop_domain":  shopDomain,
				"access_token": models.EncodeSealed(sealed),
				"updated_at":   now,
			}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", merchant.ErrShopDomainInUse, shopDomain)
		}
		return nil, fmt.Errorf("save commerce connection: %w", err)
	}
	return s.GetCommerce(ctx, merchantID)
}

// GetTraffic loads the analytics connection of a merchant
func (s *GormCredentialStore) GetTraffic(ctx context.Context, merchantID uuid.UUID) (*merchant.TrafficConnection, error) {
	var model models.TrafficConnectionModel
	if err := s.db.WithContext(ctx).Where("merchant_id = ?", merchantID).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, merchant.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("load traffic connection: %w", err)
	}
	return model.ToDomain(), nil
}

// UpsertTraffic stores the grant of an authorization-code exchange. The connection
// becomes active again and its token version is bumped so in-flight refreshes lose their CAS.
func (s *GormCredentialStore) UpsertTraffic(ctx context.Context, merchantID uuid.UUID, grant merchant.TrafficGrant) (*merchant.TrafficConnection, error) {
	access, refresh, err := s.sealGrant(grant)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.TrafficConnectionModel
		err := tx.Where("merchant_id = ?", merchantID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.TrafficConnectionModel{
				MerchantOwnedModel: models.MerchantOwnedModel{MerchantID: merchantID, CreatedAt: now, UpdatedAt: now},
				AccessToken:        models.EncodeSealed(access),
				RefreshToken:       models.EncodeSealed(refresh),
				ExpiresAt:          utcPtr(grant.ExpiresAt),
				Status:             string(merchant.ConnectionStatusActive),
				TokenVersion:       1,
			}).Error
		case err != nil:
			return err
		}

		updates := tokenUpdates(access, refresh, grant.ExpiresAt, now)
		updates["status"] = string(merchant.ConnectionStatusActive)
		updates["token_version"] = existing.TokenVersion + 1
		return tx.Model(&models.TrafficConnectionModel{}).
			Where("merchant_id = ?", merchantID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save traffic connection: %w", err)
	}
	return s.GetTraffic(ctx, merchantID)
}

// SetPropertyID records the analytics property reports run against.
func (s *GormCredentialStore) SetPropertyID(ctx context.Context, merchantID uuid.UUID, propertyID string) error {
	result := s.db.WithContext(ctx).
		Model(&models.TrafficConnectionModel{}).
		Where("merchant_id = ?", merchantID).
		Updates(map[string]any{
			"property_id": propertyID,
			"updated_at":  s.now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("set property id: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return merchant.ErrConnectionNotFound
	}
	return nil
}

// UpdateTrafficTokens writes a refreshed grant with optimistic locking on token_version.
func (s *GormCredentialStore) UpdateTrafficTokens(ctx context.Context, merchantID uuid.UUID, expectedVersion int64, grant merchant.TrafficGrant) error {
	access, refresh, err := s.sealGrant(grant)
	if err != nil {
		return err
	}

	updates := tokenUpdates(access, refresh, grant.ExpiresAt, s.now().UTC())
	updates["token_version"] = expectedVersion + 1

	// Only update if nobody wrote since expectedVersion was read
	result := s.db.WithContext(ctx).
		Model(&models.TrafficConnectionModel{}).
		Where("merchant_id = ? AND token_version = ?", merchantID, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update traffic tokens: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.TrafficConnectionModel{}).
			Where("merchant_id = ?", merchantID).Count(&count).Error; err != nil {
			return fmt.Errorf("update traffic tokens: %w", err)
		}
		if count == 0 {
			return merchant.ErrConnectionNotFound
		}
		return merchant.ErrTokenVersionConflict
	}
	return nil
}

// MarkNeedsReauth flags the connection after the provider rejected its refresh token.
func (s *GormCredentialStore) MarkNeedsReauth(ctx context.Context, merchantID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Model(&models.TrafficConnectionModel{}).
		Where("merchant_id = ?", merchantID).
		Updates(map[string]any{
			"status":     string(merchant.ConnectionStatusNeedsReauth),
			"updated_at": s.now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("mark needs reauth: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return merchant.ErrConnectionNotFound
	}
	return nil
}

// ReadPlain opens a sealed secret. A value that fails authentication is logged and
// reported as absent so callers fall back to the missing-credential path.
func (s *GormCredentialStore) ReadPlain(ctx context.Context, sealed merchant.SealedSecret) (merchant.Secret, bool) {
	if sealed.IsEmpty() {
		return "", false
	}
	plain, err := s.cipher.Open(sealed, credentialAAD)
	if err != nil {
		logger.L(ctx).Warn("Stored credential could not be decrypted", zap.Error(err))
		return "", false
	}
	return merchant.Secret(plain), true
}

// ReadEncryptedRaw returns a copy of the stored ciphertext.
func (s *GormCredentialStore) ReadEncryptedRaw(sealed merchant.SealedSecret) []byte {
	if sealed.IsEmpty() {
		return nil
	}
	out := make([]byte, len(sealed))
	copy(out, sealed)
	return out
}

func (s *GormCredentialStore) seal(secret merchant.Secret) (merchant.SealedSecret, error) {
	if secret.IsEmpty() {
		return nil, nil
	}
	sealed, err := s.cipher.Seal([]byte(secret.Reveal()), credentialAAD)
	if err != nil {
		return nil, fmt.Errorf("seal credential: %w", err)
	}
	return sealed, nil
}

func (s *GormCredentialStore) sealGrant(grant merchant.TrafficGrant) (access, refresh merchant.SealedSecret, err error) {
	if access, err = s.seal(grant.AccessToken); err != nil {
		return nil, nil, err
	}
	if refresh, err = s.seal(grant.RefreshToken); err != nil {
		return nil, nil, err
	}
	return access, refresh, nil
}

// tokenUpdates builds the column set for a token write. A missing refresh token
// leaves the stored one untouched.
func tokenUpdates(access, refresh merchant.SealedSecret, expiresAt *time.Time, now time.Time) map[string]any {
	updates := map[string]any{
		"access_token": models.EncodeSealed(access),
		"expires_at":   utcPtr(expiresAt),
		"updated_at":   now,
	}
	if !refresh.IsEmpty() {
		updates["refresh_token"] = models.EncodeSealed(refresh)
	}
	return updates
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
