package models

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"github.com/storepulse/backend/internal/domain/merchant"
)

// CommerceConnectionModel is the persistence model for a storefront connection.
type CommerceConnectionModel struct {
	MerchantOwnedModel
	ShopDomain  string `gorm:"type:varchar(255);not null;uniqueIndex"`
	AccessToken string `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM
func (CommerceConnectionModel) TableName() string {
	return "commerce_connections"
}

// ToDomain converts the model to a domain CommerceConnection
func (m *CommerceConnectionModel) ToDomain() *merchant.CommerceConnection {
	return &merchant.CommerceConnection{
		MerchantID:  m.MerchantID,
		ShopDomain:  m.ShopDomain,
		AccessToken: DecodeSealed(m.AccessToken),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// NewCommerceConnectionModel builds a row for a freshly sealed token.
func NewCommerceConnectionModel(merchantID uuid.UUID, shopDomain string, sealed merchant.SealedSecret, now time.Time) *CommerceConnectionModel {
	return &CommerceConnectionModel{
		MerchantOwnedModel: MerchantOwnedModel{MerchantID: merchantID, CreatedAt: now, UpdatedAt: now},
		ShopDomain:         shopDomain,
		AccessToken:        EncodeSealed(sealed),
	}
}

// TrafficConnectionModel is the persistence model for an analytics connection.
type TrafficConnectionModel struct {
	MerchantOwnedModel
	PropertyID   *string    `gorm:"type:varchar(64)"`
	AccessToken  string     `gorm:"type:text;not null"`
	RefreshToken string     `gorm:"type:text;not null;default:''"`
	ExpiresAt    *time.Time `gorm:"index"`
	Status       string     `gorm:"type:varchar(20);not null;default:'active'"`
	TokenVersion int64      `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (TrafficConnectionModel) TableName() string {
	return "traffic_connections"
}

// ToDomain converts the model to a domain TrafficConnection
func (m *TrafficConnectionModel) ToDomain() *merchant.TrafficConnection {
	conn := &merchant.TrafficConnection{
		MerchantID:   m.MerchantID,
		AccessToken:  DecodeSealed(m.AccessToken),
		RefreshToken: DecodeSealed(m.RefreshToken),
		Status:       merchant.ConnectionStatus(m.Status),
		TokenVersion: m.TokenVersion,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.PropertyID != nil {
		conn.PropertyID = *m.PropertyID
	}
	if m.ExpiresAt != nil {
		t := m.ExpiresAt.UTC()
		conn.ExpiresAt = &t
	}
	if !conn.Status.IsValid() {
		conn.Status = merchant.ConnectionStatusActive
	}
	return conn
}

// EncodeSealed renders sealed bytes for a text column. Empty stays empty.
func EncodeSealed(s merchant.SealedSecret) string {
	if s.IsEmpty() {
		return ""
	}
	return base64.StdEncoding.EncodeToString(s)
}

// DecodeSealed parses a text column. Corrupt values decode to an empty secret,
// which callers treat the same as a missing credential.
func DecodeSealed(s string) merchant.SealedSecret {
	if s == "" {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return merchant.SealedSecret(b)
}
