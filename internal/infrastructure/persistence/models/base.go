package models

import (
	"time"

	"github.com/google/uuid"
)

// MerchantOwnedModel provides the key and timestamps shared by per-merchant tables.
// A merchant owns at most one row of each table, so the merchant id is the primary key.
type MerchantOwnedModel struct {
	MerchantID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}
