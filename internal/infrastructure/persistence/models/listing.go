package models

import (
	"time"

	"github.com/shopspring/decimal"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

// ListingRefModel is the persistence model for the local mirror of one
// marketplace listing. (platform, sku) is unique.
type ListingRefModel struct {
	ID             uint            `gorm:"primaryKey;autoIncrement"`
	Platform       string          `gorm:"size:16;not null;uniqueIndex:idx_listing_platform_sku,priority:1"`
	SKU            string          `gorm:"size:128;not null;uniqueIndex:idx_listing_platform_sku,priority:2"`
	ExternalID     string          `gorm:"size:128;not null"`
	ListedQuantity int64           `gorm:"not null;default:0"`
	ListedPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status         string          `gorm:"size:16;not null"`
	LastSyncedAt   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM
func (ListingRefModel) TableName() string {
	return "listing_refs"
}

// ToDomain converts the persistence model to a domain ListingRef
func (m *ListingRefModel) ToDomain() *syncdomain.ListingRef {
	return &syncdomain.ListingRef{
		Platform:       syncdomain.PlatformCode(m.Platform),
		ExternalID:     m.ExternalID,
		SKU:            m.SKU,
		ListedQuantity: m.ListedQuantity,
		ListedPrice:    m.ListedPrice,
		Status:         syncdomain.ListingStatus(m.Status),
		LastSyncedAt:   m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain ListingRef
func (m *ListingRefModel) FromDomain(l *syncdomain.ListingRef) {
	m.Platform = l.Platform.String()
	m.SKU = l.SKU
	m.ExternalID = l.ExternalID
	m.ListedQuantity = l.ListedQuantity
	m.ListedPrice = l.ListedPrice
	m.Status = l.Status.String()
	m.LastSyncedAt = l.LastSyncedAt
}
