package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/persistence/models"
)

// GormListingRepository implements ListingRepository using GORM
type GormListingRepository struct {
	db *gorm.DB
}

// NewGormListingRepository creates a new GormListingRepository
func NewGormListingRepository(db *gorm.DB) *GormListingRepository {
	return &GormListingRepository{db: db}
}

// GetBySKU returns the listing for a sku on a platform
func (r *GormListingRepository) GetBySKU(ctx context.Context, platform syncdomain.PlatformCode, sku string) (*syncdomain.ListingRef, error) {
	var model models.ListingRefModel
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND sku = ?", platform.String(), sku).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrListingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts or updates a listing, keyed by (platform, sku)
func (r *GormListingRepository) Save(ctx context.Context, listing *syncdomain.ListingRef) error {
	var model models.ListingRefModel
	model.FromDomain(listing)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "platform"}, {Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_id", "listed_quantity", "listed_price", "status",
			"last_synced_at", "updated_at",
		}),
	}).Create(&model).Error
}

// ListSKUs returns every sku with a listing on the platform
func (r *GormListingRepository) ListSKUs(ctx context.Context, platform syncdomain.PlatformCode) ([]string, error) {
	var skus []string
	if err := r.db.WithContext(ctx).
		Model(&models.ListingRefModel{}).
		Where("platform = ?", platform.String()).
		Order("sku").
		Pluck("sku", &skus).Error; err != nil {
		return nil, err
	}
	return skus, nil
}

// Ensure GormListingRepository implements the domain port
var _ syncdomain.ListingRepository = (*GormListingRepository)(nil)
