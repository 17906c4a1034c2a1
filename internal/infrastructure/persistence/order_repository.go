package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// GetByExternalID returns the order with the given platform external ID
func (r *GormOrderRepository) GetByExternalID(ctx context.Context, platform syncdomain.PlatformCode, externalID string) (*syncdomain.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("platform = ? AND external_id = ?", platform.String(), externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts or updates an order and replaces its lines
func (r *GormOrderRepository) Save(ctx context.Context, order *syncdomain.Order) error {
	var model models.OrderModel
	model.FromDomain(order)
	lines := model.Lines
	model.Lines = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "failure_reason", "updated_at",
			}),
		}).Create(&model).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", model.ID).
			Delete(&models.OrderLineModel{}).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&lines).Error
	})
}

// ListByStatus returns orders in the given status, oldest first
func (r *GormOrderRepository) ListByStatus(ctx context.Context, status syncdomain.OrderStatus) ([]*syncdomain.Order, error) {
	var found []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("status = ?", status.String()).
		Order("received_at").
		Find(&found).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(found), nil
}

// HasOpenOrderForSKU returns true if any non-terminal order references the sku
func (r *GormOrderRepository) HasOpenOrderForSKU(ctx context.Context, sku string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderLineModel{}).
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("order_lines.sku = ? AND orders.status IN ?", sku, []string{
			syncdomain.OrderStatusNew.String(),
			syncdomain.OrderStatusFulfilling.String(),
		}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Recent returns the most recently received orders, newest first
func (r *GormOrderRepository) Recent(ctx context.Context, limit int) ([]*syncdomain.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("received_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var found []models.OrderModel
	if err := query.Find(&found).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(found), nil
}

func toDomainOrders(found []models.OrderModel) []*syncdomain.Order {
	out := make([]*syncdomain.Order, len(found))
	for i := range found {
		out[i] = found[i].ToDomain()
	}
	return out
}

// Ensure GormOrderRepository implements the domain port
var _ syncdomain.OrderRepository = (*GormOrderRepository)(nil)
