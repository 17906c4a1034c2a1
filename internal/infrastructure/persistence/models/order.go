package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

// OrderModel is the persistence model for a platform order.
// (platform, external_id) is unique: the platform order ID is the
// idempotency anchor for order ingestion.
type OrderModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Platform      string    `gorm:"size:16;not null;uniqueIndex:idx_order_platform_external,priority:1"`
	ExternalID    string    `gorm:"size:128;not null;uniqueIndex:idx_order_platform_external,priority:2"`
	Status        string    `gorm:"size:16;not null;index"`
	FailureReason string    `gorm:"size:512"`
	ReceivedAt    time.Time `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Lines []OrderLineModel `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderLineModel is one line item of a stored order
type OrderLineModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position  int             `gorm:"not null"`
	SKU       string          `gorm:"size:128;not null;index"`
	Quantity  int64           `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *syncdomain.Order {
	lines := make([]syncdomain.OrderLine, len(m.Lines))
	for i, line := range m.Lines {
		lines[i] = syncdomain.OrderLine{
			SKU:       line.SKU,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
	}
	return &syncdomain.Order{
		ID:            m.ID,
		Platform:      syncdomain.PlatformCode(m.Platform),
		ExternalID:    m.ExternalID,
		Status:        syncdomain.OrderStatus(m.Status),
		Lines:         lines,
		FailureReason: m.FailureReason,
		ReceivedAt:    m.ReceivedAt,
	}
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *syncdomain.Order) {
	m.ID = o.ID
	m.Platform = o.Platform.String()
	m.ExternalID = o.ExternalID
	m.Status = o.Status.String()
	m.FailureReason = o.FailureReason
	m.ReceivedAt = o.ReceivedAt
	m.Lines = make([]OrderLineModel, len(o.Lines))
	for i, line := range o.Lines {
		m.Lines[i] = OrderLineModel{
			OrderID:   o.ID,
			Position:  i,
			SKU:       line.SKU,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
	}
}
