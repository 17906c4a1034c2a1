package sync

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Order
// ---------------------------------------------------------------------------

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	// OrderStatusNew indicates the order was received but not yet processed
	OrderStatusNew OrderStatus = "NEW"
	// OrderStatusFulfilling indicates fulfillment has been submitted to the
	// Catalog platform but not yet acknowledged
	OrderStatusFulfilling OrderStatus = "FULFILLING"
	// OrderStatusFulfilled indicates the Catalog platform acknowledged the
	// fulfillment; terminal
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	// OrderStatusFailed indicates the order could not be fulfilled; terminal
	OrderStatusFailed OrderStatus = "FAILED"
)

// IsValid returns true if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusNew, OrderStatusFulfilling, OrderStatusFulfilled, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a final, immutable state
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusFailed
}

// OrderLine is one line item of an order
type OrderLine struct {
	// SKU joins the line to a catalog item
	SKU string
	// Quantity is the ordered quantity
	Quantity int64
	// UnitPrice is the price per unit at order time
	UnitPrice decimal.Decimal
}

// Order is an order received from a platform, either pulled by the engine or
// pushed by a webhook. Transitions follow New -> Fulfilling -> Fulfilled or
// Failed; terminal states are immutable, and no retry moves a Fulfilled order
// back to an earlier state.
type Order struct {
	// ID is the internal identifier
	ID uuid.UUID
	// Platform is the platform the order originated on
	Platform PlatformCode
	// ExternalID is the order ID on the platform, unique per platform
	ExternalID string
	// Status is the current lifecycle state
	Status OrderStatus
	// Lines are the order line items, in platform order
	Lines []OrderLine
	// FailureReason records why the order failed, if it did
	FailureReason string
	// ReceivedAt is when the order was first seen locally
	ReceivedAt time.Time
}

// NewOrder creates a new order in status New
func NewOrder(platform PlatformCode, externalID string, lines []OrderLine) *Order {
	return &Order{
		ID:         uuid.New(),
		Platform:   platform,
		ExternalID: externalID,
		Status:     OrderStatusNew,
		Lines:      lines,
		ReceivedAt: time.Now(),
	}
}

// MarkFulfilling transitions the order from New to Fulfilling
func (o *Order) MarkFulfilling() error {
	if o.Status.IsTerminal() {
		return ErrTerminalOrder
	}
	if o.Status != OrderStatusNew {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusFulfilling
	return nil
}

// MarkFulfilled transitions the order from Fulfilling to Fulfilled
func (o *Order) MarkFulfilled() error {
	if o.Status.IsTerminal() {
		return ErrTerminalOrder
	}
	if o.Status != OrderStatusFulfilling {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusFulfilled
	return nil
}

// MarkFailed transitions the order to Failed with a reason. Allowed from any
// non-terminal state.
func (o *Order) MarkFailed(reason string) error {
	if o.Status.IsTerminal() {
		return ErrTerminalOrder
	}
	o.Status = OrderStatusFailed
	o.FailureReason = reason
	return nil
}

// References returns true if any line of the order references the sku
func (o *Order) References(sku string) bool {
	for _, line := range o.Lines {
		if line.SKU == sku {
			return true
		}
	}
	return false
}

// TotalQuantity returns the total ordered quantity for a sku across lines
func (o *Order) TotalQuantity(sku string) int64 {
	var total int64
	for _, line := range o.Lines {
		if line.SKU == sku {
			total += line.Quantity
		}
	}
	return total
}
