package sync

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Repository Ports
// ---------------------------------------------------------------------------

// ListingRepository stores the local view of marketplace listings. There is
// at most one listing per (platform, sku).
type ListingRepository interface {
	// GetBySKU returns the listing for a sku on a platform, or
	// ErrListingNotFound
	GetBySKU(ctx context.Context, platform PlatformCode, sku string) (*ListingRef, error)

	// Save inserts or updates a listing
	Save(ctx context.Context, listing *ListingRef) error

	// ListSKUs returns every sku with a listing on the platform, any status
	ListSKUs(ctx context.Context, platform PlatformCode) ([]string, error)
}

// OrderRepository stores orders received from platforms.
type OrderRepository interface {
	// GetByExternalID returns the order with the given platform external ID,
	// or ErrOrderNotFound
	GetByExternalID(ctx context.Context, platform PlatformCode, externalID string) (*Order, error)

	// Save inserts or updates an order and its lines
	Save(ctx context.Context, order *Order) error

	// ListByStatus returns orders in the given status, oldest first
	ListByStatus(ctx context.Context, status OrderStatus) ([]*Order, error)

	// HasOpenOrderForSKU returns true if any non-terminal order references
	// the sku. Used by the drift conflict check.
	HasOpenOrderForSKU(ctx context.Context, sku string) (bool, error)

	// Recent returns the most recently received orders, newest first
	Recent(ctx context.Context, limit int) ([]*Order, error)
}

// IdempotencyStore deduplicates externally supplied keys within a bounded
// retention window. Keys older than the window become eligible for
// re-processing; platforms may redeliver beyond it, which is an accepted
// risk covered by the engine's idempotence.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL. Returns true if the
	// key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether a key is present and unexpired
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases the store's resources
	Close() error
}
