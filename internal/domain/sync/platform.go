package sync

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// PlatformCode
// ---------------------------------------------------------------------------

// PlatformCode identifies an external commerce platform.
type PlatformCode string

const (
	// PlatformCodeShopify is the Catalog platform: authoritative for product
	// price and quantity, and the target of order fulfillments.
	PlatformCodeShopify PlatformCode = "SHOPIFY"
	// PlatformCodeEbay is the Marketplace platform: listings are mirrored
	// there and orders also originate there.
	PlatformCodeEbay PlatformCode = "EBAY"
	// PlatformCodeMeta is the read-only advertising insights platform.
	PlatformCodeMeta PlatformCode = "META"
)

// IsValid returns true if the platform code is valid
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformCodeShopify, PlatformCodeEbay, PlatformCodeMeta:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c PlatformCode) DisplayName() string {
	switch c {
	case PlatformCodeShopify:
		return "Shopify"
	case PlatformCodeEbay:
		return "eBay"
	case PlatformCodeMeta:
		return "Meta"
	default:
		return string(c)
	}
}

// ---------------------------------------------------------------------------
// Fulfillment
// ---------------------------------------------------------------------------

// FulfillmentRequest asks the Catalog platform to fulfill a marketplace order.
// IdempotencyKey is the marketplace order's external ID: a retried call with
// the same key is a no-op on the Catalog side if already applied.
type FulfillmentRequest struct {
	IdempotencyKey  string
	OrderExternalID string
	Lines           []OrderLine
}

// ---------------------------------------------------------------------------
// Platform Ports
// ---------------------------------------------------------------------------

// CatalogPlatform is the port for the system-of-record platform (Shopify).
// Implementations live in the infrastructure layer; they translate
// vendor-specific pagination, field naming and currency encoding into the
// core model and classify raw outcomes into the Transient/Permanent taxonomy.
type CatalogPlatform interface {
	// PlatformCode returns the platform code this adapter handles
	PlatformCode() PlatformCode

	// FetchInventory retrieves the authoritative catalog items for the given
	// skus. An empty sku list fetches the full catalog.
	FetchInventory(ctx context.Context, skus []string) ([]CatalogItem, error)

	// CreateFulfillment records a fulfillment for a marketplace order against
	// the catalog, decrementing authoritative stock. At-least-once safe via
	// the request's idempotency key.
	CreateFulfillment(ctx context.Context, req FulfillmentRequest) error

	// CheckStatus verifies the platform is reachable with valid credentials.
	CheckStatus(ctx context.Context) error
}

// MarketplacePlatform is the port for the listing/fulfillment marketplace
// (eBay).
type MarketplacePlatform interface {
	// PlatformCode returns the platform code this adapter handles
	PlatformCode() PlatformCode

	// FetchListing returns the current live listing for a sku, or
	// ErrListingNotFound (Permanent) if the sku has never been listed.
	FetchListing(ctx context.Context, sku string) (*ListingRef, error)

	// CreateListing creates a listing for an active catalog item and returns
	// the resulting reference.
	CreateListing(ctx context.Context, item CatalogItem) (*ListingRef, error)

	// PushInventory overwrites the listed quantity and price for a sku with
	// the authoritative catalog values.
	PushInventory(ctx context.Context, sku string, quantity int64, price decimal.Decimal) error

	// EndListing ends the listing for a discontinued catalog item.
	EndListing(ctx context.Context, sku string) error

	// FetchNewOrders returns orders created on the marketplace since the
	// given time that are in a state requiring fulfillment.
	FetchNewOrders(ctx context.Context, since time.Time) ([]Order, error)

	// CheckStatus verifies the platform is reachable with valid credentials.
	CheckStatus(ctx context.Context) error
}

// InsightsPlatform is the port for the read-only advertising insights source
// (Meta). The read-only contract is modeled as a capability subset: this
// interface exposes no write operations, so a write against it is a compile
// error rather than a runtime condition.
type InsightsPlatform interface {
	// PlatformCode returns the platform code this adapter handles
	PlatformCode() PlatformCode

	// FetchCampaignInsights retrieves advertising campaign performance data.
	FetchCampaignInsights(ctx context.Context) ([]CampaignInsight, error)

	// CheckStatus verifies the platform is reachable with valid credentials.
	CheckStatus(ctx context.Context) error
}
