package sync

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// CatalogItem
// ---------------------------------------------------------------------------

// CatalogStatus represents the lifecycle state of a catalog item
type CatalogStatus string

const (
	// CatalogStatusActive indicates the item is sellable
	CatalogStatusActive CatalogStatus = "ACTIVE"
	// CatalogStatusDiscontinued indicates the item has been discontinued
	// and its marketplace listings should be ended
	CatalogStatusDiscontinued CatalogStatus = "DISCONTINUED"
)

// IsValid returns true if the status is valid
func (s CatalogStatus) IsValid() bool {
	switch s {
	case CatalogStatusActive, CatalogStatusDiscontinued:
		return true
	default:
		return false
	}
}

// String returns the string representation of CatalogStatus
func (s CatalogStatus) String() string {
	return string(s)
}

// CatalogItem is the authoritative product record owned by the Catalog
// platform. The sync core never writes it speculatively: it is mutated only
// by applying reconciliation actions derived from Catalog reads.
type CatalogItem struct {
	// SKU is the cross-platform join key, unique within the catalog
	SKU string
	// Title is the product title
	Title string
	// Price is the authoritative selling price
	Price decimal.Decimal
	// Quantity is the authoritative stock level, never negative
	Quantity int64
	// Status indicates whether the item is active or discontinued
	Status CatalogStatus
	// UpdatedAt is when the item last changed on the Catalog platform
	UpdatedAt time.Time
}

// IsActive returns true if the item is sellable
func (i *CatalogItem) IsActive() bool {
	return i.Status == CatalogStatusActive
}

// ---------------------------------------------------------------------------
// ListingRef
// ---------------------------------------------------------------------------

// ListingStatus represents the state of a marketplace listing
type ListingStatus string

const (
	// ListingStatusActive indicates the listing is live
	ListingStatusActive ListingStatus = "ACTIVE"
	// ListingStatusEnded indicates the listing was ended
	ListingStatusEnded ListingStatus = "ENDED"
	// ListingStatusError indicates the last sync attempt failed
	ListingStatusError ListingStatus = "ERROR"
)

// IsValid returns true if the status is valid
func (s ListingStatus) IsValid() bool {
	switch s {
	case ListingStatusActive, ListingStatusEnded, ListingStatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation of ListingStatus
func (s ListingStatus) String() string {
	return string(s)
}

// ListingRef is the mirror of one catalog item on one marketplace. There is
// at most one ListingRef per (platform, sku): it is created when the item is
// first pushed and ended when the item is discontinued. The back-reference to
// the catalog item is the sku, used only for lookup, never for cascading
// mutation.
type ListingRef struct {
	// Platform is the marketplace holding the listing
	Platform PlatformCode
	// ExternalID is the listing ID assigned by the marketplace
	ExternalID string
	// SKU joins the listing to its catalog item
	SKU string
	// ListedQuantity is the quantity currently listed on the marketplace
	ListedQuantity int64
	// ListedPrice is the price currently listed on the marketplace
	ListedPrice decimal.Decimal
	// Status is the listing state
	Status ListingStatus
	// LastSyncedAt is when the listing last matched the catalog
	LastSyncedAt time.Time
}

// InSyncWith returns true if the listing mirrors the catalog item's
// quantity and price exactly.
func (l *ListingRef) InSyncWith(item *CatalogItem) bool {
	return l.ListedQuantity == item.Quantity && l.ListedPrice.Equal(item.Price)
}
