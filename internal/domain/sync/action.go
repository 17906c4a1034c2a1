package sync

// ---------------------------------------------------------------------------
// ReconciliationAction
// ---------------------------------------------------------------------------

// ActionKind identifies one unit of reconciliation work
type ActionKind string

const (
	// ActionPushInventory overwrites a listing's quantity/price with the
	// authoritative catalog values
	ActionPushInventory ActionKind = "PUSH_INVENTORY"
	// ActionCreateListing creates a marketplace listing for a catalog item
	ActionCreateListing ActionKind = "CREATE_LISTING"
	// ActionEndListing ends the listing for a discontinued catalog item
	ActionEndListing ActionKind = "END_LISTING"
	// ActionPullOrder records a marketplace order locally
	ActionPullOrder ActionKind = "PULL_ORDER"
	// ActionCreateFulfillment submits a fulfillment to the Catalog platform
	ActionCreateFulfillment ActionKind = "CREATE_FULFILLMENT"
)

// IsValid returns true if the action kind is valid
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionPushInventory, ActionCreateListing, ActionEndListing,
		ActionPullOrder, ActionCreateFulfillment:
		return true
	default:
		return false
	}
}

// String returns the string representation of ActionKind
func (k ActionKind) String() string {
	return string(k)
}

// ReconciliationAction is a transient unit of work produced by the engine and
// consumed by a platform adapter. It is never persisted across runs: it is
// discarded after application or recorded as an ActionFailed event.
type ReconciliationAction struct {
	// Kind is the kind of work
	Kind ActionKind
	// SKU is set for inventory actions
	SKU string
	// OrderID is the platform external order ID, set for order actions
	OrderID string
	// Item carries the authoritative catalog values for inventory actions
	Item *CatalogItem
	// Order carries the order for fulfillment actions
	Order *Order
}

// Target returns the entity the action addresses: the sku for inventory
// actions, the external order ID for order actions.
func (a *ReconciliationAction) Target() string {
	if a.SKU != "" {
		return a.SKU
	}
	return a.OrderID
}
