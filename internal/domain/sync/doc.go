// Package sync defines the core data model and ports for the cross-platform
// synchronization engine: catalog items, marketplace listings, orders,
// reconciliation actions and events, the error taxonomy, and the platform
// capability interfaces implemented by the infrastructure adapters.
//
// The Catalog platform (Shopify) is the single source of truth for product
// price and quantity. The Marketplace platform (eBay) mirrors listings and
// originates orders. The Insights platform (Meta) is read-only by contract:
// its interface exposes no write operations.
package sync
