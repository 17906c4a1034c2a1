package platform

import "time"

// shopifyProductsResponse is the Admin API product list payload
type shopifyProductsResponse struct {
	Products []shopifyProduct `json:"products"`
}

// shopifyProduct is one product with its variants
type shopifyProduct struct {
	ID        int64            `json:"id"`
	Title     string           `json:"title"`
	Status    string           `json:"status"`
	UpdatedAt time.Time        `json:"updated_at"`
	Variants  []shopifyVariant `json:"variants"`
}

// shopifyVariant carries the sku-level price and stock
type shopifyVariant struct {
	ID                int64  `json:"id"`
	SKU               string `json:"sku"`
	Price             string `json:"price"`
	InventoryQuantity int64  `json:"inventory_quantity"`
}

// Shopify product status values
const (
	shopifyProductStatusActive = "active"
)

// shopifyFulfillmentRequest records a marketplace sale against the catalog,
// decrementing authoritative stock
type shopifyFulfillmentRequest struct {
	Fulfillment shopifyFulfillment `json:"fulfillment"`
}

type shopifyFulfillment struct {
	IdempotencyKey  string               `json:"idempotency_key"`
	ExternalOrderID string               `json:"external_order_id"`
	LineItems       []shopifyFulfillLine `json:"line_items"`
}

type shopifyFulfillLine struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}
