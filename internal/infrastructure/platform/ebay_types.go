package platform

import "time"

// ebayAmount is the money shape used across the Sell APIs
type ebayAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency,omitempty"`
}

// ebayOffersResponse is the offer lookup payload
type ebayOffersResponse struct {
	Offers []ebayOffer `json:"offers"`
	Total  int         `json:"total"`
}

// ebayOffer is one marketplace listing for a sku
type ebayOffer struct {
	OfferID           string           `json:"offerId"`
	SKU               string           `json:"sku"`
	AvailableQuantity int64            `json:"availableQuantity"`
	Status            string           `json:"status"`
	PricingSummary    ebayPricing      `json:"pricingSummary"`
	Listing           *ebayListingInfo `json:"listing,omitempty"`
}

type ebayPricing struct {
	Price ebayAmount `json:"price"`
}

type ebayListingInfo struct {
	ListingID string `json:"listingId"`
}

// eBay offer status values
const (
	ebayOfferStatusPublished = "PUBLISHED"
	ebayOfferStatusEnded     = "ENDED"
)

// ebayCreateOfferRequest creates a published offer for a sku
type ebayCreateOfferRequest struct {
	SKU               string      `json:"sku"`
	AvailableQuantity int64       `json:"availableQuantity"`
	PricingSummary    ebayPricing `json:"pricingSummary"`
	Title             string      `json:"title,omitempty"`
}

// ebayCreateOfferResponse returns the assigned offer ID
type ebayCreateOfferResponse struct {
	OfferID string `json:"offerId"`
}

// ebayPriceQuantityRequest is one entry of a bulk price/quantity update
type ebayPriceQuantityRequest struct {
	Requests []ebayPriceQuantityEntry `json:"requests"`
}

type ebayPriceQuantityEntry struct {
	SKU               string      `json:"sku"`
	AvailableQuantity int64       `json:"availableQuantity"`
	PricingSummary    ebayPricing `json:"pricingSummary"`
}

// ebayOrdersResponse is the fulfillment API order list payload
type ebayOrdersResponse struct {
	Orders []ebayOrder `json:"orders"`
	Total  int         `json:"total"`
}

// ebayOrder is one marketplace order
type ebayOrder struct {
	OrderID                string         `json:"orderId"`
	CreationDate           time.Time      `json:"creationDate"`
	OrderFulfillmentStatus string         `json:"orderFulfillmentStatus"`
	LineItems              []ebayLineItem `json:"lineItems"`
}

type ebayLineItem struct {
	SKU          string     `json:"sku"`
	Quantity     int64      `json:"quantity"`
	LineItemCost ebayAmount `json:"lineItemCost"`
}

// eBay order fulfillment status values
const (
	ebayFulfillmentNotStarted = "NOT_STARTED"
)
