package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/ratelimit"
)

// EbayAdapter implements MarketplacePlatform against the eBay Sell APIs:
// listings through the Inventory API, orders through the Fulfillment API.
type EbayAdapter struct {
	config     *EbayConfig
	httpClient *http.Client
	limiter    *ratelimit.Client
	logger     *zap.Logger
}

// NewEbayAdapter creates a new eBay adapter with the given configuration
func NewEbayAdapter(config *EbayConfig, limiter *ratelimit.Client, logger *zap.Logger) (*EbayAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EbayAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter: limiter,
		logger:  logger,
	}, nil
}

// PlatformCode returns the platform code this adapter handles
func (a *EbayAdapter) PlatformCode() syncdomain.PlatformCode {
	return syncdomain.PlatformCodeEbay
}

// FetchListing returns the live offer for a sku, or ErrListingNotFound
func (a *EbayAdapter) FetchListing(ctx context.Context, sku string) (*syncdomain.ListingRef, error) {
	offer, err := a.fetchOffer(ctx, sku)
	if err != nil {
		return nil, err
	}
	return a.offerToListing(offer), nil
}

func (a *EbayAdapter) fetchOffer(ctx context.Context, sku string) (*ebayOffer, error) {
	var respBody []byte
	err := a.execute(ctx, "fetch_listing", func(ctx context.Context) error {
		var err error
		respBody, err = a.doRequest(ctx, http.MethodGet,
			"/sell/inventory/v1/offer?sku="+url.QueryEscape(sku), nil)
		return err
	})
	if err != nil {
		// A sku that was never listed comes back 404.
		if errors.Is(err, syncdomain.ErrListingNotFound) {
			return nil, syncdomain.ErrListingNotFound
		}
		return nil, err
	}

	var resp ebayOffersResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, syncdomain.Permanent(a.PlatformCode(), "fetch_listing",
			fmt.Errorf("%w: %v", syncdomain.ErrInvalidResponse, err))
	}
	if len(resp.Offers) == 0 {
		return nil, syncdomain.ErrListingNotFound
	}
	return &resp.Offers[0], nil
}

func (a *EbayAdapter) offerToListing(offer *ebayOffer) *syncdomain.ListingRef {
	price, err := decimal.NewFromString(offer.PricingSummary.Price.Value)
	if err != nil {
		a.logger.Warn("offer carries unparseable price",
			zap.String("sku", offer.SKU),
			zap.String("price", offer.PricingSummary.Price.Value))
		price = decimal.Zero
	}
	status := syncdomain.ListingStatusEnded
	if offer.Status == ebayOfferStatusPublished {
		status = syncdomain.ListingStatusActive
	}
	externalID := offer.OfferID
	if offer.Listing != nil && offer.Listing.ListingID != "" {
		externalID = offer.Listing.ListingID
	}
	return &syncdomain.ListingRef{
		Platform:       a.PlatformCode(),
		ExternalID:     externalID,
		SKU:            offer.SKU,
		ListedQuantity: offer.AvailableQuantity,
		ListedPrice:    price,
		Status:         status,
	}
}

// CreateListing publishes an offer for an active catalog item
func (a *EbayAdapter) CreateListing(ctx context.Context, item syncdomain.CatalogItem) (*syncdomain.ListingRef, error) {
	payload, err := json.Marshal(ebayCreateOfferRequest{
		SKU:               item.SKU,
		AvailableQuantity: item.Quantity,
		PricingSummary:    ebayPricing{Price: ebayAmount{Value: item.Price.String()}},
		Title:             item.Title,
	})
	if err != nil {
		return nil, fmt.Errorf("ebay: failed to marshal offer: %w", err)
	}

	var respBody []byte
	err = a.execute(ctx, "create_listing", func(ctx context.Context) error {
		var err error
		respBody, err = a.doRequest(ctx, http.MethodPost, "/sell/inventory/v1/offer", payload)
		return err
	})
	if err != nil {
		return nil, err
	}

	var resp ebayCreateOfferResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, syncdomain.Permanent(a.PlatformCode(), "create_listing",
			fmt.Errorf("%w: %v", syncdomain.ErrInvalidResponse, err))
	}
	if resp.OfferID == "" {
		return nil, syncdomain.Permanent(a.PlatformCode(), "create_listing",
			fmt.Errorf("%w: missing offerId", syncdomain.ErrInvalidResponse))
	}
	return &syncdomain.ListingRef{
		Platform:       a.PlatformCode(),
		ExternalID:     resp.OfferID,
		SKU:            item.SKU,
		ListedQuantity: item.Quantity,
		ListedPrice:    item.Price,
		Status:         syncdomain.ListingStatusActive,
	}, nil
}

// PushInventory overwrites the listed quantity and price for a sku with the
// authoritative catalog values
func (a *EbayAdapter) PushInventory(ctx context.Context, sku string, quantity int64, price decimal.Decimal) error {
	payload, err := json.Marshal(ebayPriceQuantityRequest{
		Requests: []ebayPriceQuantityEntry{{
			SKU:               sku,
			AvailableQuantity: quantity,
			PricingSummary:    ebayPricing{Price: ebayAmount{Value: price.String()}},
		}},
	})
	if err != nil {
		return fmt.Errorf("ebay: failed to marshal price/quantity update: %w", err)
	}

	return a.execute(ctx, "push_inventory", func(ctx context.Context) error {
		_, err := a.doRequest(ctx, http.MethodPost,
			"/sell/inventory/v1/bulk_update_price_quantity", payload)
		return err
	})
}

// EndListing withdraws the offer for a discontinued catalog item
func (a *EbayAdapter) EndListing(ctx context.Context, sku string) error {
	offer, err := a.fetchOffer(ctx, sku)
	if err != nil {
		return err
	}
	return a.execute(ctx, "end_listing", func(ctx context.Context) error {
		_, err := a.doRequest(ctx, http.MethodPost,
			"/sell/inventory/v1/offer/"+url.PathEscape(offer.OfferID)+"/withdraw", nil)
		return err
	})
}

// FetchNewOrders returns orders created since the given time that have not
// started fulfillment
func (a *EbayAdapter) FetchNewOrders(ctx context.Context, since time.Time) ([]syncdomain.Order, error) {
	filter := url.QueryEscape(fmt.Sprintf("creationdate:[%s..]", since.UTC().Format(time.RFC3339)))

	var respBody []byte
	err := a.execute(ctx, "fetch_new_orders", func(ctx context.Context) error {
		var err error
		respBody, err = a.doRequest(ctx, http.MethodGet,
			"/sell/fulfillment/v1/order?filter="+filter, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	var resp ebayOrdersResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, syncdomain.Permanent(a.PlatformCode(), "fetch_new_orders",
			fmt.Errorf("%w: %v", syncdomain.ErrInvalidResponse, err))
	}

	var orders []syncdomain.Order
	for _, raw := range resp.Orders {
		if raw.OrderFulfillmentStatus != ebayFulfillmentNotStarted {
			continue
		}
		lines := make([]syncdomain.OrderLine, 0, len(raw.LineItems))
		for _, item := range raw.LineItems {
			unitPrice, err := decimal.NewFromString(item.LineItemCost.Value)
			if err != nil {
				unitPrice = decimal.Zero
			}
			lines = append(lines, syncdomain.OrderLine{
				SKU:       item.SKU,
				Quantity:  item.Quantity,
				UnitPrice: unitPrice,
			})
		}
		orders = append(orders, syncdomain.Order{
			Platform:   a.PlatformCode(),
			ExternalID: raw.OrderID,
			Status:     syncdomain.OrderStatusNew,
			Lines:      lines,
			ReceivedAt: raw.CreationDate,
		})
	}
	return orders, nil
}

// CheckStatus verifies the marketplace is reachable with valid credentials
func (a *EbayAdapter) CheckStatus(ctx context.Context) error {
	return a.execute(ctx, "check_status", func(ctx context.Context) error {
		_, err := a.doRequest(ctx, http.MethodGet, "/sell/inventory/v1/offer?sku=ping", nil)
		if errors.Is(err, syncdomain.ErrListingNotFound) {
			// 404 means the API answered with valid credentials.
			return nil
		}
		return err
	})
}

// execute routes an operation through the shared rate limiter when present
func (a *EbayAdapter) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if a.limiter == nil {
		return fn(ctx)
	}
	return a.limiter.Execute(ctx, a.PlatformCode(), op, fn)
}

// doRequest performs one Sell API call and classifies the raw outcome.
// The user token travels in the Authorization header and never appears in
// errors or logs.
func (a *EbayAdapter) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("ebay: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.UserToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, transportError(a.PlatformCode(), op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, transportError(a.PlatformCode(), op, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, syncdomain.Permanent(a.PlatformCode(), op, syncdomain.ErrListingNotFound)
	}
	if resp.StatusCode >= 400 {
		a.logger.Warn("ebay request failed",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode))
		return nil, classifyStatus(a.PlatformCode(), op, resp.StatusCode)
	}
	return respBody, nil
}

// Ensure EbayAdapter implements MarketplacePlatform
var _ syncdomain.MarketplacePlatform = (*EbayAdapter)(nil)
