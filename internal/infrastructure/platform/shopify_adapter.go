package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/ratelimit"
)

// ShopifyAdapter implements CatalogPlatform against the Shopify Admin API.
// Shopify is the system of record: reads here are authoritative and the only
// write is recording a marketplace fulfillment.
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
	limiter    *ratelimit.Client
	logger     *zap.Logger
}

// NewShopifyAdapter creates a new Shopify adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig, limiter *ratelimit.Client, logger *zap.Logger) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShopifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter: limiter,
		logger:  logger,
	}, nil
}

// PlatformCode returns the platform code this adapter handles
func (a *ShopifyAdapter) PlatformCode() syncdomain.PlatformCode {
	return syncdomain.PlatformCodeShopify
}

// FetchInventory retrieves the authoritative catalog items for the given
// skus. An empty sku list fetches the full catalog.
func (a *ShopifyAdapter) FetchInventory(ctx context.Context, skus []string) ([]syncdomain.CatalogItem, error) {
	var respBody []byte
	err := a.execute(ctx, "fetch_inventory", func(ctx context.Context) error {
		var err error
		respBody, err = a.doRequest(ctx, http.MethodGet, "/products.json?limit=250", nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	var resp shopifyProductsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, syncdomain.Permanent(a.PlatformCode(), "fetch_inventory",
			fmt.Errorf("%w: %v", syncdomain.ErrInvalidResponse, err))
	}

	wanted := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		wanted[sku] = struct{}{}
	}

	var items []syncdomain.CatalogItem
	for _, product := range resp.Products {
		for _, variant := range product.Variants {
			if variant.SKU == "" {
				continue
			}
			if len(wanted) > 0 {
				if _, ok := wanted[variant.SKU]; !ok {
					continue
				}
			}
			price, err := decimal.NewFromString(variant.Price)
			if err != nil {
				a.logger.Warn("skipping variant with unparseable price",
					zap.String("sku", variant.SKU),
					zap.String("price", variant.Price))
				continue
			}
			quantity := variant.InventoryQuantity
			if quantity < 0 {
				// Shopify reports oversold stock as negative; the sync model
				// floors it at zero.
				quantity = 0
			}
			status := syncdomain.CatalogStatusDiscontinued
			if product.Status == shopifyProductStatusActive {
				status = syncdomain.CatalogStatusActive
			}
			items = append(items, syncdomain.CatalogItem{
				SKU:       variant.SKU,
				Title:     product.Title,
				Price:     price,
				Quantity:  quantity,
				Status:    status,
				UpdatedAt: product.UpdatedAt,
			})
		}
	}
	return items, nil
}

// CreateFulfillment records a marketplace fulfillment against the catalog.
// At-least-once safe: the idempotency key makes a resubmission a no-op.
func (a *ShopifyAdapter) CreateFulfillment(ctx context.Context, req syncdomain.FulfillmentRequest) error {
	lines := make([]shopifyFulfillLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, shopifyFulfillLine{SKU: line.SKU, Quantity: line.Quantity})
	}
	body := shopifyFulfillmentRequest{
		Fulfillment: shopifyFulfillment{
			IdempotencyKey:  req.IdempotencyKey,
			ExternalOrderID: req.OrderExternalID,
			LineItems:       lines,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("shopify: failed to marshal fulfillment: %w", err)
	}

	return a.execute(ctx, "create_fulfillment", func(ctx context.Context) error {
		_, err := a.doRequest(ctx, http.MethodPost, "/fulfillments.json", payload)
		return err
	})
}

// CheckStatus verifies the shop is reachable with valid credentials
func (a *ShopifyAdapter) CheckStatus(ctx context.Context) error {
	return a.execute(ctx, "check_status", func(ctx context.Context) error {
		_, err := a.doRequest(ctx, http.MethodGet, "/shop.json", nil)
		return err
	})
}

// execute routes an operation through the shared rate limiter when present
func (a *ShopifyAdapter) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if a.limiter == nil {
		return fn(ctx)
	}
	return a.limiter.Execute(ctx, a.PlatformCode(), op, fn)
}

// doRequest performs one Admin API call and classifies the raw outcome.
// The access token travels in a header and never appears in errors or logs.
func (a *ShopifyAdapter) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	op := method + " " + path
	base := a.config.APIBaseURL
	if base == "" {
		base = "https://" + a.config.ShopURL
	}
	url := fmt.Sprintf("%s/admin/api/%s%s", base, a.config.APIVersion, path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)
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

	if resp.StatusCode >= 400 {
		a.logger.Warn("shopify request failed",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode))
		return nil, classifyStatus(a.PlatformCode(), op, resp.StatusCode)
	}
	return respBody, nil
}

// Ensure ShopifyAdapter implements CatalogPlatform
var _ syncdomain.CatalogPlatform = (*ShopifyAdapter)(nil)
