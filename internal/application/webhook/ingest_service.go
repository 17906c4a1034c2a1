// Package webhook turns platform webhook deliveries into reconciliation
// scopes. Deliveries are at-least-once: every notification is deduplicated by
// platform event ID before it can trigger work, so redelivery storms collapse
// into a single pass.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// Disposition classifies what ingestion did with a notification
type Disposition string

const (
	// DispositionAccepted means the notification was new and a partial
	// reconciliation was queued
	DispositionAccepted Disposition = "ACCEPTED"
	// DispositionDuplicate means the event ID was already processed within
	// the dedup window; acknowledged without queuing work
	DispositionDuplicate Disposition = "DUPLICATE"
	// DispositionIgnored means the topic is not one the engine acts on;
	// acknowledged so the platform stops redelivering
	DispositionIgnored Disposition = "IGNORED"
	// DispositionRejected means the payload was malformed
	DispositionRejected Disposition = "REJECTED"
)

// Result reports the outcome of ingesting one notification
type Result struct {
	Disposition Disposition
	// Scope is the partial scope queued for reconciliation when accepted
	Scope syncdomain.Scope
	// Reason explains a rejection or ignore
	Reason string
}

// Notification is one webhook delivery after transport-level verification
type Notification struct {
	// Platform is the sending platform
	Platform syncdomain.PlatformCode
	// EventID is the platform's delivery identifier, used for dedup. May be
	// empty for platforms that identify events inside the payload.
	EventID string
	// Topic is the event topic from the transport headers, if any
	Topic string
	// Payload is the raw request body
	Payload []byte
}

// ---------------------------------------------------------------------------
// IngestService
// ---------------------------------------------------------------------------

// ShopifyTopicOrdersCreate is the only Shopify order topic acted on; other
// topics are acknowledged and ignored.
const (
	ShopifyTopicOrdersCreate     = "orders/create"
	ShopifyTopicProductsUpdate   = "products/update"
	ShopifyTopicInventoryUpdate  = "inventory_levels/update"
	ebayEventOrderCreated        = "ORDER_CREATED"
	ebayEventInventoryItemChange = "INVENTORY_ITEM_CHANGED"
)

// Trigger is the port into the scheduler: accepted notifications enqueue a
// debounced partial pass rather than reconciling inline.
type Trigger interface {
	Enqueue(scope syncdomain.Scope) error
}

// Config holds webhook ingestion configuration
type Config struct {
	// DedupTTL is the retention window for delivery event IDs
	DedupTTL time.Duration
}

// DefaultConfig returns the default ingestion configuration
func DefaultConfig() Config {
	return Config{DedupTTL: 24 * time.Hour}
}

// Validate checks the configuration for correctness
func (c Config) Validate() error {
	if c.DedupTTL <= 0 {
		return errors.New("webhook: dedup TTL must be positive")
	}
	return nil
}

// IngestService deduplicates webhook deliveries and converts them into
// partial reconciliation scopes.
type IngestService struct {
	dedup   syncdomain.IdempotencyStore
	trigger Trigger
	config  Config
	logger  *zap.Logger
}

// NewIngestService creates a webhook ingestion service
func NewIngestService(dedup syncdomain.IdempotencyStore, trigger Trigger, config Config, logger *zap.Logger) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		dedup:   dedup,
		trigger: trigger,
		config:  config,
		logger:  logger,
	}
}

// Ingest processes one verified webhook delivery. Parsing happens before
// dedup so a malformed payload never consumes its event ID; a later corrected
// redelivery under the same ID still goes through.
func (s *IngestService) Ingest(ctx context.Context, n Notification) (Result, error) {
	var (
		scope   syncdomain.Scope
		eventID string
		err     error
	)
	switch n.Platform {
	case syncdomain.PlatformCodeShopify:
		scope, eventID, err = s.parseShopify(n)
	case syncdomain.PlatformCodeEbay:
		scope, eventID, err = s.parseEbay(n)
	default:
		return Result{Disposition: DispositionRejected, Reason: "unsupported platform"}, nil
	}
	if err != nil {
		if errors.Is(err, errIgnoredTopic) {
			s.logger.Info("ignoring webhook topic",
				zap.String("platform", n.Platform.String()),
				zap.String("topic", n.Topic))
			return Result{Disposition: DispositionIgnored, Reason: n.Topic}, nil
		}
		s.logger.Warn("rejecting malformed webhook",
			zap.String("platform", n.Platform.String()),
			zap.String("topic", n.Topic),
			zap.Error(err))
		return Result{Disposition: DispositionRejected, Reason: err.Error()}, nil
	}

	key := n.Platform.String() + ":" + eventID
	fresh, err := s.dedup.MarkProcessed(ctx, key, s.config.DedupTTL)
	if err != nil {
		return Result{}, fmt.Errorf("webhook: dedup check failed: %w", err)
	}
	if !fresh {
		s.logger.Info("duplicate webhook delivery",
			zap.String("platform", n.Platform.String()),
			zap.String("event_id", eventID))
		return Result{Disposition: DispositionDuplicate}, nil
	}

	if err := s.trigger.Enqueue(scope); err != nil {
		return Result{}, fmt.Errorf("webhook: failed to queue reconciliation: %w", err)
	}
	s.logger.Info("webhook accepted",
		zap.String("platform", n.Platform.String()),
		zap.String("topic", n.Topic),
		zap.String("event_id", eventID))
	return Result{Disposition: DispositionAccepted, Scope: scope}, nil
}

var errIgnoredTopic = errors.New("webhook: topic not handled")

// ---------------------------------------------------------------------------
// Shopify
// ---------------------------------------------------------------------------

type shopifyOrderPayload struct {
	ID json.Number `json:"id"`
}

type shopifyProductPayload struct {
	SKU      string `json:"sku"`
	Variants []struct {
		SKU string `json:"sku"`
	} `json:"variants"`
}

func (s *IngestService) parseShopify(n Notification) (syncdomain.Scope, string, error) {
	switch n.Topic {
	case ShopifyTopicOrdersCreate:
		var payload shopifyOrderPayload
		if err := json.Unmarshal(n.Payload, &payload); err != nil {
			return syncdomain.Scope{}, "", fmt.Errorf("webhook: invalid order payload: %w", err)
		}
		orderID := payload.ID.String()
		if orderID == "" {
			return syncdomain.Scope{}, "", errors.New("webhook: order payload missing id")
		}
		return syncdomain.PartialScope(nil, []string{orderID}), s.eventID(n, orderID), nil

	case ShopifyTopicProductsUpdate, ShopifyTopicInventoryUpdate:
		var payload shopifyProductPayload
		if err := json.Unmarshal(n.Payload, &payload); err != nil {
			return syncdomain.Scope{}, "", fmt.Errorf("webhook: invalid product payload: %w", err)
		}
		skus := make([]string, 0, 1+len(payload.Variants))
		if payload.SKU != "" {
			skus = append(skus, payload.SKU)
		}
		for _, v := range payload.Variants {
			if v.SKU != "" {
				skus = append(skus, v.SKU)
			}
		}
		if len(skus) == 0 {
			return syncdomain.Scope{}, "", errors.New("webhook: product payload missing sku")
		}
		return syncdomain.PartialScope(skus, nil), s.eventID(n, n.Topic+":"+skus[0]), nil

	default:
		return syncdomain.Scope{}, "", errIgnoredTopic
	}
}

// eventID prefers the platform delivery ID header; the payload-derived
// fallback still dedups identical redeliveries when the header is absent.
func (s *IngestService) eventID(n Notification, fallback string) string {
	if n.EventID != "" {
		return n.EventID
	}
	return fallback
}

// ---------------------------------------------------------------------------
// eBay
// ---------------------------------------------------------------------------

type ebayNotification struct {
	NotificationID string `json:"notificationId"`
	EventType      string `json:"eventType"`
	OrderID        string `json:"orderId"`
	SKU            string `json:"sku"`
}

func (s *IngestService) parseEbay(n Notification) (syncdomain.Scope, string, error) {
	var payload ebayNotification
	if err := json.Unmarshal(n.Payload, &payload); err != nil {
		return syncdomain.Scope{}, "", fmt.Errorf("webhook: invalid notification payload: %w", err)
	}
	if payload.NotificationID == "" {
		return syncdomain.Scope{}, "", errors.New("webhook: notification missing notificationId")
	}

	switch payload.EventType {
	case ebayEventOrderCreated:
		if payload.OrderID == "" {
			return syncdomain.Scope{}, "", errors.New("webhook: order notification missing orderId")
		}
		return syncdomain.PartialScope(nil, []string{payload.OrderID}), payload.NotificationID, nil
	case ebayEventInventoryItemChange:
		if payload.SKU == "" {
			return syncdomain.Scope{}, "", errors.New("webhook: inventory notification missing sku")
		}
		return syncdomain.PartialScope([]string{payload.SKU}, nil), payload.NotificationID, nil
	default:
		return syncdomain.Scope{}, "", errIgnoredTopic
	}
}
