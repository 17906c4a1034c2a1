package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"

	"github.com/shoppyshops/shoppyshops.shop/internal/application/webhook"
)

// Shopify webhook transport headers
const (
	headerShopifyHmac      = "X-Shopify-Hmac-Sha256"
	headerShopifyTopic     = "X-Shopify-Topic"
	headerShopifyWebhookID = "X-Shopify-Webhook-Id"
)

// WebhookHandler receives platform webhook deliveries, verifies them at the
// transport level, and hands them to the ingest service.
type WebhookHandler struct {
	BaseHandler
	ingest        *webhook.IngestService
	shopifySecret string
	logger        *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(ingest *webhook.IngestService, shopifySecret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		ingest:        ingest,
		shopifySecret: shopifySecret,
		logger:        logger,
	}
}

// RegisterRoutes registers the webhook endpoints
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/shopify", h.Shopify)
		webhooks.POST("/ebay", h.Ebay)
	}
}

// Shopify handles a Shopify webhook delivery. Missing transport headers are
// 401: a request without them did not come through Shopify's delivery
// pipeline, so it is treated as unauthenticated rather than malformed.
func (h *WebhookHandler) Shopify(c *gin.Context) {
	signature := c.GetHeader(headerShopifyHmac)
	topic := c.GetHeader(headerShopifyTopic)
	if signature == "" || topic == "" {
		h.Unauthorized(c, "missing webhook headers")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "unreadable request body")
		return
	}

	if !webhook.VerifyShopifySignature(h.shopifySecret, body, signature) {
		h.logger.Warn("shopify webhook signature mismatch",
			zap.String("topic", topic))
		h.Unauthorized(c, "invalid webhook signature")
		return
	}

	h.dispatch(c, webhook.Notification{
		Platform: syncdomain.PlatformCodeShopify,
		EventID:  c.GetHeader(headerShopifyWebhookID),
		Topic:    topic,
		Payload:  body,
	})
}

// Ebay handles an eBay platform notification
func (h *WebhookHandler) Ebay(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "unreadable request body")
		return
	}

	h.dispatch(c, webhook.Notification{
		Platform: syncdomain.PlatformCodeEbay,
		Payload:  body,
	})
}

func (h *WebhookHandler) dispatch(c *gin.Context, n webhook.Notification) {
	result, err := h.ingest.Ingest(c.Request.Context(), n)
	if err != nil {
		h.logger.Error("webhook ingestion failed",
			zap.String("platform", n.Platform.String()),
			zap.Error(err))
		h.InternalError(c, "failed to process webhook")
		return
	}

	switch result.Disposition {
	case webhook.DispositionAccepted:
		h.Accepted(c, gin.H{
			"disposition": result.Disposition,
			"skus":        result.Scope.SKUs(),
			"order_ids":   result.Scope.OrderIDs(),
		})
	case webhook.DispositionDuplicate, webhook.DispositionIgnored:
		h.Success(c, gin.H{"disposition": result.Disposition, "reason": result.Reason})
	case webhook.DispositionRejected:
		h.BadRequest(c, result.Reason)
	default:
		h.InternalError(c, "unknown webhook disposition")
	}
}
