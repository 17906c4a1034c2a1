package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

// OrderResponse is the API projection of a stored order
type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	Platform      string              `json:"platform"`
	ExternalID    string              `json:"external_id"`
	Status        string              `json:"status"`
	Lines         []OrderLineResponse `json:"lines"`
	FailureReason string              `json:"failure_reason,omitempty"`
	ReceivedAt    time.Time           `json:"received_at"`
}

// OrderLineResponse is one order line in the API projection
type OrderLineResponse struct {
	SKU       string `json:"sku"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// OrderHandler exposes read access to locally stored orders
type OrderHandler struct {
	BaseHandler
	orders syncdomain.OrderRepository
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders syncdomain.OrderRepository, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{orders: orders, logger: logger}
}

// RegisterRoutes registers the order endpoints
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/orders", h.Recent)
}

// Recent returns the most recently received orders, newest first
func (h *OrderHandler) Recent(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	orders, err := h.orders.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list recent orders", zap.Error(err))
		h.InternalError(c, "failed to list orders")
		return
	}

	out := make([]OrderResponse, len(orders))
	for i, order := range orders {
		out[i] = toOrderResponse(order)
	}
	h.Success(c, gin.H{"orders": out})
}

func toOrderResponse(order *syncdomain.Order) OrderResponse {
	lines := make([]OrderLineResponse, len(order.Lines))
	for i, line := range order.Lines {
		lines[i] = OrderLineResponse{
			SKU:       line.SKU,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.String(),
		}
	}
	return OrderResponse{
		ID:            order.ID,
		Platform:      order.Platform.String(),
		ExternalID:    order.ExternalID,
		Status:        order.Status.String(),
		Lines:         lines,
		FailureReason: order.FailureReason,
		ReceivedAt:    order.ReceivedAt,
	}
}
