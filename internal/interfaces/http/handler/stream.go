package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/event"
)

// StreamHandler serves the live sync event stream over Server-Sent Events.
// Each subscriber first receives the replayed ring buffer, then live events;
// envelopes carry a gap flag when history was dropped.
type StreamHandler struct {
	BaseHandler
	bus       *event.Bus
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(bus *event.Bus, heartbeat time.Duration, logger *zap.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{
		bus:       bus,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// RegisterRoutes registers the stream endpoint
func (h *StreamHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sync/stream", h.Stream)
}

// Stream subscribes the client to the status bus and streams envelopes until
// the client disconnects
func (h *StreamHandler) Stream(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	sub := h.bus.Subscribe()
	defer sub.Close()

	h.logger.Debug("sse client connected")

	sendEvent(c.Writer, "connected", fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()), "")
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			h.logger.Debug("sse client disconnected")
			return
		case <-ticker.C:
			sendEvent(c.Writer, "heartbeat", fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()), "")
			c.Writer.Flush()
		case env, ok := <-sub.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				h.logger.Error("failed to marshal sse envelope", zap.Error(err))
				continue
			}
			sendEvent(c.Writer, "sync", string(data), fmt.Sprintf("%d", env.Seq))
			c.Writer.Flush()
		}
	}
}

// sendEvent writes one SSE frame
func sendEvent(w io.Writer, eventName, data, id string) {
	if eventName != "" {
		fmt.Fprintf(w, "event: %s\n", eventName)
	}
	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
