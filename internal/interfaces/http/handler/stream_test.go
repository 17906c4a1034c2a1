package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"

	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/event"
)

func TestStreamHandler_ReplaysRingAndStreamsUntilDisconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bus := event.NewBus(16, zap.NewNop())
	defer bus.Close()

	bus.Publish(syncdomain.NewSyncEvent(syncdomain.EventStarted, "pass started"))
	bus.Publish(syncdomain.NewSyncEvent(syncdomain.EventConflict, "drift held"))

	h := NewStreamHandler(bus, time.Minute, zap.NewNop())
	engine := gin.New()
	api := engine.Group("/api/v1")
	h.RegisterRoutes(api)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		engine.ServeHTTP(w, req)
		close(done)
	}()

	// Give the handler time to subscribe and flush the replay, then hang up
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream handler did not return after client disconnect")
	}

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: sync")
	assert.Contains(t, body, "STARTED")
	assert.Contains(t, body, "CONFLICT")
}

func TestStreamHandler_HeartbeatKeepsConnectionWarm(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bus := event.NewBus(16, zap.NewNop())
	defer bus.Close()

	h := NewStreamHandler(bus, 20*time.Millisecond, zap.NewNop())
	engine := gin.New()
	api := engine.Group("/api/v1")
	h.RegisterRoutes(api)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		engine.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(80 * time.Millisecond)
	cancel()
	<-done

	assert.Contains(t, w.Body.String(), "event: heartbeat")
}
