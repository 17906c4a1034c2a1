package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"

	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/event"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/ratelimit"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/scheduler"
)

type noopExecutor struct{}

func (noopExecutor) Execute(_ context.Context, job *scheduler.SyncJob) error {
	job.Complete(0, 0, 0, 0)
	return nil
}

func newSyncRouter(t *testing.T, start bool) (*gin.Engine, *scheduler.SyncScheduler, *event.Bus) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := scheduler.DefaultConfig()
	cfg.FullSyncInterval = time.Hour
	sched, err := scheduler.NewSyncScheduler(cfg, noopExecutor{}, zap.NewNop())
	require.NoError(t, err)
	if start {
		require.NoError(t, sched.Start(context.Background()))
		t.Cleanup(func() { _ = sched.Stop(context.Background()) })
	}

	limiter, err := ratelimit.NewClient(ratelimit.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	bus := event.NewBus(16, zap.NewNop())
	t.Cleanup(bus.Close)

	h := NewSyncHandler(sched, limiter, bus, zap.NewNop())
	engine := gin.New()
	api := engine.Group("/api/v1")
	h.RegisterRoutes(api)
	return engine, sched, bus
}

func TestSyncHandler_TriggerFullPass(t *testing.T) {
	engine, _, _ := newSyncRouter(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/trigger", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			JobID string `json:"job_id"`
			Full  bool   `json:"full"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Data.Full)
	assert.NotEmpty(t, resp.Data.JobID)
}

func TestSyncHandler_TriggerPartialPass(t *testing.T) {
	engine, _, _ := newSyncRouter(t, true)

	body := []byte(`{"skus":["A1","B2"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/trigger", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"full":false`)
}

func TestSyncHandler_TriggerWhenStopped(t *testing.T) {
	engine, _, _ := newSyncRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/trigger", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSyncHandler_Status(t *testing.T) {
	engine, _, _ := newSyncRouter(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":true`)
	assert.Contains(t, w.Body.String(), "rate_limits")
}

func TestSyncHandler_Events(t *testing.T) {
	engine, _, bus := newSyncRouter(t, true)

	bus.Publish(syncdomain.NewSyncEvent(syncdomain.EventStarted, "pass started"))
	bus.Publish(syncdomain.NewSyncEvent(syncdomain.EventCompleted, "pass done"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/events?limit=1", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "COMPLETED")
	assert.NotContains(t, w.Body.String(), "STARTED")
}

func TestSyncHandler_EventsBadLimit(t *testing.T) {
	engine, _, _ := newSyncRouter(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/events?limit=zero", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
