package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"

	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/event"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/ratelimit"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/scheduler"
	"github.com/shoppyshops/shoppyshops.shop/internal/interfaces/http/dto"
	"github.com/shoppyshops/shoppyshops.shop/internal/interfaces/http/middleware"
)

// TriggerSyncRequest selects the scope of a manually triggered pass.
// An empty request means a full pass.
type TriggerSyncRequest struct {
	SKUs     []string `json:"skus" binding:"omitempty,max=500,dive,required"`
	OrderIDs []string `json:"order_ids" binding:"omitempty,max=500,dive,required"`
}

// SyncHandler exposes manual triggering and status inspection of the
// reconciliation engine.
type SyncHandler struct {
	BaseHandler
	scheduler *scheduler.SyncScheduler
	limiter   *ratelimit.Client
	bus       *event.Bus
	logger    *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(sched *scheduler.SyncScheduler, limiter *ratelimit.Client, bus *event.Bus, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{
		scheduler: sched,
		limiter:   limiter,
		bus:       bus,
		logger:    logger,
	}
}

// RegisterRoutes registers the sync endpoints
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/trigger", h.Trigger)
		sync.GET("/status", h.Status)
		sync.GET("/events", h.Events)
	}
}

// Trigger queues a reconciliation pass immediately, bypassing the debounce
// window. Without skus or order IDs the pass is full.
func (h *SyncHandler) Trigger(c *gin.Context) {
	var req TriggerSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	scope := syncdomain.FullScope()
	if len(req.SKUs) > 0 || len(req.OrderIDs) > 0 {
		scope = syncdomain.PartialScope(req.SKUs, req.OrderIDs)
	}

	job, err := h.scheduler.TriggerNow(scope)
	if err != nil {
		if errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			h.ErrorWithCode(c, dto.ErrCodeUnavailable, "scheduler is not running")
			return
		}
		if errors.Is(err, scheduler.ErrJobQueueFull) {
			h.ErrorWithCode(c, dto.ErrCodeRateLimited, "sync job queue is full")
			return
		}
		h.InternalError(c, "failed to queue sync job")
		return
	}

	h.Accepted(c, gin.H{
		"job_id":  job.ID,
		"trigger": job.Trigger,
		"full":    scope.IsFull(),
	})
}

// Status reports scheduler liveness, recent jobs, and per-platform rate
// limiter state
func (h *SyncHandler) Status(c *gin.Context) {
	h.Success(c, gin.H{
		"running":     h.scheduler.IsRunning(),
		"recent_jobs": h.scheduler.History(20),
		"rate_limits": h.limiter.Status(),
		"subscribers": h.bus.SubscriberCount(),
	})
}

// Events returns the most recent sync events from the status ring
func (h *SyncHandler) Events(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	h.Success(c, gin.H{"events": h.bus.Recent(limit)})
}
