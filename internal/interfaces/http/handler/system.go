package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

// Pinger reports database liveness
type Pinger interface {
	Ping() error
}

// StatusChecker is the common surface of all platform adapters used by the
// health endpoint
type StatusChecker interface {
	PlatformCode() syncdomain.PlatformCode
	CheckStatus(ctx context.Context) error
}

// SystemHandler exposes liveness and connectivity checks
type SystemHandler struct {
	BaseHandler
	db        Pinger
	platforms []StatusChecker
	logger    *zap.Logger
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db Pinger, platforms []StatusChecker, logger *zap.Logger) *SystemHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemHandler{db: db, platforms: platforms, logger: logger}
}

// RegisterRoutes registers the system endpoints
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	rg.GET("/health/platforms", h.Platforms)
}

// Health reports process and database liveness
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			h.logger.Error("database ping failed", zap.Error(err))
			status = "degraded"
			dbStatus = "unreachable"
		}
	}
	h.Success(c, gin.H{
		"status":    status,
		"database":  dbStatus,
		"timestamp": time.Now().UTC(),
	})
}

// Platforms checks connectivity and credentials against each platform.
// Failures are reported per platform; one unreachable platform does not
// mask the others.
func (h *SystemHandler) Platforms(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.platforms))
	for _, p := range h.platforms {
		if err := p.CheckStatus(ctx); err != nil {
			h.logger.Warn("platform status check failed",
				zap.String("platform", p.PlatformCode().String()),
				zap.Error(err))
			results[p.PlatformCode().String()] = err.Error()
			continue
		}
		results[p.PlatformCode().String()] = "ok"
	}
	h.Success(c, gin.H{"platforms": results})
}
