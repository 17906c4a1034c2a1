package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"

	"github.com/shoppyshops/shoppyshops.shop/internal/interfaces/http/dto"
)

// InsightsHandler exposes read-only advertising campaign insights
type InsightsHandler struct {
	BaseHandler
	insights syncdomain.InsightsPlatform
	logger   *zap.Logger
}

// NewInsightsHandler creates a new InsightsHandler
func NewInsightsHandler(insights syncdomain.InsightsPlatform, logger *zap.Logger) *InsightsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightsHandler{insights: insights, logger: logger}
}

// RegisterRoutes registers the insights endpoints
func (h *InsightsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/insights/campaigns", h.Campaigns)
}

// Campaigns fetches campaign performance from the Insights platform. The
// data is passed through, never persisted or acted upon.
func (h *InsightsHandler) Campaigns(c *gin.Context) {
	insights, err := h.insights.FetchCampaignInsights(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to fetch campaign insights", zap.Error(err))
		if errors.Is(err, syncdomain.ErrPlatformAuthFailed) {
			h.Unauthorized(c, "insights platform rejected credentials")
			return
		}
		if syncdomain.IsTransient(err) {
			h.ErrorWithCode(c, dto.ErrCodeUnavailable, "insights platform unavailable")
			return
		}
		h.InternalError(c, "failed to fetch campaign insights")
		return
	}
	h.Success(c, gin.H{"campaigns": insights})
}
