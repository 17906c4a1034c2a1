package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/ratelimit"
)

// metaInsightsResponse is the Graph API insights payload
type metaInsightsResponse struct {
	Data []metaInsight `json:"data"`
}

type metaInsight struct {
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	Impressions  string `json:"impressions"`
	Clicks       string `json:"clicks"`
	Spend        string `json:"spend"`
	Purchases    string `json:"purchases"`
	DateStart    string `json:"date_start"`
	DateStop     string `json:"date_stop"`
}

// MetaAdapter implements InsightsPlatform against the Meta Marketing API.
// Strictly read-only: the adapter exposes no write operations, matching the
// capability subset of its port.
type MetaAdapter struct {
	config     *MetaConfig
	httpClient *http.Client
	limiter    *ratelimit.Client
	logger     *zap.Logger
}

// NewMetaAdapter creates a new Meta adapter with the given configuration
func NewMetaAdapter(config *MetaConfig, limiter *ratelimit.Client, logger *zap.Logger) (*MetaAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter: limiter,
		logger:  logger,
	}, nil
}

// PlatformCode returns the platform code this adapter handles
func (a *MetaAdapter) PlatformCode() syncdomain.PlatformCode {
	return syncdomain.PlatformCodeMeta
}

// FetchCampaignInsights retrieves campaign performance for the ad account
func (a *MetaAdapter) FetchCampaignInsights(ctx context.Context) ([]syncdomain.CampaignInsight, error) {
	path := fmt.Sprintf("/%s/%s/insights?level=campaign&fields=%s",
		a.config.APIVersion,
		url.PathEscape(a.config.AdAccountID),
		url.QueryEscape("campaign_id,campaign_name,impressions,clicks,spend,purchases"))

	var respBody []byte
	err := a.execute(ctx, "fetch_campaign_insights", func(ctx context.Context) error {
		var err error
		respBody, err = a.doRequest(ctx, path)
		return err
	})
	if err != nil {
		return nil, err
	}

	var resp metaInsightsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, syncdomain.Permanent(a.PlatformCode(), "fetch_campaign_insights",
			fmt.Errorf("%w: %v", syncdomain.ErrInvalidResponse, err))
	}

	insights := make([]syncdomain.CampaignInsight, 0, len(resp.Data))
	for _, raw := range resp.Data {
		insight := syncdomain.CampaignInsight{
			CampaignID:   raw.CampaignID,
			CampaignName: raw.CampaignName,
			Impressions:  parseCount(raw.Impressions),
			Clicks:       parseCount(raw.Clicks),
			Purchases:    parseCount(raw.Purchases),
		}
		if spend, err := decimal.NewFromString(raw.Spend); err == nil {
			insight.Spend = spend
		}
		if start, err := time.Parse("2006-01-02", raw.DateStart); err == nil {
			insight.PeriodStart = start
		}
		if stop, err := time.Parse("2006-01-02", raw.DateStop); err == nil {
			insight.PeriodEnd = stop
		}
		insights = append(insights, insight)
	}
	return insights, nil
}

// parseCount tolerates the Graph API's string-encoded integers
func parseCount(raw string) int64 {
	n, _ := strconv.ParseInt(raw, 10, 64)
	return n
}

// CheckStatus verifies the ad account is reachable with a valid token
func (a *MetaAdapter) CheckStatus(ctx context.Context) error {
	path := fmt.Sprintf("/%s/%s?fields=id",
		a.config.APIVersion, url.PathEscape(a.config.AdAccountID))
	return a.execute(ctx, "check_status", func(ctx context.Context) error {
		_, err := a.doRequest(ctx, path)
		return err
	})
}

// execute routes an operation through the shared rate limiter when present
func (a *MetaAdapter) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if a.limiter == nil {
		return fn(ctx)
	}
	return a.limiter.Execute(ctx, a.PlatformCode(), op, fn)
}

// doRequest performs one Graph API read and classifies the raw outcome.
// The access token travels in the Authorization header and never appears in
// errors or logs.
func (a *MetaAdapter) doRequest(ctx context.Context, path string) ([]byte, error) {
	op := http.MethodGet + " " + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.APIBaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("meta: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.AccessToken)
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
		a.logger.Warn("meta request failed",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode))
		return nil, classifyStatus(a.PlatformCode(), op, resp.StatusCode)
	}
	return respBody, nil
}

// Ensure MetaAdapter implements InsightsPlatform
var _ syncdomain.InsightsPlatform = (*MetaAdapter)(nil)
