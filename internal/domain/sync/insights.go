package sync

import (
	"time"

	"github.com/shopspring/decimal"
)

// CampaignInsight is one advertising campaign's performance snapshot from the
// Insights platform. Read-only data; the core never writes it anywhere.
type CampaignInsight struct {
	// CampaignID is the campaign's ID on the Insights platform
	CampaignID string `json:"campaign_id"`
	// CampaignName is the campaign's display name
	CampaignName string `json:"campaign_name"`
	// Impressions is the number of ad impressions in the period
	Impressions int64 `json:"impressions"`
	// Clicks is the number of ad clicks in the period
	Clicks int64 `json:"clicks"`
	// Spend is the advertising spend in the period
	Spend decimal.Decimal `json:"spend"`
	// Purchases is the number of attributed purchases in the period
	Purchases int64 `json:"purchases"`
	// PeriodStart is the start of the reporting period
	PeriodStart time.Time `json:"period_start"`
	// PeriodEnd is the end of the reporting period
	PeriodEnd time.Time `json:"period_end"`
}
