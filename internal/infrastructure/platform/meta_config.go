package platform

import "errors"

// MetaConfig holds configuration for the Meta Marketing API integration.
// The integration is read-only: only insights endpoints are ever called.
type MetaConfig struct {
	// AppID is the Meta app ID
	AppID string
	// AppSecret is the Meta app secret
	AppSecret string
	// AccessToken is the Marketing API access token
	AccessToken string
	// AdAccountID is the ad account whose campaigns are reported, with the
	// "act_" prefix
	AdAccountID string
	// APIBaseURL overrides the Graph API base URL. Used for test servers.
	APIBaseURL string
	// APIVersion pins the Graph API version, e.g. "v21.0"
	APIVersion string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// MetaGraphAPIURL is the Graph API endpoint
	MetaGraphAPIURL = "https://graph.facebook.com"
	// MetaDefaultAPIVersion is the Graph API version used when none is configured
	MetaDefaultAPIVersion = "v21.0"
)

// Errors for Meta configuration
var (
	ErrMetaConfigMissingAccessToken = errors.New("meta: access token is required")
	ErrMetaConfigMissingAdAccount   = errors.New("meta: ad account ID is required")
)

// NewMetaConfig creates a new Meta configuration with defaults
func NewMetaConfig(appID, appSecret, accessToken, adAccountID string) *MetaConfig {
	return &MetaConfig{
		AppID:          appID,
		AppSecret:      appSecret,
		AccessToken:    accessToken,
		AdAccountID:    adAccountID,
		APIBaseURL:     MetaGraphAPIURL,
		APIVersion:     MetaDefaultAPIVersion,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Meta configuration
func (c *MetaConfig) Validate() error {
	if c.AccessToken == "" {
		return ErrMetaConfigMissingAccessToken
	}
	if c.AdAccountID == "" {
		return ErrMetaConfigMissingAdAccount
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = MetaGraphAPIURL
	}
	if c.APIVersion == "" {
		c.APIVersion = MetaDefaultAPIVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
