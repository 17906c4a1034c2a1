package platform

import "errors"

// EbayConfig holds configuration for the eBay Sell API integration
type EbayConfig struct {
	// AppID is the application ID (client ID) from the eBay developer program
	AppID string
	// CertID is the certificate ID (client secret)
	CertID string
	// DevID is the developer ID
	DevID string
	// UserToken is the OAuth user token authorizing seller account access
	UserToken string
	// Environment selects production or sandbox
	Environment string
	// APIBaseURL overrides the environment-derived base URL. Used for test
	// servers.
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// eBay environments
const (
	EbayEnvironmentProduction = "production"
	EbayEnvironmentSandbox    = "sandbox"

	// EbayProductionAPIURL is the production API endpoint
	EbayProductionAPIURL = "https://api.ebay.com"
	// EbaySandboxAPIURL is the sandbox API endpoint
	EbaySandboxAPIURL = "https://api.sandbox.ebay.com"
)

// Errors for eBay configuration
var (
	ErrEbayConfigMissingAppID     = errors.New("ebay: app ID is required")
	ErrEbayConfigMissingCertID    = errors.New("ebay: cert ID is required")
	ErrEbayConfigMissingUserToken = errors.New("ebay: user token is required")
	ErrEbayConfigBadEnvironment   = errors.New("ebay: environment must be production or sandbox")
)

// NewEbayConfig creates a new eBay configuration with defaults
func NewEbayConfig(appID, certID, devID, userToken string) *EbayConfig {
	return &EbayConfig{
		AppID:          appID,
		CertID:         certID,
		DevID:          devID,
		UserToken:      userToken,
		Environment:    EbayEnvironmentProduction,
		TimeoutSeconds: 30,
	}
}

// Validate validates the eBay configuration
func (c *EbayConfig) Validate() error {
	if c.AppID == "" {
		return ErrEbayConfigMissingAppID
	}
	if c.CertID == "" {
		return ErrEbayConfigMissingCertID
	}
	if c.UserToken == "" {
		return ErrEbayConfigMissingUserToken
	}
	if c.Environment == "" {
		c.Environment = EbayEnvironmentProduction
	}
	if c.Environment != EbayEnvironmentProduction && c.Environment != EbayEnvironmentSandbox {
		return ErrEbayConfigBadEnvironment
	}
	if c.APIBaseURL == "" {
		if c.Environment == EbayEnvironmentSandbox {
			c.APIBaseURL = EbaySandboxAPIURL
		} else {
			c.APIBaseURL = EbayProductionAPIURL
		}
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
