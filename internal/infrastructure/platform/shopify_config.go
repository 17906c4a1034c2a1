package platform

import "errors"

// ShopifyConfig holds configuration for the Shopify Admin API integration
type ShopifyConfig struct {
	// APIKey is the app API key from the Shopify partner dashboard
	APIKey string
	// APISecret is the app API secret, also used to verify webhook signatures
	APISecret string
	// AccessToken is the Admin API access token for the shop
	AccessToken string
	// ShopURL is the myshopify domain, e.g. "example.myshopify.com"
	ShopURL string
	// APIVersion pins the Admin API version, e.g. "2024-10"
	APIVersion string
	// APIBaseURL overrides the derived https://<shop-url> base. Used for
	// sandbox and test servers.
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// ShopifyDefaultAPIVersion is the Admin API version used when none is configured
const ShopifyDefaultAPIVersion = "2024-10"

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingAccessToken = errors.New("shopify: access token is required")
	ErrShopifyConfigMissingShopURL     = errors.New("shopify: shop URL is required")
)

// NewShopifyConfig creates a new Shopify configuration with defaults
func NewShopifyConfig(apiKey, apiSecret, accessToken, shopURL string) *ShopifyConfig {
	return &ShopifyConfig{
		APIKey:         apiKey,
		APISecret:      apiSecret,
		AccessToken:    accessToken,
		ShopURL:        shopURL,
		APIVersion:     ShopifyDefaultAPIVersion,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Shopify configuration
func (c *ShopifyConfig) Validate() error {
	if c.AccessToken == "" {
		return ErrShopifyConfigMissingAccessToken
	}
	if c.ShopURL == "" {
		return ErrShopifyConfigMissingShopURL
	}
	if c.APIVersion == "" {
		c.APIVersion = ShopifyDefaultAPIVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
