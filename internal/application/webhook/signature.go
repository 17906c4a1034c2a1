package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// VerifyShopifySignature checks a Shopify webhook signature: the
// base64-encoded HMAC-SHA256 of the raw request body under the shared
// webhook secret, delivered in the X-Shopify-Hmac-Sha256 header.
// Comparison is constant-time.
func VerifyShopifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ComputeShopifySignature produces the signature Shopify would send for a
// body. Used by the webhook simulator and tests.
func ComputeShopifySignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
