// Package platform contains the HTTP adapters for the external commerce
// platforms: Shopify as the authoritative catalog, eBay as the marketplace,
// Meta as the read-only insights source. Every adapter routes its calls
// through the shared rate-limited client and classifies raw HTTP outcomes
// into the transient/permanent error taxonomy.
package platform

import (
	"fmt"
	"net/http"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

const (
	// maxResponseSize limits the response body size to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024 // 10MB max response
)

// classifyStatus maps an HTTP status to the error taxonomy. Throttling and
// server-side failures are retryable; everything else in the 4xx range means
// the request itself is wrong and retrying cannot help.
func classifyStatus(platform syncdomain.PlatformCode, op string, status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return syncdomain.Transient(platform, op,
			fmt.Errorf("%w: HTTP %d", syncdomain.ErrRateLimitExceeded, status))
	case status >= 500:
		return syncdomain.Transient(platform, op,
			fmt.Errorf("%w: HTTP %d", syncdomain.ErrPlatformUnavailable, status))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return syncdomain.Permanent(platform, op,
			fmt.Errorf("%w: HTTP %d", syncdomain.ErrPlatformAuthFailed, status))
	default:
		return syncdomain.Permanent(platform, op,
			fmt.Errorf("%w: HTTP %d", syncdomain.ErrInvalidResponse, status))
	}
}

// transportError wraps a network-level failure (connection refused, timeout)
// as transient: the platform may come back.
func transportError(platform syncdomain.PlatformCode, op string, err error) error {
	return syncdomain.Transient(platform, op,
		fmt.Errorf("%w: %v", syncdomain.ErrPlatformUnavailable, err))
}
