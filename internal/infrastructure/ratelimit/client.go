// Package ratelimit provides the rate-limited execution layer between the
// platform adapters and the network: per-platform token buckets, bounded
// token waits, and exponential backoff with jitter on transient failures.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// BucketConfig configures one platform's token bucket
type BucketConfig struct {
	// QPS is the sustained request rate
	QPS float64
	// Burst is the bucket capacity
	Burst int
}

// Config holds rate-limited client configuration
type Config struct {
	// Buckets maps each platform to its token bucket settings
	Buckets map[syncdomain.PlatformCode]BucketConfig
	// MaxRetries is the maximum number of retries for transient failures
	MaxRetries int
	// BaseDelay is the first retry delay (doubled each retry, plus jitter)
	BaseDelay time.Duration
	// MaxDelay caps the retry delay
	MaxDelay time.Duration
	// WaitCeiling bounds how long a call may wait for a token before failing
	// with RateLimitExceeded
	WaitCeiling time.Duration
}

// DefaultConfig returns defaults sized for the three platforms' published
// API limits
func DefaultConfig() Config {
	return Config{
		Buckets: map[syncdomain.PlatformCode]BucketConfig{
			syncdomain.PlatformCodeShopify: {QPS: 4, Burst: 8},
			syncdomain.PlatformCodeEbay:    {QPS: 3, Burst: 5},
			syncdomain.PlatformCodeMeta:    {QPS: 2, Burst: 2},
		},
		MaxRetries:  4,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		WaitCeiling: 30 * time.Second,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("ratelimit: max retries must be non-negative")
	}
	if c.BaseDelay <= 0 || c.MaxDelay < c.BaseDelay {
		return errors.New("ratelimit: invalid retry delays")
	}
	if c.WaitCeiling <= 0 {
		return errors.New("ratelimit: wait ceiling must be positive")
	}
	for code, bucket := range c.Buckets {
		if !code.IsValid() {
			return fmt.Errorf("ratelimit: unknown platform %q", code)
		}
		if bucket.QPS <= 0 || bucket.Burst <= 0 {
			return fmt.Errorf("ratelimit: invalid bucket for %s", code)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// platformState tracks per-platform health for the status surface
type platformState struct {
	mu          sync.RWMutex
	lastSuccess time.Time
	lastError   string
}

// Client multiplexes many logical callers over one token-bucket-gated queue
// per platform. All I/O suspension happens here: an empty bucket suspends the
// caller up to WaitCeiling, and transient failures are retried with
// exponential backoff plus jitter before surfacing.
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	config Config
	logger *zap.Logger

	mu       sync.Mutex
	limiters map[syncdomain.PlatformCode]*rate.Limiter
	states   map[syncdomain.PlatformCode]*platformState
}

// NewClient creates a rate-limited client with the given configuration
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:   config,
		logger:   logger,
		limiters: make(map[syncdomain.PlatformCode]*rate.Limiter, len(config.Buckets)),
		states:   make(map[syncdomain.PlatformCode]*platformState, len(config.Buckets)),
	}
	for code, bucket := range config.Buckets {
		c.limiters[code] = rate.NewLimiter(rate.Limit(bucket.QPS), bucket.Burst)
		c.states[code] = &platformState{}
	}
	return c, nil
}

// limiterFor returns the platform's limiter, creating a conservative default
// bucket for platforms missing from the configuration.
func (c *Client) limiterFor(platform syncdomain.PlatformCode) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.limiters[platform]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(1), 1)
	c.limiters[platform] = l
	c.states[platform] = &platformState{}
	return l
}

func (c *Client) stateFor(platform syncdomain.PlatformCode) *platformState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[platform]; ok {
		return s
	}
	s := &platformState{}
	c.states[platform] = s
	return s
}

// Execute runs op under the platform's token bucket. Transient failures are
// retried up to MaxRetries with exponential backoff plus jitter; on
// exhaustion the error is reclassified Permanent as RetriesExhausted.
// Permanent failures surface immediately.
func (c *Client) Execute(ctx context.Context, platform syncdomain.PlatformCode, opName string, op func(ctx context.Context) error) error {
	limiter := c.limiterFor(platform)
	state := c.stateFor(platform)

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := c.acquire(ctx, platform, opName, limiter); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			state.mu.Lock()
			state.lastSuccess = time.Now()
			state.lastError = ""
			state.mu.Unlock()
			return nil
		}

		state.mu.Lock()
		state.lastError = lastErr.Error()
		state.mu.Unlock()

		if !syncdomain.IsTransient(lastErr) {
			return lastErr
		}
		if attempt >= c.config.MaxRetries {
			c.logger.Warn("retries exhausted",
				zap.String("platform", platform.String()),
				zap.String("op", opName),
				zap.Int("attempts", attempt+1),
				zap.Error(lastErr),
			)
			return syncdomain.Permanent(platform, opName,
				fmt.Errorf("%w after %d attempts: %v", syncdomain.ErrRetriesExhausted, attempt+1, lastErr))
		}

		delay := c.backoff(attempt)
		c.logger.Debug("transient failure, backing off",
			zap.String("platform", platform.String()),
			zap.String("op", opName),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// acquire waits for a token, bounded by WaitCeiling. The caller's own
// deadline still applies if it is sooner.
func (c *Client) acquire(ctx context.Context, platform syncdomain.PlatformCode, opName string, limiter *rate.Limiter) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.config.WaitCeiling)
	defer cancel()

	if err := limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return syncdomain.Transient(platform, opName, syncdomain.ErrRateLimitExceeded)
	}
	return nil
}

// backoff computes the retry delay for an attempt: BaseDelay * 2^attempt,
// capped at MaxDelay, with up to 50% random jitter added.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.config.BaseDelay << uint(attempt)
	if delay > c.config.MaxDelay || delay <= 0 {
		delay = c.config.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}

// ---------------------------------------------------------------------------
// Status Surface
// ---------------------------------------------------------------------------

// BucketStatus reports one platform's limiter health for the operator UI
type BucketStatus struct {
	Platform    syncdomain.PlatformCode `json:"platform"`
	Tokens      float64                 `json:"tokens"`
	LastSuccess time.Time               `json:"last_success"`
	LastError   string                  `json:"last_error,omitempty"`
}

// Status returns the current bucket status for every configured platform
func (c *Client) Status() []BucketStatus {
	c.mu.Lock()
	codes := make([]syncdomain.PlatformCode, 0, len(c.limiters))
	for code := range c.limiters {
		codes = append(codes, code)
	}
	c.mu.Unlock()

	statuses := make([]BucketStatus, 0, len(codes))
	for _, code := range codes {
		limiter := c.limiterFor(code)
		state := c.stateFor(code)
		state.mu.RLock()
		statuses = append(statuses, BucketStatus{
			Platform:    code,
			Tokens:      limiter.Tokens(),
			LastSuccess: state.lastSuccess,
			LastError:   state.lastError,
		})
		state.mu.RUnlock()
	}
	return statuses
}
