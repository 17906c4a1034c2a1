// Package config loads application configuration from a TOML file and
// environment variables. Platform credentials are only ever carried in
// memory: they are never logged and never written back out.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Sync      SyncConfig
	RateLimit RateLimitConfig
	Shopify   ShopifyConfig
	Ebay      EbayConfig
	Meta      MetaConfig
	Event     EventConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	// Driver selects postgres or sqlite
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	// Path is the database file for the sqlite driver
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings for distributed webhook dedup.
// When disabled, dedup falls back to the in-memory store.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// SyncConfig holds reconciliation engine and scheduler settings
type SyncConfig struct {
	// FullSyncInterval is how often a full pass runs
	FullSyncInterval time.Duration
	// DebounceWindow is how long webhook scopes accumulate before one
	// merged partial pass
	DebounceWindow time.Duration
	// OrderLookback bounds how far back new orders are fetched
	OrderLookback time.Duration
	// DedupTTL is the webhook event ID retention window
	DedupTTL time.Duration
	// MaxConcurrentJobs is the scheduler worker pool size
	MaxConcurrentJobs int
	// JobTimeout bounds one reconciliation pass
	JobTimeout time.Duration
	// QueueCapacity is the pending job queue size
	QueueCapacity int
}

// PlatformBucket holds one platform's token bucket settings
type PlatformBucket struct {
	QPS   float64
	Burst int
}

// RateLimitConfig holds the per-platform rate limiting and retry settings
type RateLimitConfig struct {
	Shopify     PlatformBucket
	Ebay        PlatformBucket
	Meta        PlatformBucket
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	WaitCeiling time.Duration
}

// ShopifyConfig holds Shopify Admin API credentials
type ShopifyConfig struct {
	APIKey        string
	APISecret     string
	AccessToken   string
	ShopURL       string
	APIVersion    string
	WebhookSecret string
}

// EbayConfig holds eBay Sell API credentials
type EbayConfig struct {
	AppID       string
	CertID      string
	DevID       string
	UserToken   string
	Environment string
}

// MetaConfig holds Meta Marketing API credentials
type MetaConfig struct {
	AppID       string
	AppSecret   string
	AccessToken string
	AdAccountID string
}

// EventConfig holds status event bus settings
type EventConfig struct {
	// RingCapacity is the bounded replay buffer size
	RingCapacity int
	// SSEHeartbeat is the keep-alive interval on the stream endpoint
	SSEHeartbeat time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHOPPY_ prefix (e.g., SHOPPY_SHOPIFY_ACCESS_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SHOPPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			FullSyncInterval:  v.GetDuration("sync.full_sync_interval"),
			DebounceWindow:    v.GetDuration("sync.debounce_window"),
			OrderLookback:     v.GetDuration("sync.order_lookback"),
			DedupTTL:          v.GetDuration("sync.dedup_ttl"),
			MaxConcurrentJobs: v.GetInt("sync.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("sync.job_timeout"),
			QueueCapacity:     v.GetInt("sync.queue_capacity"),
		},
		RateLimit: RateLimitConfig{
			Shopify: PlatformBucket{
				QPS:   v.GetFloat64("ratelimit.shopify_qps"),
				Burst: v.GetInt("ratelimit.shopify_burst"),
			},
			Ebay: PlatformBucket{
				QPS:   v.GetFloat64("ratelimit.ebay_qps"),
				Burst: v.GetInt("ratelimit.ebay_burst"),
			},
			Meta: PlatformBucket{
				QPS:   v.GetFloat64("ratelimit.meta_qps"),
				Burst: v.GetInt("ratelimit.meta_burst"),
			},
			MaxRetries:  v.GetInt("ratelimit.max_retries"),
			BaseDelay:   v.GetDuration("ratelimit.base_delay"),
			MaxDelay:    v.GetDuration("ratelimit.max_delay"),
			WaitCeiling: v.GetDuration("ratelimit.wait_ceiling"),
		},
		Shopify: ShopifyConfig{
			APIKey:        v.GetString("shopify.api_key"),
			APISecret:     v.GetString("shopify.api_secret"),
			AccessToken:   v.GetString("shopify.access_token"),
			ShopURL:       v.GetString("shopify.shop_url"),
			APIVersion:    v.GetString("shopify.api_version"),
			WebhookSecret: v.GetString("shopify.webhook_secret"),
		},
		Ebay: EbayConfig{
			AppID:       v.GetString("ebay.app_id"),
			CertID:      v.GetString("ebay.cert_id"),
			DevID:       v.GetString("ebay.dev_id"),
			UserToken:   v.GetString("ebay.user_token"),
			Environment: v.GetString("ebay.environment"),
		},
		Meta: MetaConfig{
			AppID:       v.GetString("meta.app_id"),
			AppSecret:   v.GetString("meta.app_secret"),
			AccessToken: v.GetString("meta.access_token"),
			AdAccountID: v.GetString("meta.ad_account_id"),
		},
		Event: EventConfig{
			RingCapacity: v.GetInt("event.ring_capacity"),
			SSEHeartbeat: v.GetDuration("event.sse_heartbeat"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shoppyshops"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8000"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "shoppyshops"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "shoppyshops.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB
	}
	if cfg.Sync.FullSyncInterval == 0 {
		cfg.Sync.FullSyncInterval = 5 * time.Minute
	}
	if cfg.Sync.DebounceWindow == 0 {
		cfg.Sync.DebounceWindow = 2 * time.Second
	}
	if cfg.Sync.OrderLookback == 0 {
		cfg.Sync.OrderLookback = 24 * time.Hour
	}
	if cfg.Sync.DedupTTL == 0 {
		cfg.Sync.DedupTTL = 24 * time.Hour
	}
	if cfg.Sync.MaxConcurrentJobs == 0 {
		cfg.Sync.MaxConcurrentJobs = 2
	}
	if cfg.Sync.JobTimeout == 0 {
		cfg.Sync.JobTimeout = 10 * time.Minute
	}
	if cfg.Sync.QueueCapacity == 0 {
		cfg.Sync.QueueCapacity = 100
	}
	if cfg.RateLimit.Shopify.QPS == 0 {
		cfg.RateLimit.Shopify.QPS = 4
	}
	if cfg.RateLimit.Shopify.Burst == 0 {
		cfg.RateLimit.Shopify.Burst = 8
	}
	if cfg.RateLimit.Ebay.QPS == 0 {
		cfg.RateLimit.Ebay.QPS = 3
	}
	if cfg.RateLimit.Ebay.Burst == 0 {
		cfg.RateLimit.Ebay.Burst = 5
	}
	if cfg.RateLimit.Meta.QPS == 0 {
		cfg.RateLimit.Meta.QPS = 2
	}
	if cfg.RateLimit.Meta.Burst == 0 {
		cfg.RateLimit.Meta.Burst = 2
	}
	if cfg.RateLimit.MaxRetries == 0 {
		cfg.RateLimit.MaxRetries = 4
	}
	if cfg.RateLimit.BaseDelay == 0 {
		cfg.RateLimit.BaseDelay = 200 * time.Millisecond
	}
	if cfg.RateLimit.MaxDelay == 0 {
		cfg.RateLimit.MaxDelay = 10 * time.Second
	}
	if cfg.RateLimit.WaitCeiling == 0 {
		cfg.RateLimit.WaitCeiling = 30 * time.Second
	}
	if cfg.Ebay.Environment == "" {
		cfg.Ebay.Environment = "production"
	}
	if cfg.Event.RingCapacity == 0 {
		cfg.Event.RingCapacity = 200
	}
	if cfg.Event.SSEHeartbeat == 0 {
		cfg.Event.SSEHeartbeat = 30 * time.Second
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
}

// validate checks configuration consistency
func (c *Config) validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.RateLimit.Shopify.QPS < 0 || c.RateLimit.Ebay.QPS < 0 || c.RateLimit.Meta.QPS < 0 {
		return errors.New("config: rate limit qps must not be negative")
	}
	if c.Sync.DebounceWindow >= c.Sync.FullSyncInterval {
		return errors.New("config: debounce window must be shorter than the full sync interval")
	}
	if c.IsProduction() {
		if c.Shopify.AccessToken == "" || c.Shopify.ShopURL == "" {
			return errors.New("config: shopify credentials are required in production")
		}
		if c.Ebay.UserToken == "" {
			return errors.New("config: ebay credentials are required in production")
		}
	}
	return nil
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the PostgreSQL connection string with proper escaping
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Redacted returns a loggable copy of the config with every credential
// masked. This is the only form of the config that may reach a log line.
func (c *Config) Redacted() map[string]string {
	return map[string]string{
		"app.name":         c.App.Name,
		"app.env":          c.App.Env,
		"app.port":         c.App.Port,
		"database.driver":  c.Database.Driver,
		"shopify.shop_url": c.Shopify.ShopURL,
		"shopify.token":    mask(c.Shopify.AccessToken),
		"ebay.environment": c.Ebay.Environment,
		"ebay.token":       mask(c.Ebay.UserToken),
		"meta.account":     c.Meta.AdAccountID,
		"meta.token":       mask(c.Meta.AccessToken),
	}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}
