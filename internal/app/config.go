package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/freshcart/internal/domain/pricing"
)

// Guest storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (FRESHCART_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"Storefront listen address"`
	PublicURL string `default:"http://localhost:3000" usage:"Public URL of the storefront front-end" flag:"public-url"`
	Upstream  UpstreamConfig
	Guest     GuestConfig
	Cookie    CookieConfig
	Merge     MergeConfig
	Pricing   PricingConfig
	Events    EventsConfig
	Mirror    MirrorConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// UpstreamConfig points at the remote store API.
type UpstreamConfig struct {
	URL     string        `default:"https://ecommerce.routemisr.com/api/v1" usage:"Remote store API base URL" flag:"upstream-url"`
	Timeout time.Duration `default:"10s" usage:"Per-call timeout for the remote store API" flag:"upstream-timeout"`
}

// GuestConfig selects where guest carts and wishlists are kept.
type GuestConfig struct {
	Backend     string        `default:"memory" usage:"Guest storage backend: memory, postgres or redis" flag:"guest-backend"`
	DatabaseURL string        `usage:"PostgreSQL connection URL (FRESHCART_GUEST_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL    string        `usage:"Redis connection URL (FRESHCART_GUEST_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	TTL         time.Duration `default:"720h" usage:"Lifetime of idle guest state and the guest cookie" flag:"guest-ttl"`
}

// CookieConfig controls the session and guest cookies.
type CookieConfig struct {
	Secure    bool   `default:"false" usage:"Mark cookies Secure (HTTPS only)" flag:"cookie-secure"`
	Domain    string `usage:"Cookie domain"`
	TokenName string `default:"token" usage:"Session token cookie name"`
	GuestName string `default:"guest_id" usage:"Guest session cookie name"`
}

// MergeConfig controls the guest merge on sign-in.
type MergeConfig struct {
	Concurrency int `default:"4" usage:"Concurrent add calls while merging guest state" flag:"merge-concurrency"`
}

// PricingConfig holds shipping rules as decimal strings.
type PricingConfig struct {
	FreeShippingThreshold string `default:"500" usage:"Cart total at or above which shipping is free (0 disables)"`
	ShippingFee           string `default:"50" usage:"Shipping fee below the free shipping threshold"`
}

// Rules parses the pricing settings.
func (c PricingConfig) Rules() (pricing.Rules, error) {
	threshold, err := decimal.NewFromString(c.FreeShippingThreshold)
	if err != nil {
		return pricing.Rules{}, errors.Wrap(err, "free shipping threshold")
	}
	fee, err := decimal.NewFromString(c.ShippingFee)
	if err != nil {
		return pricing.Rules{}, errors.Wrap(err, "shipping fee")
	}
	if threshold.IsNegative() || fee.IsNegative() {
		return pricing.Rules{}, errors.New("pricing values must not be negative")
	}
	return pricing.Rules{FreeShippingThreshold: threshold, ShippingFee: fee}, nil
}

// EventsConfig enables Kafka publishing when brokers are set.
type EventsConfig struct {
	Brokers []string `usage:"Kafka brokers for storefront events (empty disables publishing)" flag:"kafka-brokers"`
	Topic   string   `default:"freshcart.events" usage:"Kafka topic for storefront events"`
}

// MirrorConfig controls the in-process cart and wishlist mirror.
type MirrorConfig struct {
	IdleTTL time.Duration `default:"30m" usage:"Evict mirrored state of users idle this long" flag:"mirror-idle-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (session cookies)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "FRESHCART",
		Files:     []string{"config.yaml", "/etc/freshcart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.Guest.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Guest.DatabaseURL == "" {
			return errors.New("database URL is required for the postgres guest backend: set FRESHCART_GUEST_DATABASE_URL or DATABASE_URL")
		}
	case BackendRedis:
		if c.Guest.RedisURL == "" {
			return errors.New("redis URL is required for the redis guest backend: set FRESHCART_GUEST_REDIS_URL or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown guest backend %q", c.Guest.Backend)
	}
	if c.Merge.Concurrency < 1 {
		return errors.New("merge concurrency must be at least 1")
	}
	if c.Upstream.URL == "" {
		return errors.New("upstream URL is required")
	}
	if _, err := c.Pricing.Rules(); err != nil {
		return errors.Wrap(err, "pricing")
	}
	if len(c.Events.Brokers) > 0 && c.Events.Topic == "" {
		return errors.New("events topic is required when brokers are set")
	}
	return nil
}

// ReturnURL is where the hosted card payment page sends shoppers back to.
func (c *Config) ReturnURL() string {
	return strings.TrimRight(c.PublicURL, "/") + "/allorders"
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's FRESHCART_-prefixed configuration.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.Guest.DatabaseURL == "" {
		c.Guest.DatabaseURL = getenv("DATABASE_URL")
	}
	if c.Guest.RedisURL == "" {
		c.Guest.RedisURL = getenv("REDIS_URL")
	}
	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
