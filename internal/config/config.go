package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the finance service
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Shopify   ShopifyConfig   `mapstructure:"shopify"`
	Report    ReportConfig    `mapstructure:"report"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// ShopifyConfig holds Shopify Admin API configuration. The access token is
// not configured here; callers pass it per request.
type ShopifyConfig struct {
	ShopDomain     string        `mapstructure:"shop_domain"`
	APIVersion     string        `mapstructure:"api_version"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxOrders      int           `mapstructure:"max_orders"`
	MaxCustomers   int           `mapstructure:"max_customers"`
	MaxProducts    int           `mapstructure:"max_products"`
	RateRPS        float64       `mapstructure:"rate_rps"`
	RateBurst      int           `mapstructure:"rate_burst"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
}

// ReportConfig holds metrics report settings
type ReportConfig struct {
	Timezone        string        `mapstructure:"timezone"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`
}

// DatabaseConfig holds database configuration for the fetch-run log
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// Enabled reports whether a database was configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port, or "" when Redis is not configured.
func (c RedisConfig) Addr() string {
	if c.Host == "" {
		return ""
	}
	return c.Host + ":" + c.Port
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// SentryConfig holds Sentry error tracking configuration
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
	Release     string `mapstructure:"release"`
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// Origins splits the comma separated origin list.
func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// RateLimitConfig holds the inbound per-client request budget
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.AutomaticEnv()
	v.SetEnvPrefix("")

	_ = v.BindEnv("app.name", "APP_NAME")
	_ = v.BindEnv("app.env", "APP_ENV")
	_ = v.BindEnv("app.port", "APP_PORT", "PORT")

	// Shopify
	_ = v.BindEnv("shopify.shop_domain", "SHOPIFY_SHOP_NAME")
	_ = v.BindEnv("shopify.api_version", "SHOPIFY_API_VERSION")
	_ = v.BindEnv("shopify.webhook_secret", "SHOPIFY_WEBHOOK_SECRET", "SHOPIFY_API_SECRET")
	_ = v.BindEnv("shopify.request_timeout", "SHOPIFY_REQUEST_TIMEOUT")
	_ = v.BindEnv("shopify.max_orders", "SHOPIFY_MAX_ORDERS")
	_ = v.BindEnv("shopify.max_customers", "SHOPIFY_MAX_CUSTOMERS")
	_ = v.BindEnv("shopify.max_products", "SHOPIFY_MAX_PRODUCTS")
	_ = v.BindEnv("shopify.rate_rps", "SHOPIFY_RATE_RPS")
	_ = v.BindEnv("shopify.rate_burst", "SHOPIFY_RATE_BURST")
	_ = v.BindEnv("shopify.retry_attempts", "SHOPIFY_RETRY_ATTEMPTS")

	// Report
	_ = v.BindEnv("report.timezone", "REPORT_TIMEZONE")
	_ = v.BindEnv("report.cache_ttl", "CACHE_TTL")
	_ = v.BindEnv("report.upstream_timeout", "UPSTREAM_TIMEOUT")

	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.name", "DB_NAME")
	_ = v.BindEnv("database.ssl_mode", "DB_SSLMODE")

	// Redis
	_ = v.BindEnv("redis.host", "REDIS_HOST")
	_ = v.BindEnv("redis.port", "REDIS_PORT")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")

	_ = v.BindEnv("nats.url", "NATS_URL")

	_ = v.BindEnv("jwt.secret", "JWT_SECRET")

	_ = v.BindEnv("sentry.dsn", "SENTRY_DSN")
	_ = v.BindEnv("sentry.environment", "APP_ENV")
	_ = v.BindEnv("sentry.release", "APP_VERSION")

	_ = v.BindEnv("cors.allowed_origins", "ALLOWED_ORIGINS")

	_ = v.BindEnv("rate_limit.rps", "RATE_LIMIT_RPS")
	_ = v.BindEnv("rate_limit.burst", "RATE_LIMIT_BURST")

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that would otherwise fail at request time.
func (c *Config) Validate() error {
	if _, err := c.Report.Location(); err != nil {
		return fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", c.Report.Timezone, err)
	}
	if c.Shopify.MaxOrders <= 0 || c.Shopify.MaxCustomers <= 0 {
		return fmt.Errorf("shopify max orders and max customers must be positive")
	}
	return nil
}

// Location resolves the configured report timezone.
func (c ReportConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "service-finance")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "4000")

	// Shopify
	v.SetDefault("shopify.api_version", "2024-01")
	v.SetDefault("shopify.request_timeout", 30*time.Second)
	v.SetDefault("shopify.max_orders", 250)
	v.SetDefault("shopify.max_customers", 250)
	v.SetDefault("shopify.max_products", 250)
	v.SetDefault("shopify.rate_rps", 2.0)
	v.SetDefault("shopify.rate_burst", 40)
	v.SetDefault("shopify.retry_attempts", 3)

	// Report
	v.SetDefault("report.timezone", "UTC")
	v.SetDefault("report.cache_ttl", 5*time.Minute)
	v.SetDefault("report.upstream_timeout", 20*time.Second)

	// Database (empty host disables the fetch-run log)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis (empty host disables the report cache)
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "")

	v.SetDefault("cors.allowed_origins", "http://localhost:5173,http://localhost:3000")

	v.SetDefault("rate_limit.rps", 5.0)
	v.SetDefault("rate_limit.burst", 20)

	// Sentry
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.release", "1.0.0")
}
