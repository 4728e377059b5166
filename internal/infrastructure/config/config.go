package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/revdash/backend/internal/domain/sales"
)

// Cache backends
const (
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Providers ProvidersConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
	Demo      DemoConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string
	Env      string
	Timezone string // IANA name used for day and month buckets; empty = local
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// ProviderConfig holds one sales platform's credentials and HTTP settings
type ProviderConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// ProvidersConfig holds every supported sales platform
type ProvidersConfig struct {
	LemonSqueezy ProviderConfig
	Gumroad      ProviderConfig
	Stripe       ProviderConfig
}

// CacheConfig selects and configures the offline cache backend
type CacheConfig struct {
	Backend        string // sqlite, redis, memory
	SQLitePath     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	DBSlowQueryThresh time.Duration
}

// DemoConfig switches the CLI to a JSON fixture instead of live providers
type DemoConfig struct {
	Enabled     bool
	FixturePath string
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with REVDASH_ prefix (e.g. REVDASH_PROVIDERS_STRIPE_API_KEY)
// 2. configFile, or config.toml found in ., $HOME/.revdash or /etc/revdash
// 3. Built-in defaults
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.revdash")
		v.AddConfigPath("/etc/revdash")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("REVDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Timezone: v.GetString("app.timezone"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Providers: ProvidersConfig{
			LemonSqueezy: readProvider(v, sales.ProviderLemonSqueezy),
			Gumroad:      readProvider(v, sales.ProviderGumroad),
			Stripe:       readProvider(v, sales.ProviderStripe),
		},
		Cache: CacheConfig{
			Backend:        v.GetString("cache.backend"),
			SQLitePath:     v.GetString("cache.sqlite_path"),
			RedisAddr:      v.GetString("cache.redis_addr"),
			RedisPassword:  v.GetString("cache.redis_password"),
			RedisDB:        v.GetInt("cache.redis_db"),
			RedisKeyPrefix: v.GetString("cache.redis_key_prefix"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Demo: DemoConfig{
			Enabled:     v.GetBool("demo.enabled"),
			FixturePath: v.GetString("demo.fixture_path"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readProvider(v *viper.Viper, p sales.ProviderType) ProviderConfig {
	prefix := "providers." + p.String() + "."
	return ProviderConfig{
		APIKey:            strings.TrimSpace(v.GetString(prefix + "api_key")),
		BaseURL:           v.GetString(prefix + "base_url"),
		Timeout:           v.GetDuration(prefix + "timeout"),
		RequestsPerSecond: v.GetFloat64(prefix + "requests_per_second"),
		Burst:             v.GetInt(prefix + "burst"),
	}
}

// applyDefaults sets default values for any empty config fields.
// Provider HTTP settings stay zero so each adapter applies its own defaults.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "revdash"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheBackendSQLite
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = DefaultSQLitePath()
	}
	if cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = "localhost:6379"
	}
	if cfg.Cache.RedisKeyPrefix == "" {
		cfg.Cache.RedisKeyPrefix = "revdash:"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// DefaultSQLitePath returns the cache file shared by revdash and
// revdash-summary: <user cache dir>/revdash/cache.db
func DefaultSQLitePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "revdash-cache.db"
	}
	return filepath.Join(dir, "revdash", "cache.db")
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Cache.Backend {
	case CacheBackendSQLite, CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("cache.backend must be one of sqlite, redis, memory, got %q", c.Cache.Backend)
	}
	if c.Cache.RedisDB < 0 {
		return fmt.Errorf("cache.redis_db cannot be negative")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}

	for _, p := range sales.AllProviders() {
		pc := c.Provider(p)
		if pc.RequestsPerSecond < 0 {
			return fmt.Errorf("providers.%s.requests_per_second cannot be negative", p)
		}
		if pc.Timeout < 0 {
			return fmt.Errorf("providers.%s.timeout cannot be negative", p)
		}
	}

	if c.Demo.Enabled && c.Demo.FixturePath == "" {
		return fmt.Errorf("demo.fixture_path is required when demo.enabled is true")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// Location returns the time zone used for calendar buckets
func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.App.Timezone)
}

// Provider returns the configuration of p
func (c *Config) Provider(p sales.ProviderType) ProviderConfig {
	switch p {
	case sales.ProviderLemonSqueezy:
		return c.Providers.LemonSqueezy
	case sales.ProviderGumroad:
		return c.Providers.Gumroad
	case sales.ProviderStripe:
		return c.Providers.Stripe
	default:
		return ProviderConfig{}
	}
}

// APIKey implements sales.CredentialSource
func (c *Config) APIKey(p sales.ProviderType) (string, bool) {
	key := c.Provider(p).APIKey
	return key, key != ""
}

var _ sales.CredentialSource = (*Config)(nil)
