package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/revdash/backend/internal/infrastructure/config"
	"github.com/revdash/backend/internal/infrastructure/telemetry"
)

// StoreFactory creates the configured KeyValueStore
type StoreFactory struct {
	cfg                   config.CacheConfig
	logLevel              string
	dbTracing             telemetry.DBTracingConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory and the stores it builds
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithLogLevel sets the level of SQL logs from the sqlite store
func WithLogLevel(level string) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logLevel = level
	}
}

// WithDBTracing enables otelgorm tracing on the sqlite store
func WithDBTracing(cfg telemetry.DBTracingConfig) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.dbTracing = cfg
	}
}

// WithInMemoryFallback controls whether an unavailable backend degrades to
// an in-memory store. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.CacheConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		dbTracing:             telemetry.DefaultDBTracingConfig(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore builds the configured backend. When it cannot be opened and
// fallback is allowed, an in-memory store is returned with a warning.
func (f *StoreFactory) CreateStore() (KeyValueStore, error) {
	store, err := f.create()
	if err == nil {
		f.logger.Debug("cache store ready", zap.String("backend", f.cfg.Backend))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, err
	}
	f.logger.Warn("cache backend unavailable, falling back to in-memory store; the snapshot will not survive restarts",
		zap.String("backend", f.cfg.Backend),
		zap.Error(err),
	)
	return NewMemoryStore(), nil
}

func (f *StoreFactory) create() (KeyValueStore, error) {
	switch f.cfg.Backend {
	case config.CacheBackendSQLite, "":
		return NewSQLiteStore(SQLiteConfig{
			Path:      f.cfg.SQLitePath,
			LogLevel:  f.logLevel,
			DBTracing: f.dbTracing,
		}, f.logger.Named("cache"))
	case config.CacheBackendRedis:
		return NewRedisStore(RedisConfig{
			Addr:      f.cfg.RedisAddr,
			Password:  f.cfg.RedisPassword,
			DB:        f.cfg.RedisDB,
			KeyPrefix: f.cfg.RedisKeyPrefix,
		})
	case config.CacheBackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", f.cfg.Backend)
	}
}
