package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "revdash:query_start"

// DBTracingConfig holds configuration for cache database tracing
type DBTracingConfig struct {
	Enabled            bool
	LogFullSQL         bool          // include bound variables in span statements
	SlowQueryThreshold time.Duration // default 200ms
	DBName             string        // default "sqlite"
	TracerProvider     trace.TracerProvider
}

// DefaultDBTracingConfig returns tracing disabled with variables hidden
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThreshold: 200 * time.Millisecond,
		DBName:             "sqlite",
	}
}

// RegisterDBTracing installs the otelgorm plugin on db and logs queries
// slower than the configured threshold.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DBName == "" {
		cfg.DBName = "sqlite"
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = DefaultDBTracingConfig().SlowQueryThreshold
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	slow := &slowQueryLogger{threshold: cfg.SlowQueryThreshold, logger: logger.Named("db")}
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("revdash:before_create", slow.before),
		cb.Query().Before("gorm:query").Register("revdash:before_query", slow.before),
		cb.Delete().Before("gorm:delete").Register("revdash:before_delete", slow.before),
		cb.Raw().Before("gorm:raw").Register("revdash:before_raw", slow.before),
		cb.Create().After("gorm:create").Register("revdash:after_create", slow.after),
		cb.Query().After("gorm:query").Register("revdash:after_query", slow.after),
		cb.Delete().After("gorm:delete").Register("revdash:after_delete", slow.after),
		cb.Raw().After("gorm:raw").Register("revdash:after_raw", slow.after),
	)
}

type slowQueryLogger struct {
	threshold time.Duration
	logger    *zap.Logger
}

func (s *slowQueryLogger) before(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (s *slowQueryLogger) after(db *gorm.DB) {
	v, ok := db.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed <= s.threshold {
		return
	}

	fields := []zap.Field{
		zap.String("table", db.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Duration("threshold", s.threshold),
	}
	if ctx := db.Statement.Context; ctx != nil {
		if traceID := GetTraceID(ctx); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
	}
	s.logger.Warn("slow cache query", fields...)
}
