package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revdash/backend/internal/infrastructure/logger"
	"github.com/revdash/backend/internal/infrastructure/telemetry"
)

const memoryDSN = ":memory:"

// cacheEntry is one row of the cache table
type cacheEntry struct {
	Key       string `gorm:"column:cache_key;primaryKey"`
	Value     []byte `gorm:"column:value;not null"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (cacheEntry) TableName() string {
	return "cache_entries"
}

// SQLiteConfig configures the sqlite-backed store
type SQLiteConfig struct {
	// Path is the database file; ":memory:" keeps it in process
	Path string
	// LogLevel is passed to MapGormLogLevel
	LogLevel  string
	DBTracing telemetry.DBTracingConfig
}

// SQLiteStore implements KeyValueStore on a sqlite file through GORM. The
// file is shared between revdash and revdash-summary.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if needed) the sqlite cache at cfg.Path
func NewSQLiteStore(cfg SQLiteConfig, zapLogger *zap.Logger) (*SQLiteStore, error) {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache: sqlite path is required")
	}
	if cfg.Path != memoryDSN {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("cache: create sqlite directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.NewGormLogger(zapLogger, logger.MapGormLogLevel(cfg.LogLevel), 200*time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite %s: %w", cfg.Path, err)
	}

	if cfg.Path == memoryDSN {
		// each connection to :memory: opens a separate database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := telemetry.RegisterDBTracing(db, cfg.DBTracing, zapLogger); err != nil {
		return nil, fmt.Errorf("cache: register db tracing: %w", err)
	}
	if err := db.AutoMigrate(&cacheEntry{}); err != nil {
		return nil, fmt.Errorf("cache: migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get returns the value stored under key
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry cacheEntry
	err := s.db.WithContext(ctx).Where("cache_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get %s: %w", key, err)
	}
	return entry.Value, nil
}

// Set upserts value under key
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	entry := cacheEntry{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys
func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("cache_key IN ?", keys).Delete(&cacheEntry{}).Error; err != nil {
		return fmt.Errorf("cache: delete: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ KeyValueStore = (*SQLiteStore)(nil)
