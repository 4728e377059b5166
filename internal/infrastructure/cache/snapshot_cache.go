package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/revdash/backend/internal/domain/sales"
	"github.com/revdash/backend/internal/infrastructure/telemetry"
)

// Fixed cache keys shared with revdash-summary
const (
	KeyOrders      = "cached_orders"
	KeyProducts    = "cached_products"
	KeyStore       = "cached_store"
	KeyLastUpdated = "cache_last_updated"
)

// SnapshotCache stores the last merged orders, products and store as JSON.
// Reads never fail: a missing or unreadable entry is reported as nil.
type SnapshotCache struct {
	store  KeyValueStore
	logger *zap.Logger
	now    func() time.Time
}

// SnapshotCacheOption configures a SnapshotCache
type SnapshotCacheOption func(*SnapshotCache)

// WithCacheLogger sets the logger for cache warnings
func WithCacheLogger(logger *zap.Logger) SnapshotCacheOption {
	return func(c *SnapshotCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCacheClock overrides the time recorded by CacheOrders
func WithCacheClock(now func() time.Time) SnapshotCacheOption {
	return func(c *SnapshotCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewSnapshotCache creates a SnapshotCache on store
func NewSnapshotCache(store KeyValueStore, opts ...SnapshotCacheOption) *SnapshotCache {
	c := &SnapshotCache{store: store, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheOrders stores orders and stamps the cache's last-updated time
func (c *SnapshotCache) CacheOrders(ctx context.Context, orders []sales.Order) error {
	if err := c.put(ctx, KeyOrders, orders); err != nil {
		return err
	}
	return c.put(ctx, KeyLastUpdated, c.now().UTC())
}

// CacheProducts stores products
func (c *SnapshotCache) CacheProducts(ctx context.Context, products []sales.Product) error {
	return c.put(ctx, KeyProducts, products)
}

// CacheStore stores a single store record
func (c *SnapshotCache) CacheStore(ctx context.Context, store sales.Store) error {
	return c.put(ctx, KeyStore, store)
}

// LoadCachedOrders returns the cached orders, or nil
func (c *SnapshotCache) LoadCachedOrders(ctx context.Context) []sales.Order {
	var orders []sales.Order
	if !c.get(ctx, KeyOrders, &orders) {
		return nil
	}
	return orders
}

// LoadCachedProducts returns the cached products, or nil
func (c *SnapshotCache) LoadCachedProducts(ctx context.Context) []sales.Product {
	var products []sales.Product
	if !c.get(ctx, KeyProducts, &products) {
		return nil
	}
	return products
}

// LoadCachedStore returns the cached store, or nil
func (c *SnapshotCache) LoadCachedStore(ctx context.Context) *sales.Store {
	var store sales.Store
	if !c.get(ctx, KeyStore, &store) {
		return nil
	}
	return &store
}

// LastUpdated returns when orders were last cached, or nil if never
func (c *SnapshotCache) LastUpdated(ctx context.Context) *time.Time {
	var t time.Time
	if !c.get(ctx, KeyLastUpdated, &t) {
		return nil
	}
	return &t
}

// ClearCache removes every cached entry
func (c *SnapshotCache) ClearCache(ctx context.Context) error {
	return c.store.Delete(ctx, KeyOrders, KeyProducts, KeyStore, KeyLastUpdated)
}

func (c *SnapshotCache) put(ctx context.Context, key string, v any) error {
	ctx, span := telemetry.StartSpan(ctx, "cache.set", telemetry.WithAttribute(telemetry.SpanAttrCacheKey, key))
	defer span.End()

	data, err := json.Marshal(v)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

func (c *SnapshotCache) get(ctx context.Context, key string, v any) bool {
	ctx, span := telemetry.StartSpan(ctx, "cache.get", telemetry.WithAttribute(telemetry.SpanAttrCacheKey, key))
	defer span.End()

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			telemetry.RecordError(span, err)
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		telemetry.RecordError(span, err)
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
