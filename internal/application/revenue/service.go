// Package revenue orchestrates refreshes across the configured sales
// providers and owns the merged snapshot that readers see.
package revenue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/revdash/backend/internal/domain/sales"
	"github.com/revdash/backend/internal/infrastructure/logger"
	"github.com/revdash/backend/internal/infrastructure/telemetry"
)

// ErrNoFactory is returned by AddProvider when the service was built
// without a provider factory, as in demo mode
var ErrNoFactory = errors.New("revenue: no provider factory configured")

// SnapshotCache persists the merged snapshot between runs.
// *cache.SnapshotCache implements it.
type SnapshotCache interface {
	CacheOrders(ctx context.Context, orders []sales.Order) error
	CacheProducts(ctx context.Context, products []sales.Product) error
	CacheStore(ctx context.Context, store sales.Store) error
	LoadCachedOrders(ctx context.Context) []sales.Order
	LoadCachedProducts(ctx context.Context) []sales.Product
	LoadCachedStore(ctx context.Context) *sales.Store
	LastUpdated(ctx context.Context) *time.Time
	ClearCache(ctx context.Context) error
}

// View is a point-in-time copy of the service state
type View struct {
	sales.Snapshot
	LastError error
}

// Service aggregates orders, products and stores from every connected
// provider into one snapshot
type Service struct {
	factory sales.ProviderFactory
	cache   SnapshotCache
	logger  *zap.Logger
	metrics *telemetry.RefreshMetrics
	now     func() time.Time
	loc     *time.Location

	// refreshMu serializes refreshes and provider removal
	refreshMu sync.Mutex

	mu        sync.RWMutex
	adapters  map[sales.ProviderType]sales.SalesProvider
	connected map[sales.ProviderType]bool
	snapshot  sales.Snapshot
	lastErr   error
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCache enables persistence of every successful refresh
func WithCache(c SnapshotCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone that defines "today" and "this month"
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRefreshMetrics sets the refresh instruments
func WithRefreshMetrics(m *telemetry.RefreshMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a Service. factory may be nil when providers are only
// registered directly or the service runs on a loaded snapshot.
func NewService(factory sales.ProviderFactory, opts ...Option) *Service {
	s := &Service{
		factory:   factory,
		logger:    zap.NewNop(),
		now:       time.Now,
		loc:       time.Local,
		adapters:  make(map[sales.ProviderType]sales.SalesProvider),
		connected: make(map[sales.ProviderType]bool),
		snapshot:  sales.EmptySnapshot(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		// the global meter is a no-op until telemetry is enabled
		s.metrics, _ = telemetry.NewRefreshMetrics(otel.GetMeterProvider().Meter(telemetry.TracerName))
	}
	return s
}

// ---------------------------------------------------------------------------
// Provider lifecycle
// ---------------------------------------------------------------------------

// Configure builds an adapter for every provider that has a key in creds.
// Keys are not validated; a bad key surfaces on the next refresh.
func (s *Service) Configure(creds sales.CredentialSource) error {
	if s.factory == nil {
		return ErrNoFactory
	}

	var errs []error
	for _, p := range sales.AllProviders() {
		key, ok := creds.APIKey(p)
		if !ok {
			continue
		}
		adapter, err := s.factory(p, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("configure %s: %w", p, err))
			continue
		}
		s.RegisterProvider(adapter)
	}
	return errors.Join(errs...)
}

// RegisterProvider installs an adapter, replacing any previous one for the
// same provider
func (s *Service) RegisterProvider(adapter sales.SalesProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapters[adapter.Type()] = adapter
	s.connected[adapter.Type()] = true
}

// AddProvider validates key against the provider, registers the adapter and
// refreshes. A rejected key returns (false, nil). Once the key is accepted
// the provider stays connected even if the follow-up refresh fails; that
// error is available from LastError.
func (s *Service) AddProvider(ctx context.Context, provider sales.ProviderType, key string) (bool, error) {
	if s.factory == nil {
		return false, ErrNoFactory
	}

	adapter, err := s.factory(provider, key)
	if err != nil {
		s.setLastError(err)
		return false, err
	}

	valid, err := adapter.ValidateAPIKey(ctx, key)
	if err != nil {
		s.setLastError(err)
		return false, err
	}
	if !valid {
		s.logger.Info("api key rejected", zap.String("provider", provider.String()))
		return false, nil
	}

	s.RegisterProvider(adapter)
	s.logger.Info("provider connected", zap.String("provider", provider.String()))

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("refresh after connect failed",
			zap.String("provider", provider.String()),
			zap.Error(err),
		)
	}
	return true, nil
}

// RemoveProvider disconnects provider and purges its data from the
// snapshot. The offline cache is cleared when no provider remains.
// It waits for an in-flight refresh so that refresh cannot bring the
// provider's data back.
func (s *Service) RemoveProvider(ctx context.Context, provider sales.ProviderType) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	delete(s.adapters, provider)
	delete(s.connected, provider)
	s.snapshot = s.snapshot.WithoutProvider(provider, s.now(), s.loc)
	remaining := len(s.connected)
	s.mu.Unlock()

	s.logger.Info("provider disconnected",
		zap.String("provider", provider.String()),
		zap.Int("remaining", remaining),
	)

	if remaining > 0 || s.cache == nil {
		return nil
	}
	if err := s.cache.ClearCache(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

type providerResult struct {
	provider sales.ProviderType
	orders   []sales.Order
	products []sales.Product
	store    *sales.Store
	err      error
}

// Refresh fetches every connected provider concurrently and swaps in the
// merged snapshot. A failing provider is dropped from this cycle while the
// others are still merged; the first failure in provider order is recorded
// and returned. When every provider fails the previous snapshot stays.
func (s *Service) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	refreshID := uuid.NewString()
	ctx, log := logger.WithRefreshID(ctx, s.logger, refreshID)
	ctx, span := telemetry.StartSpan(ctx, "revenue.refresh",
		telemetry.WithAttribute(telemetry.SpanAttrRefreshID, refreshID),
	)
	defer span.End()

	adapters := s.activeAdapters()
	if len(adapters) == 0 {
		s.setLastError(sales.ErrNoAPIKey)
		telemetry.RecordError(span, sales.ErrNoAPIKey)
		return sales.ErrNoAPIKey
	}

	results := make([]providerResult, len(adapters))
	var g errgroup.Group
	g.SetLimit(len(adapters))
	for i, adapter := range adapters {
		g.Go(func() error {
			results[i] = s.fetchProvider(ctx, adapter)
			return nil
		})
	}
	_ = g.Wait()

	snap := sales.EmptySnapshot()
	var firstErr error
	healthy := 0
	for _, r := range results {
		if r.err != nil {
			kind := sales.KindOf(r.err)
			logger.L(ctx).Warn("provider fetch failed",
				zap.String("provider", r.provider.String()),
				zap.String("error_kind", string(kind)),
				zap.Error(r.err),
			)
			s.metrics.RecordProviderFailure(ctx, r.provider.String(), string(kind))
			telemetry.AddEvent(span, "provider.failed",
				telemetry.SpanAttrProvider, r.provider.String(),
				telemetry.SpanAttrErrorKind, string(kind),
			)
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		healthy++
		snap.Orders = append(snap.Orders, r.orders...)
		snap.Products = append(snap.Products, r.products...)
		if r.store != nil {
			snap.Stores = append(snap.Stores, *r.store)
		}
		s.metrics.RecordOrders(ctx, r.provider.String(), len(r.orders))
	}

	if healthy == 0 {
		s.setLastError(firstErr)
		telemetry.RecordError(span, firstErr)
		s.metrics.RecordRefresh(ctx, telemetry.OutcomeFailure, time.Since(start))
		log.Error("refresh failed, keeping previous snapshot", zap.Error(firstErr))
		return firstErr
	}

	now := s.now()
	sales.SortOrdersNewestFirst(snap.Orders)
	snap.Metrics = sales.Compute(snap.Orders, now, s.loc)
	snap.LastUpdated = &now

	s.mu.Lock()
	s.snapshot = snap
	s.lastErr = firstErr
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.recordRevenue(ctx, snap)

	outcome := telemetry.OutcomeSuccess
	if firstErr != nil {
		outcome = telemetry.OutcomePartial
		telemetry.RecordError(span, firstErr)
	} else {
		telemetry.SetOK(span)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderCount, len(snap.Orders))
	s.metrics.RecordRefresh(ctx, outcome, time.Since(start))

	log.Info("refresh finished",
		zap.String("outcome", outcome),
		zap.Int("providers", healthy),
		zap.Int("orders", len(snap.Orders)),
		zap.Int("products", len(snap.Products)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return firstErr
}

// activeAdapters returns the registered adapters in provider order
func (s *Service) activeAdapters() []sales.SalesProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]sales.SalesProvider, 0, len(s.adapters))
	for _, p := range sales.AllProviders() {
		if a, ok := s.adapters[p]; ok {
			adapters = append(adapters, a)
		}
	}
	return adapters
}

// fetchProvider runs the three fetches of one provider concurrently. Any
// failure fails the whole provider.
func (s *Service) fetchProvider(ctx context.Context, adapter sales.SalesProvider) providerResult {
	result := providerResult{provider: adapter.Type()}
	ctx, _ = logger.WithProvider(ctx, logger.FromContext(ctx), result.provider.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders, err := adapter.FetchAllOrders(gctx)
		result.orders = orders
		return err
	})
	g.Go(func() error {
		products, err := adapter.FetchProducts(gctx)
		result.products = products
		return err
	})
	g.Go(func() error {
		store, err := adapter.FetchStore(gctx)
		result.store = store
		return err
	})
	if err := g.Wait(); err != nil {
		return providerResult{provider: result.provider, err: err}
	}

	result.products = backfillCurrency(result.provider, result.products, result.store)
	logger.L(ctx).Debug("provider fetched",
		zap.Int("orders", len(result.orders)),
		zap.Int("products", len(result.products)),
	)
	return result
}

// backfillCurrency replaces the USD placeholder on LemonSqueezy and Stripe
// products with the store currency
func backfillCurrency(provider sales.ProviderType, products []sales.Product, store *sales.Store) []sales.Product {
	if provider != sales.ProviderLemonSqueezy && provider != sales.ProviderStripe {
		return products
	}
	if store == nil || store.Currency == "" || store.Currency == sales.DefaultCurrency {
		return products
	}

	out := make([]sales.Product, len(products))
	for i, p := range products {
		if p.Currency == sales.DefaultCurrency {
			p = p.WithCurrency(store.Currency)
		}
		out[i] = p
	}
	return out
}

func (s *Service) persist(ctx context.Context, snap sales.Snapshot) {
	if s.cache == nil {
		return
	}
	log := logger.L(ctx)
	if err := s.cache.CacheOrders(ctx, snap.Orders); err != nil {
		log.Warn("cache orders failed", zap.Error(err))
	}
	if err := s.cache.CacheProducts(ctx, snap.Products); err != nil {
		log.Warn("cache products failed", zap.Error(err))
	}
	if len(snap.Stores) > 0 {
		if err := s.cache.CacheStore(ctx, snap.Stores[0]); err != nil {
			log.Warn("cache store failed", zap.Error(err))
		}
	}
}

func (s *Service) recordRevenue(ctx context.Context, snap sales.Snapshot) {
	currency := sales.PrimaryCurrency(snap.Orders, snap.Stores)
	m := snap.Metrics
	s.metrics.RecordRevenue(ctx, "today", currency, m.TodayRevenue)
	s.metrics.RecordRevenue(ctx, "thirty_day", currency, m.ThirtyDayRevenue)
	s.metrics.RecordRevenue(ctx, "month", currency, m.MonthRevenue)
	s.metrics.RecordRevenue(ctx, "all_time", currency, m.AllTimeRevenue)
}

func (s *Service) setLastError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Offline state
// ---------------------------------------------------------------------------

// LoadCached seeds the snapshot from the offline cache. It reports whether
// any cached orders were found.
func (s *Service) LoadCached(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}

	orders := s.cache.LoadCachedOrders(ctx)
	products := s.cache.LoadCachedProducts(ctx)
	store := s.cache.LoadCachedStore(ctx)
	lastUpdated := s.cache.LastUpdated(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if orders != nil {
		s.snapshot.Orders = orders
		s.snapshot.Metrics = sales.Compute(orders, s.now(), s.loc)
	}
	if products != nil {
		s.snapshot.Products = products
	}
	if store != nil {
		s.snapshot.Stores = []sales.Store{*store}
	}
	if lastUpdated != nil {
		s.snapshot.LastUpdated = lastUpdated
	}

	s.logger.Debug("loaded cached snapshot",
		zap.Int("orders", len(orders)),
		zap.Int("products", len(products)),
		zap.Bool("store", store != nil),
	)
	return orders != nil
}

// LoadSnapshot replaces the state with snap without touching any adapter.
// Orders are re-sorted and metrics recomputed; the providers present in
// the snapshot are reported as connected.
func (s *Service) LoadSnapshot(snap sales.Snapshot) {
	c := snap.Clone()
	if c.Orders == nil {
		c.Orders = []sales.Order{}
	}
	if c.Products == nil {
		c.Products = []sales.Product{}
	}
	if c.Stores == nil {
		c.Stores = []sales.Store{}
	}
	now := s.now()
	sales.SortOrdersNewestFirst(c.Orders)
	c.Metrics = sales.Compute(c.Orders, now, s.loc)
	if c.LastUpdated == nil {
		c.LastUpdated = &now
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = c
	s.lastErr = nil
	for _, st := range c.Stores {
		s.connected[st.Provider] = true
	}
	for _, o := range c.Orders {
		s.connected[o.Provider] = true
	}
}

// ---------------------------------------------------------------------------
// Read surface
// ---------------------------------------------------------------------------

// Snapshot returns a copy of the current state
func (s *Service) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{Snapshot: s.snapshot.Clone(), LastError: s.lastErr}
}

// Orders returns the merged orders, newest first
func (s *Service) Orders() []sales.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.snapshot.Orders)
}

// Products returns the merged products
func (s *Service) Products() []sales.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.snapshot.Products)
}

// Stores returns one store per healthy provider, in provider order
func (s *Service) Stores() []sales.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.snapshot.Stores)
}

// Metrics returns the metrics of the current snapshot
func (s *Service) Metrics() sales.SalesMetrics {
	return s.Snapshot().Metrics
}

// LastUpdated returns when the snapshot was last refreshed
func (s *Service) LastUpdated() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot.LastUpdated == nil {
		return nil
	}
	t := *s.snapshot.LastUpdated
	return &t
}

// LastError returns the error of the last refresh or validation, if any
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// IsConnected reports whether provider is connected
func (s *Service) IsConnected(provider sales.ProviderType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected[provider]
}

// ConnectedProviders returns the connected providers in provider order
func (s *Service) ConnectedProviders() []sales.ProviderType {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []sales.ProviderType
	for _, p := range sales.AllProviders() {
		if s.connected[p] {
			out = append(out, p)
		}
	}
	return out
}

// IsAnyConnected reports whether at least one provider is connected
func (s *Service) IsAnyConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connected) > 0
}

// PrimaryCurrency returns the dominant currency of the current orders
func (s *Service) PrimaryCurrency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sales.PrimaryCurrency(s.snapshot.Orders, s.snapshot.Stores)
}

// FilteredOrders returns the orders of provider (all providers when nil)
// whose customer name, customer email, product name, identifier or payment
// method contains search, ignoring case. An empty search matches every
// order.
func (s *Service) FilteredOrders(search string, provider *sales.ProviderType) []sales.Order {
	orders := s.Orders()

	if provider != nil {
		orders = slices.DeleteFunc(orders, func(o sales.Order) bool { return o.Provider != *provider })
	}
	if search == "" {
		return orders
	}

	fold := cases.Fold()
	query := fold.String(search)
	matches := func(field string) bool {
		return field != "" && strings.Contains(fold.String(field), query)
	}

	return slices.DeleteFunc(orders, func(o sales.Order) bool {
		if matches(o.CustomerName) || matches(o.CustomerEmail) || matches(o.ProductName) {
			return false
		}
		if o.Identifier != nil && matches(*o.Identifier) {
			return false
		}
		if o.PaymentMethod != nil && matches(*o.PaymentMethod) {
			return false
		}
		return true
	})
}

// StoreFor returns the store of provider, or nil
func (s *Service) StoreFor(provider sales.ProviderType) *sales.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.snapshot.Stores {
		if st.Provider == provider {
			return &st
		}
	}
	return nil
}
