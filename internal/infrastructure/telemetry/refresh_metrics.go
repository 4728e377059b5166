package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when RefreshMetrics is built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// Refresh outcomes recorded on revdash_refresh_total
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailure = "failure"
)

// RefreshMetrics records the health of aggregation refreshes
type RefreshMetrics struct {
	refreshTotal     *Counter
	providerFailures *Counter
	refreshDuration  *Histogram
	orders           *Gauge
	revenue          *Gauge
}

// NewRefreshMetrics registers the refresh instruments on meter
func NewRefreshMetrics(meter metric.Meter) (*RefreshMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		rm  RefreshMetrics
		err error
	)
	if rm.refreshTotal, err = NewCounter(meter,
		"revdash_refresh_total", "Completed refresh cycles by outcome", "{refreshes}"); err != nil {
		return nil, err
	}
	if rm.providerFailures, err = NewCounter(meter,
		"revdash_provider_failures_total", "Provider fetches dropped from a refresh", "{failures}"); err != nil {
		return nil, err
	}
	if rm.refreshDuration, err = NewHistogram(meter,
		"revdash_refresh_duration_seconds", "Wall time of a refresh cycle", "s", RefreshDurationBuckets...); err != nil {
		return nil, err
	}
	if rm.orders, err = NewGauge(meter,
		"revdash_orders", "Orders held in the current snapshot", "{orders}"); err != nil {
		return nil, err
	}
	if rm.revenue, err = NewGauge(meter,
		"revdash_revenue_cents", "Paid net revenue of the current snapshot", "{cents}"); err != nil {
		return nil, err
	}
	return &rm, nil
}

// RecordRefresh records one finished refresh cycle
func (rm *RefreshMetrics) RecordRefresh(ctx context.Context, outcome string, d time.Duration) {
	rm.refreshTotal.Inc(ctx, AttrOutcome.String(outcome))
	rm.refreshDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}

// RecordProviderFailure records a provider dropped from a refresh
func (rm *RefreshMetrics) RecordProviderFailure(ctx context.Context, provider, kind string) {
	rm.providerFailures.Inc(ctx, AttrProvider.String(provider), AttrErrorKind.String(kind))
}

// RecordOrders records the order count contributed by provider
func (rm *RefreshMetrics) RecordOrders(ctx context.Context, provider string, count int) {
	rm.orders.Record(ctx, int64(count), AttrProvider.String(provider))
}

// RecordRevenue records the revenue of one aggregation window
func (rm *RefreshMetrics) RecordRevenue(ctx context.Context, window, currency string, cents int64) {
	rm.revenue.Record(ctx, cents, AttrWindow.String(window), AttrCurrency.String(currency))
}
