package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/revdash/backend/internal/domain/sales"
)

// Summary is the glanceable revenue view computed from cached orders
type Summary struct {
	TodayRevenue int64      `json:"today_revenue"`
	TodayOrders  int        `json:"today_orders"`
	MonthRevenue int64      `json:"month_revenue"`
	Currency     string     `json:"currency"`
	OrderCount   int        `json:"order_count"`
	LastUpdated  *time.Time `json:"last_updated,omitempty"`
}

// TodayRevenueDecimal returns TodayRevenue in major units
func (s Summary) TodayRevenueDecimal() decimal.Decimal {
	return sales.CentsToDecimal(s.TodayRevenue)
}

// MonthRevenueDecimal returns MonthRevenue in major units
func (s Summary) MonthRevenueDecimal() decimal.Decimal {
	return sales.CentsToDecimal(s.MonthRevenue)
}

// TodayRevenueFormatted renders TodayRevenue in Currency
func (s Summary) TodayRevenueFormatted() string {
	return sales.FormatCents(s.TodayRevenue, s.Currency)
}

// MonthRevenueFormatted renders MonthRevenue in Currency
func (s Summary) MonthRevenueFormatted() string {
	return sales.FormatCents(s.MonthRevenue, s.Currency)
}

// ReadSummary computes a Summary from the cached orders alone. It returns
// nil when no orders are cached or the entry cannot be decoded.
func ReadSummary(ctx context.Context, c *SnapshotCache, now time.Time, loc *time.Location) *Summary {
	orders := c.LoadCachedOrders(ctx)
	if orders == nil {
		return nil
	}

	metrics := sales.Compute(orders, now, loc)
	return &Summary{
		TodayRevenue: metrics.TodayRevenue,
		TodayOrders:  metrics.TodayOrders,
		MonthRevenue: metrics.MonthRevenue,
		Currency:     sales.PrimaryCurrency(orders, nil),
		OrderCount:   len(orders),
		LastUpdated:  c.LastUpdated(ctx),
	}
}
