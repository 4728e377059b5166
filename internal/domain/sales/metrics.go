package sales

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// thirtyDayWindow is the length of the rolling revenue window in calendar days
const thirtyDayWindow = 30

// SalesMetrics is an aggregation snapshot over a set of orders.
// It is always rebuilt wholesale by Compute, never patched.
type SalesMetrics struct {
	TodayRevenue     int64          `json:"today_revenue"`
	TodayOrders      int            `json:"today_orders"`
	ThirtyDayRevenue int64          `json:"thirty_day_revenue"`
	ThirtyDayOrders  int            `json:"thirty_day_orders"`
	MonthRevenue     int64          `json:"month_revenue"`
	MonthOrders      int            `json:"month_orders"`
	AllTimeRevenue   int64          `json:"all_time_revenue"`
	AllTimeOrders    int            `json:"all_time_orders"`
	DailyBreakdown   []DailySales   `json:"daily_breakdown"`
	ProductBreakdown []ProductSales `json:"product_breakdown"`
}

// DailySales is the paid revenue of one calendar day
type DailySales struct {
	Date       time.Time `json:"date"`
	Revenue    int64     `json:"revenue"`
	OrderCount int       `json:"order_count"`
}

// RevenueDecimal returns Revenue in major currency units
func (d DailySales) RevenueDecimal() decimal.Decimal {
	return CentsToDecimal(d.Revenue)
}

// ProductSales is the paid revenue of one product name
type ProductSales struct {
	ProductName   string    `json:"product_name"`
	Revenue       int64     `json:"revenue"`
	OrderCount    int       `json:"order_count"`
	LastOrderDate time.Time `json:"last_order_date"`
}

// RevenueDecimal returns Revenue in major currency units
func (p ProductSales) RevenueDecimal() decimal.Decimal {
	return CentsToDecimal(p.Revenue)
}

// EmptyMetrics returns an all-zero snapshot with empty, non-nil breakdowns
func EmptyMetrics() SalesMetrics {
	return SalesMetrics{
		DailyBreakdown:   []DailySales{},
		ProductBreakdown: []ProductSales{},
	}
}

// ComputeNow computes metrics against the current wall clock in the process's local time zone
func ComputeNow(orders []Order) SalesMetrics {
	return Compute(orders, time.Now(), time.Local)
}

// Compute builds SalesMetrics from orders. It is pure and deterministic:
// only paid orders count, every bucket sums NetTotal, and calendar buckets
// (today, month, daily breakdown) are evaluated in loc.
//
// The 30-day window is [now-30 days, now]; orders stamped in the future
// are excluded from it but still count toward all-time and their day.
// Product breakdown groups by the literal product name; ties in revenue
// keep the order in which each name first appears in orders.
func Compute(orders []Order, now time.Time, loc *time.Location) SalesMetrics {
	if loc == nil {
		loc = time.Local
	}
	m := EmptyMetrics()

	localNow := now.In(loc)
	thirtyDayStart := localNow.AddDate(0, 0, -thirtyDayWindow)

	type dayBucket struct {
		date    time.Time
		revenue int64
		count   int
	}
	days := make(map[int64]*dayBucket)

	var productOrder []string
	products := make(map[string]*ProductSales)

	for _, o := range orders {
		if o.Status != OrderStatusPaid {
			continue
		}
		net := o.NetTotal()

		m.AllTimeRevenue += net
		m.AllTimeOrders++

		if sameDay(o.CreatedAt, localNow, loc) {
			m.TodayRevenue += net
			m.TodayOrders++
		}
		if !o.CreatedAt.Before(thirtyDayStart) && !o.CreatedAt.After(now) {
			m.ThirtyDayRevenue += net
			m.ThirtyDayOrders++
		}
		if sameMonth(o.CreatedAt, localNow, loc) {
			m.MonthRevenue += net
			m.MonthOrders++
		}

		day := startOfDay(o.CreatedAt, loc)
		b, ok := days[day.Unix()]
		if !ok {
			b = &dayBucket{date: day}
			days[day.Unix()] = b
		}
		b.revenue += net
		b.count++

		p, ok := products[o.ProductName]
		if !ok {
			p = &ProductSales{ProductName: o.ProductName, LastOrderDate: o.CreatedAt}
			products[o.ProductName] = p
			productOrder = append(productOrder, o.ProductName)
		}
		p.Revenue += net
		p.OrderCount++
		if o.CreatedAt.After(p.LastOrderDate) {
			p.LastOrderDate = o.CreatedAt
		}
	}

	for _, b := range days {
		m.DailyBreakdown = append(m.DailyBreakdown, DailySales{
			Date:       b.date,
			Revenue:    b.revenue,
			OrderCount: b.count,
		})
	}
	slices.SortFunc(m.DailyBreakdown, func(a, b DailySales) int {
		return b.Date.Compare(a.Date)
	})

	for _, name := range productOrder {
		m.ProductBreakdown = append(m.ProductBreakdown, *products[name])
	}
	slices.SortStableFunc(m.ProductBreakdown, func(a, b ProductSales) int {
		switch {
		case a.Revenue > b.Revenue:
			return -1
		case a.Revenue < b.Revenue:
			return 1
		default:
			return 0
		}
	})

	return m
}

// ---------------------------------------------------------------------------
// Calendar helpers
// ---------------------------------------------------------------------------

func startOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func sameMonth(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, _ := a.In(loc).Date()
	by, bm, _ := b.In(loc).Date()
	return ay == by && am == bm
}
