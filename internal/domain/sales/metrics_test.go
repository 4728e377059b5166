package sales

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

func paidOrder(id string, total int64, createdAt time.Time) Order {
	return Order{
		ID:          id,
		Status:      OrderStatusPaid,
		Total:       total,
		Currency:    "USD",
		ProductName: "Widget",
		CreatedAt:   createdAt,
		Provider:    ProviderLemonSqueezy,
	}
}

// ---------------------------------------------------------------------------
// Compute Tests
// ---------------------------------------------------------------------------

func TestCompute_EmptyInput(t *testing.T) {
	m := Compute(nil, testNow, time.UTC)

	assert.Equal(t, int64(0), m.AllTimeRevenue)
	assert.Equal(t, 0, m.AllTimeOrders)
	assert.Equal(t, 0, m.TodayOrders)
	require.NotNil(t, m.DailyBreakdown)
	require.NotNil(t, m.ProductBreakdown)
	assert.Empty(t, m.DailyBreakdown)
	assert.Empty(t, m.ProductBreakdown)
	assert.Equal(t, EmptyMetrics(), m)
}

func TestCompute_PartialRefundUsesNetTotal(t *testing.T) {
	o1 := paidOrder("1", 1000, testNow.Add(-time.Hour))
	o1.RefundedAmount = int64Ptr(250)
	o2 := paidOrder("2", 500, testNow.Add(-2*time.Hour))

	m := Compute([]Order{o1, o2}, testNow, time.UTC)

	assert.Equal(t, int64(1250), m.AllTimeRevenue)
	assert.Equal(t, 2, m.AllTimeOrders)
}

func TestCompute_RefundedOrdersExcluded(t *testing.T) {
	o1 := paidOrder("1", 500, testNow.Add(-time.Hour))
	o2 := paidOrder("2", 1000, testNow.Add(-time.Hour))
	o2.Status = OrderStatusRefunded

	m := Compute([]Order{o1, o2}, testNow, time.UTC)

	assert.Equal(t, int64(500), m.AllTimeRevenue)
	assert.Equal(t, 1, m.AllTimeOrders)
}

func TestCompute_OnlyPaidOrdersCount(t *testing.T) {
	statuses := []OrderStatus{
		OrderStatusPaid, OrderStatusPending, OrderStatusFailed,
		OrderStatusUnknown, OrderStatusRefunded, OrderStatusPaid,
	}
	var orders []Order
	for i, s := range statuses {
		o := paidOrder(string(rune('a'+i)), 100, testNow.Add(-time.Duration(i)*time.Minute))
		o.Status = s
		orders = append(orders, o)
	}

	m := Compute(orders, testNow, time.UTC)

	assert.Equal(t, 2, m.AllTimeOrders)
	assert.Equal(t, 2, m.TodayOrders)
	assert.Equal(t, int64(200), m.TodayRevenue)
}

func TestCompute_ProductBreakdownGroupsByName(t *testing.T) {
	orders := []Order{
		paidOrder("1", 500, testNow.Add(-3*time.Hour)),
		paidOrder("2", 500, testNow.Add(-2*time.Hour)),
		paidOrder("3", 1000, testNow.Add(-26*time.Hour)),
	}
	for i := range orders {
		orders[i].ProductName = "X"
	}

	m := Compute(orders, testNow, time.UTC)

	require.Len(t, m.ProductBreakdown, 1)
	assert.Equal(t, "X", m.ProductBreakdown[0].ProductName)
	assert.Equal(t, int64(2000), m.ProductBreakdown[0].Revenue)
	assert.Equal(t, 3, m.ProductBreakdown[0].OrderCount)
	assert.Equal(t, testNow.Add(-2*time.Hour), m.ProductBreakdown[0].LastOrderDate)
}

func TestCompute_ProductBreakdownLiteralNames(t *testing.T) {
	a := paidOrder("1", 300, testNow.Add(-time.Hour))
	a.ProductName = "Pro Plan"
	b := paidOrder("2", 700, testNow.Add(-time.Hour))
	b.ProductName = "pro plan"
	c := paidOrder("3", 300, testNow.Add(-time.Hour))
	c.ProductName = "Starter"

	m := Compute([]Order{a, b, c}, testNow, time.UTC)

	require.Len(t, m.ProductBreakdown, 3)
	assert.Equal(t, "pro plan", m.ProductBreakdown[0].ProductName)
	// equal revenue keeps first-appearance order
	assert.Equal(t, "Pro Plan", m.ProductBreakdown[1].ProductName)
	assert.Equal(t, "Starter", m.ProductBreakdown[2].ProductName)
}

func TestCompute_TimeBuckets(t *testing.T) {
	orders := []Order{
		paidOrder("today", 100, time.Date(2025, 6, 15, 1, 0, 0, 0, time.UTC)),
		paidOrder("this-month", 200, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)),
		paidOrder("last-month-in-window", 400, time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)),
		paidOrder("window-edge", 800, testNow.AddDate(0, 0, -30)),
		paidOrder("outside-window", 1600, testNow.AddDate(0, 0, -30).Add(-time.Second)),
		paidOrder("future", 3200, testNow.Add(48*time.Hour)),
	}

	m := Compute(orders, testNow, time.UTC)

	assert.Equal(t, int64(100), m.TodayRevenue)
	assert.Equal(t, 1, m.TodayOrders)
	assert.Equal(t, int64(100+200+400+800), m.ThirtyDayRevenue)
	assert.Equal(t, 4, m.ThirtyDayOrders)
	assert.Equal(t, int64(100+200+3200), m.MonthRevenue)
	assert.Equal(t, 3, m.MonthOrders)
	assert.Equal(t, int64(6300), m.AllTimeRevenue)
	assert.Equal(t, 6, m.AllTimeOrders)
}

func TestCompute_LocalCalendarBoundaries(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2025-06-15 16:00 UTC is 2025-06-16 01:00 in Tokyo
	now := time.Date(2025, 6, 15, 16, 0, 0, 0, time.UTC)
	o := paidOrder("1", 100, time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC))

	utc := Compute([]Order{o}, now, time.UTC)
	jst := Compute([]Order{o}, now, tokyo)

	assert.Equal(t, 1, utc.TodayOrders)
	assert.Equal(t, 0, jst.TodayOrders)
	require.Len(t, jst.DailyBreakdown, 1)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, tokyo), jst.DailyBreakdown[0].Date)
}

func TestCompute_DailyBreakdownNewestFirst(t *testing.T) {
	orders := []Order{
		paidOrder("1", 100, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)),
		paidOrder("2", 200, time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)),
		paidOrder("3", 300, time.Date(2025, 6, 12, 18, 0, 0, 0, time.UTC)),
		paidOrder("4", 400, time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)),
	}

	m := Compute(orders, testNow, time.UTC)

	require.Len(t, m.DailyBreakdown, 3)
	assert.Equal(t, time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC), m.DailyBreakdown[0].Date)
	assert.Equal(t, int64(500), m.DailyBreakdown[0].Revenue)
	assert.Equal(t, 2, m.DailyBreakdown[0].OrderCount)
	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), m.DailyBreakdown[1].Date)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), m.DailyBreakdown[2].Date)
}

func TestCompute_Idempotent(t *testing.T) {
	orders := sampleOrders()

	first := Compute(orders, testNow, time.UTC)
	second := Compute(orders, testNow, time.UTC)

	assert.Equal(t, first, second)
}

func TestCompute_OrderIndependentWithoutTies(t *testing.T) {
	orders := sampleOrders()
	shuffled := make([]Order, len(orders))
	copy(shuffled, orders)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	assert.Equal(t, Compute(orders, testNow, time.UTC), Compute(shuffled, testNow, time.UTC))
}

func TestCompute_AllTimeOrdersMatchesPaidCount(t *testing.T) {
	orders := sampleOrders()
	paid := 0
	for _, o := range orders {
		if o.Status == OrderStatusPaid {
			paid++
		}
	}

	assert.Equal(t, paid, Compute(orders, testNow, time.UTC).AllTimeOrders)
}

// sampleOrders returns orders with distinct product revenues so the
// breakdown order does not depend on input order.
func sampleOrders() []Order {
	names := []string{"A", "B", "C", "D"}
	var orders []Order
	for i := 0; i < 20; i++ {
		o := paidOrder(string(rune('a'+i)), int64(100*(i+1)), testNow.Add(-time.Duration(i*7)*time.Hour))
		o.ProductName = names[i%len(names)]
		if i%5 == 0 {
			o.Status = OrderStatusRefunded
		}
		if i%3 == 0 {
			o.RefundedAmount = int64Ptr(int64(10 * i))
		}
		orders = append(orders, o)
	}
	return orders
}
