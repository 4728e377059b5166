package sales

import (
	"fmt"
	"slices"
	"time"
)

// Snapshot is the merged, provider-independent view of all sales data.
// Readers receive copies; the orchestrator replaces it wholesale.
type Snapshot struct {
	Orders      []Order      `json:"orders"`
	Products    []Product    `json:"products"`
	Stores      []Store      `json:"stores"`
	Metrics     SalesMetrics `json:"metrics"`
	LastUpdated *time.Time   `json:"last_updated,omitempty"`
}

// EmptySnapshot returns a snapshot with empty, non-nil collections
func EmptySnapshot() Snapshot {
	return Snapshot{
		Orders:   []Order{},
		Products: []Product{},
		Stores:   []Store{},
		Metrics:  EmptyMetrics(),
	}
}

// Clone returns a copy whose slices can be modified without affecting s
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Orders = slices.Clone(s.Orders)
	c.Products = slices.Clone(s.Products)
	c.Stores = slices.Clone(s.Stores)
	c.Metrics.DailyBreakdown = slices.Clone(s.Metrics.DailyBreakdown)
	c.Metrics.ProductBreakdown = slices.Clone(s.Metrics.ProductBreakdown)
	if s.LastUpdated != nil {
		t := *s.LastUpdated
		c.LastUpdated = &t
	}
	return c
}

// WithoutProvider returns a copy of s with every order, product and store of
// provider removed and the metrics recomputed over the remaining orders.
func (s Snapshot) WithoutProvider(provider ProviderType, now time.Time, loc *time.Location) Snapshot {
	c := s.Clone()
	c.Orders = slices.DeleteFunc(c.Orders, func(o Order) bool { return o.Provider == provider })
	c.Products = slices.DeleteFunc(c.Products, func(p Product) bool { return p.Provider == provider })
	c.Stores = slices.DeleteFunc(c.Stores, func(st Store) bool { return st.Provider == provider })
	c.Metrics = Compute(c.Orders, now, loc)
	return c
}

// SortOrdersNewestFirst sorts orders by CreatedAt descending, keeping the
// relative order of orders with equal timestamps.
func SortOrdersNewestFirst(orders []Order) {
	slices.SortStableFunc(orders, func(a, b Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// PrimaryCurrency returns the currency used by most orders. Ties go to the
// currency seen first. Without orders it falls back to the first store's
// currency, then DefaultCurrency.
func PrimaryCurrency(orders []Order, stores []Store) string {
	if len(orders) == 0 {
		if len(stores) > 0 && stores[0].Currency != "" {
			return stores[0].Currency
		}
		return DefaultCurrency
	}

	counts := make(map[string]int)
	var seen []string
	for _, o := range orders {
		if _, ok := counts[o.Currency]; !ok {
			seen = append(seen, o.Currency)
		}
		counts[o.Currency]++
	}

	best := seen[0]
	for _, c := range seen[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	if best == "" {
		return DefaultCurrency
	}
	return best
}

// LastUpdatedFormatted renders the age of t relative to now in abbreviated
// form ("just now", "5 min. ago", "3 hr. ago", "2 days ago"), or "Never".
func LastUpdatedFormatted(t *time.Time, now time.Time) string {
	if t == nil {
		return "Never"
	}
	age := now.Sub(*t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%d min. ago", int(age/time.Minute))
	case age < 24*time.Hour:
		return fmt.Sprintf("%d hr. ago", int(age/time.Hour))
	default:
		days := int(age / (24 * time.Hour))
		return fmt.Sprintf("%d %s ago", days, plural(days, "day"))
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
