package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// OrderStatus
// ---------------------------------------------------------------------------

// OrderStatus is the normalized payment status of an order
type OrderStatus string

const (
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusRefunded OrderStatus = "refunded"
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusFailed   OrderStatus = "failed"
	OrderStatusUnknown  OrderStatus = "unknown"
)

// ParseOrderStatus maps a raw platform status onto OrderStatus.
// Unrecognized values become OrderStatusUnknown instead of failing.
func ParseOrderStatus(raw string) OrderStatus {
	switch s := OrderStatus(raw); s {
	case OrderStatusPaid, OrderStatusRefunded, OrderStatusPending, OrderStatusFailed:
		return s
	default:
		return OrderStatusUnknown
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Order
// ---------------------------------------------------------------------------

// Order is one payment transaction from one provider. Amounts are in minor
// currency units (cents). The ID is only unique together with Provider.
//
// Orders are built by provider adapters and treated as immutable values
// afterwards.
type Order struct {
	ID             string       `json:"id"`
	OrderNumber    *int         `json:"order_number,omitempty"`
	Status         OrderStatus  `json:"status"`
	Total          int64        `json:"total"`
	Subtotal       *int64       `json:"subtotal,omitempty"`
	Tax            *int64       `json:"tax,omitempty"`
	DiscountTotal  *int64       `json:"discount_total,omitempty"`
	Currency       string       `json:"currency"`
	CustomerEmail  string       `json:"customer_email"`
	CustomerName   string       `json:"customer_name"`
	ProductName    string       `json:"product_name"`
	VariantName    *string      `json:"variant_name,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	RefundedAt     *time.Time   `json:"refunded_at,omitempty"`
	RefundedAmount *int64       `json:"refunded_amount,omitempty"`
	Provider       ProviderType `json:"provider"`

	// Formatted strings reported by the platform
	TotalFormatted         *string `json:"total_formatted,omitempty"`
	SubtotalFormatted      *string `json:"subtotal_formatted,omitempty"`
	TaxFormatted           *string `json:"tax_formatted,omitempty"`
	DiscountTotalFormatted *string `json:"discount_total_formatted,omitempty"`

	// Tax details
	TaxName      *string `json:"tax_name,omitempty"`
	TaxRate      *string `json:"tax_rate,omitempty"`
	TaxInclusive *bool   `json:"tax_inclusive,omitempty"`

	ReceiptURL *string `json:"receipt_url,omitempty"`
	Identifier *string `json:"identifier,omitempty"`

	// Gumroad-specific
	GumroadSaleID *string `json:"gumroad_sale_id,omitempty"`
	IPCountry     *string `json:"ip_country,omitempty"`

	// Stripe-specific
	StripePaymentIntentID *string `json:"stripe_payment_intent_id,omitempty"`
	PaymentMethod         *string `json:"payment_method,omitempty"`
}

// IsRefunded reports whether the order is fully or partially refunded
func (o Order) IsRefunded() bool {
	return o.Status == OrderStatusRefunded || o.RefundedAt != nil || o.refunded() > 0
}

// NetTotal is the total minus any partial refund, never below zero
func (o Order) NetTotal() int64 {
	net := o.Total - o.refunded()
	if net < 0 {
		return 0
	}
	return net
}

// TotalDecimal returns Total in major currency units
func (o Order) TotalDecimal() decimal.Decimal {
	return CentsToDecimal(o.Total)
}

// DisplayTotal prefers the platform's formatted total
func (o Order) DisplayTotal() string {
	if o.TotalFormatted != nil && *o.TotalFormatted != "" {
		return *o.TotalFormatted
	}
	return FormatCents(o.Total, o.Currency)
}

// IsToday reports whether the order was created on the same calendar day as now in loc
func (o Order) IsToday(now time.Time, loc *time.Location) bool {
	return sameDay(o.CreatedAt, now, loc)
}

// IsThisMonth reports whether the order was created in the same calendar month as now in loc
func (o Order) IsThisMonth(now time.Time, loc *time.Location) bool {
	return sameMonth(o.CreatedAt, now, loc)
}

func (o Order) refunded() int64 {
	if o.RefundedAmount == nil {
		return 0
	}
	return *o.RefundedAmount
}
