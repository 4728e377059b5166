package sales

import (
	"time"
)

// ProductStatus is the normalized catalog status of a product.
// Active and inactive are only used by platforms without a published/draft distinction.
type ProductStatus string

const (
	ProductStatusPublished ProductStatus = "published"
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusArchived  ProductStatus = "archived"
	ProductStatusActive    ProductStatus = "active"
	ProductStatusInactive  ProductStatus = "inactive"
	ProductStatusUnknown   ProductStatus = "unknown"
)

// ParseProductStatus maps a raw platform status onto ProductStatus, defaulting to unknown
func ParseProductStatus(raw string) ProductStatus {
	switch s := ProductStatus(raw); s {
	case ProductStatusPublished, ProductStatusDraft, ProductStatusArchived,
		ProductStatusActive, ProductStatusInactive:
		return s
	default:
		return ProductStatusUnknown
	}
}

// String returns the string representation of ProductStatus
func (s ProductStatus) String() string {
	return string(s)
}

// Product is a catalog item listed on a platform
type Product struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Slug        *string       `json:"slug,omitempty"`
	Description *string       `json:"description,omitempty"`
	Price       int64         `json:"price"`
	Currency    string        `json:"currency"`
	Status      ProductStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	Provider    ProviderType  `json:"provider"`

	ThumbURL      *string `json:"thumb_url,omitempty"`
	LargeThumbURL *string `json:"large_thumb_url,omitempty"`
	BuyNowURL     *string `json:"buy_now_url,omitempty"`
	StoreURL      *string `json:"store_url,omitempty"`

	PriceFormatted  *string `json:"price_formatted,omitempty"`
	StatusFormatted *string `json:"status_formatted,omitempty"`

	// Aggregates reported by the platform
	TotalSales   *int   `json:"total_sales,omitempty"`
	TotalRevenue *int64 `json:"total_revenue,omitempty"`

	GumroadProductID   *string `json:"gumroad_product_id,omitempty"`
	StripeProductID    *string `json:"stripe_product_id,omitempty"`
	StripeDefaultPrice *string `json:"stripe_default_price,omitempty"`
}

// DisplayPrice prefers the platform's formatted price
func (p Product) DisplayPrice() string {
	if p.PriceFormatted != nil && *p.PriceFormatted != "" {
		return *p.PriceFormatted
	}
	return FormatCents(p.Price, p.Currency)
}

// WithCurrency returns a copy of the product carrying the given currency
func (p Product) WithCurrency(currency string) Product {
	p.Currency = currency
	return p
}
