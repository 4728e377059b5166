package sales

import (
	"time"
)

// Store is one connected account on one platform.
// Revenue figures are in minor units and are 0 when the platform does not report them.
type Store struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Slug             *string      `json:"slug,omitempty"`
	Currency         string       `json:"currency"`
	TotalRevenue     int64        `json:"total_revenue"`
	ThirtyDayRevenue int64        `json:"thirty_day_revenue"`
	Provider         ProviderType `json:"provider"`

	URL             *string    `json:"url,omitempty"`
	AvatarURL       *string    `json:"avatar_url,omitempty"`
	Plan            *string    `json:"plan,omitempty"`
	Country         *string    `json:"country,omitempty"`
	CountryNicename *string    `json:"country_nicename,omitempty"`
	TotalSales      *int       `json:"total_sales,omitempty"`
	ThirtyDaySales  *int       `json:"thirty_day_sales,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`

	GumroadUserID   *string `json:"gumroad_user_id,omitempty"`
	StripeAccountID *string `json:"stripe_account_id,omitempty"`
	StripeEmail     *string `json:"stripe_email,omitempty"`
}

// TotalRevenueFormatted renders TotalRevenue in the store currency
func (s Store) TotalRevenueFormatted() string {
	return FormatCents(s.TotalRevenue, s.Currency)
}

// ThirtyDayRevenueFormatted renders ThirtyDayRevenue in the store currency
func (s Store) ThirtyDayRevenueFormatted() string {
	return FormatCents(s.ThirtyDayRevenue, s.Currency)
}
