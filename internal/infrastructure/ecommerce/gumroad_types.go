package ecommerce

// Gumroad v2 API response types

type gumroadSalesResponse struct {
	Success     bool          `json:"success"`
	Sales       []gumroadSale `json:"sales" validate:"dive"`
	NextPageURL *string       `json:"next_page_url"`
}

type gumroadSale struct {
	ID                    string  `json:"id" validate:"required"`
	Email                 *string `json:"email"`
	FullName              *string `json:"full_name"`
	ProductName           *string `json:"product_name"`
	VariantName           *string `json:"variant_name"`
	Price                 int64   `json:"price" validate:"gte=0"`
	Currency              *string `json:"currency"`
	Refunded              *bool   `json:"refunded"`
	FormattedDisplayPrice *string `json:"formatted_display_price"`
	OrderID               *string `json:"order_id"`
	IPCountry             *string `json:"ip_country"`
	CreatedAt             apiTime `json:"created_at" validate:"required"`
}

type gumroadProductsResponse struct {
	Success  bool             `json:"success"`
	Products []gumroadProduct `json:"products" validate:"dive"`
}

type gumroadProduct struct {
	ID              string        `json:"id" validate:"required"`
	Name            string        `json:"name" validate:"required"`
	Description     *string       `json:"description"`
	CustomPermalink *string       `json:"custom_permalink"`
	Price           int64         `json:"price" validate:"gte=0"`
	Currency        *string       `json:"currency"`
	Published       bool          `json:"published"`
	FormattedPrice  *string       `json:"formatted_price"`
	ShortURL        *string       `json:"short_url"`
	SalesCount      *int          `json:"sales_count"`
	SalesUSDCents   *int64        `json:"sales_usd_cents"`
	Thumbnail       *gumroadMedia `json:"thumbnail"`
	Preview         *gumroadMedia `json:"preview"`
	CreatedAt       *apiTime      `json:"created_at"`
}

type gumroadMedia struct {
	URL *string `json:"url"`
}

type gumroadUserResponse struct {
	Success bool         `json:"success"`
	User    *gumroadUser `json:"user"`
}

type gumroadUser struct {
	UserID      string  `json:"user_id" validate:"required"`
	Name        *string `json:"name"`
	DisplayName *string `json:"display_name"`
	URL         *string `json:"url"`
	ProfileURL  *string `json:"profile_url"`
}
