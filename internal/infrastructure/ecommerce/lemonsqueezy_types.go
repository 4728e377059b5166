package ecommerce

// Lemon Squeezy JSON:API response types

type lsOrdersResponse struct {
	Data []lsOrderItem `json:"data" validate:"dive"`
	Meta lsMeta        `json:"meta"`
}

type lsProductsResponse struct {
	Data []lsProductItem `json:"data" validate:"dive"`
}

type lsStoresResponse struct {
	Data []lsStoreItem `json:"data" validate:"dive"`
}

type lsMeta struct {
	Page lsPageInfo `json:"page"`
}

type lsPageInfo struct {
	CurrentPage int `json:"currentPage"`
	LastPage    int `json:"lastPage"`
}

type lsOrderItem struct {
	ID         string            `json:"id" validate:"required"`
	Attributes lsOrderAttributes `json:"attributes"`
}

type lsOrderAttributes struct {
	Status                 string            `json:"status" validate:"required"`
	OrderNumber            int               `json:"order_number"`
	Identifier             string            `json:"identifier"`
	Total                  int64             `json:"total" validate:"gte=0"`
	Subtotal               int64             `json:"subtotal"`
	Tax                    int64             `json:"tax"`
	DiscountTotal          int64             `json:"discount_total"`
	Currency               string            `json:"currency" validate:"required"`
	UserEmail              string            `json:"user_email"`
	UserName               string            `json:"user_name"`
	TaxName                *string           `json:"tax_name"`
	TaxRate                *flexString       `json:"tax_rate"`
	TaxInclusive           bool              `json:"tax_inclusive"`
	TotalFormatted         string            `json:"total_formatted"`
	SubtotalFormatted      string            `json:"subtotal_formatted"`
	TaxFormatted           string            `json:"tax_formatted"`
	DiscountTotalFormatted string            `json:"discount_total_formatted"`
	RefundedAt             *apiTime          `json:"refunded_at"`
	RefundedAmount         *int64            `json:"refunded_amount"`
	FirstOrderItem         *lsFirstOrderItem `json:"first_order_item"`
	URLs                   *lsOrderURLs      `json:"urls"`
	CreatedAt              apiTime           `json:"created_at" validate:"required"`
}

type lsOrderURLs struct {
	Receipt *string `json:"receipt"`
}

type lsFirstOrderItem struct {
	ProductName string  `json:"product_name"`
	VariantName *string `json:"variant_name"`
}

type lsProductItem struct {
	ID         string              `json:"id" validate:"required"`
	Attributes lsProductAttributes `json:"attributes"`
}

type lsProductAttributes struct {
	Name            string  `json:"name" validate:"required"`
	Slug            *string `json:"slug"`
	Description     *string `json:"description"`
	Price           int64   `json:"price" validate:"gte=0"`
	Status          string  `json:"status"`
	StatusFormatted *string `json:"status_formatted"`
	PriceFormatted  *string `json:"price_formatted"`
	ThumbURL        *string `json:"thumb_url"`
	LargeThumbURL   *string `json:"large_thumb_url"`
	BuyNowURL       *string `json:"buy_now_url"`
	CreatedAt       apiTime `json:"created_at" validate:"required"`
}

type lsStoreItem struct {
	ID         string            `json:"id" validate:"required"`
	Attributes lsStoreAttributes `json:"attributes"`
}

type lsStoreAttributes struct {
	Name             string   `json:"name" validate:"required"`
	Slug             *string  `json:"slug"`
	Currency         string   `json:"currency" validate:"required"`
	TotalRevenue     int64    `json:"total_revenue"`
	ThirtyDayRevenue int64    `json:"thirty_day_revenue"`
	TotalSales       int      `json:"total_sales"`
	ThirtyDaySales   int      `json:"thirty_day_sales"`
	URL              *string  `json:"url"`
	AvatarURL        *string  `json:"avatar_url"`
	Plan             *string  `json:"plan"`
	Country          *string  `json:"country"`
	CountryNicename  *string  `json:"country_nicename"`
	CreatedAt        *apiTime `json:"created_at"`
}
