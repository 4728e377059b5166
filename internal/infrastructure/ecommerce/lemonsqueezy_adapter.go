package ecommerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/revdash/backend/internal/domain/sales"
	"github.com/revdash/backend/internal/infrastructure/telemetry"
)

// LemonSqueezyAdapter implements sales.SalesProvider for the Lemon Squeezy
// JSON:API. Orders are paginated by page number until meta.page.lastPage.
type LemonSqueezyAdapter struct {
	config     *LemonSqueezyConfig
	httpClient *http.Client
	logger     *zap.Logger
	cred       credential
}

// NewLemonSqueezyAdapter creates a new Lemon Squeezy adapter
func NewLemonSqueezyAdapter(config *LemonSqueezyConfig, opts ...Option) (*LemonSqueezyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(config.ClientConfig, opts)

	a := &LemonSqueezyAdapter{
		config:     config,
		httpClient: o.httpClient,
		logger:     o.logger.Named("lemonsqueezy"),
	}
	a.cred.set(config.APIKey)
	return a, nil
}

// Type returns the provider type
func (a *LemonSqueezyAdapter) Type() sales.ProviderType {
	return sales.ProviderLemonSqueezy
}

// FetchAllOrders fetches every order page by page
func (a *LemonSqueezyAdapter) FetchAllOrders(ctx context.Context) ([]sales.Order, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, a.Type(), "fetch_all_orders")
	defer span.End()

	key := a.cred.get()
	var orders []sales.Order
	page := 1
	for {
		resp, err := a.fetchOrdersPage(ctx, key, page)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("lemonsqueezy: fetch orders page %d: %w", page, err)
		}
		for i := range resp.Data {
			orders = append(orders, a.convertOrder(&resp.Data[i]))
		}
		a.logger.Debug("fetched orders page",
			zap.Int("page", page),
			zap.Int("last_page", resp.Meta.Page.LastPage),
			zap.Int("count", len(resp.Data)),
		)
		if page >= resp.Meta.Page.LastPage {
			break
		}
		page++
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderCount, len(orders),
		telemetry.SpanAttrPageCount, page,
	)
	telemetry.SetOK(span)
	return orders, nil
}

func (a *LemonSqueezyAdapter) fetchOrdersPage(ctx context.Context, key string, page int) (*lsOrdersResponse, error) {
	params := url.Values{}
	params.Set("page[number]", strconv.Itoa(page))
	params.Set("page[size]", strconv.Itoa(defaultPageSize))

	body, err := a.get(ctx, key, "/orders", params)
	if err != nil {
		return nil, err
	}
	var resp lsOrdersResponse
	if err := decodePayload(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchProducts fetches the first page of products. Lemon Squeezy products
// carry no currency, so they are reported in USD until the store currency
// is known.
func (a *LemonSqueezyAdapter) FetchProducts(ctx context.Context) ([]sales.Product, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, a.Type(), "fetch_products")
	defer span.End()

	params := url.Values{}
	params.Set("page[size]", strconv.Itoa(defaultPageSize))

	body, err := a.get(ctx, a.cred.get(), "/products", params)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("lemonsqueezy: fetch products: %w", err)
	}
	var resp lsProductsResponse
	if err := decodePayload(body, &resp); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("lemonsqueezy: fetch products: %w", err)
	}

	products := make([]sales.Product, 0, len(resp.Data))
	for i := range resp.Data {
		products = append(products, convertLSProduct(&resp.Data[i]))
	}
	telemetry.SetOK(span)
	return products, nil
}

// FetchStore returns the first store on the account
func (a *LemonSqueezyAdapter) FetchStore(ctx context.Context) (*sales.Store, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, a.Type(), "fetch_store")
	defer span.End()

	resp, err := a.fetchStores(ctx, a.cred.get())
	if err == nil && len(resp.Data) == 0 {
		err = &sales.DecodingError{Err: fmt.Errorf("no store found")}
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("lemonsqueezy: fetch store: %w", err)
	}

	store := convertLSStore(&resp.Data[0])
	telemetry.SetOK(span)
	return &store, nil
}

func (a *LemonSqueezyAdapter) fetchStores(ctx context.Context, key string) (*lsStoresResponse, error) {
	body, err := a.get(ctx, key, "/stores", nil)
	if err != nil {
		return nil, err
	}
	var resp lsStoresResponse
	if err := decodePayload(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateAPIKey checks key against /stores and adopts it when accepted
func (a *LemonSqueezyAdapter) ValidateAPIKey(ctx context.Context, key string) (bool, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, a.Type(), "validate_api_key")
	defer span.End()

	ok, err := a.cred.validate(ctx, key, func(ctx context.Context, key string) (bool, error) {
		_, err := a.get(ctx, key, "/stores", nil)
		return err == nil, err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return false, fmt.Errorf("lemonsqueezy: validate api key: %w", err)
	}
	telemetry.SetAttributes(span, "valid", ok)
	return ok, nil
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

func (a *LemonSqueezyAdapter) get(ctx context.Context, key, path string, params url.Values) ([]byte, error) {
	reqURL := a.config.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	header := http.Header{}
	header.Set("Accept", "application/vnd.api+json")
	header.Set("Authorization", "Bearer "+key)

	return doRequest(ctx, a.httpClient, reqURL, header, a.logger)
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func (a *LemonSqueezyAdapter) convertOrder(item *lsOrderItem) sales.Order {
	attrs := item.Attributes

	productName := "Unknown"
	var variantName *string
	if attrs.FirstOrderItem != nil {
		if attrs.FirstOrderItem.ProductName != "" {
			productName = attrs.FirstOrderItem.ProductName
		}
		variantName = attrs.FirstOrderItem.VariantName
	}

	var receiptURL *string
	if attrs.URLs != nil {
		receiptURL = attrs.URLs.Receipt
	}

	var taxRate *string
	if attrs.TaxRate != nil {
		v := string(*attrs.TaxRate)
		taxRate = &v
	}

	orderNumber := attrs.OrderNumber
	subtotal := attrs.Subtotal
	tax := attrs.Tax
	discount := attrs.DiscountTotal
	taxInclusive := attrs.TaxInclusive

	return sales.Order{
		ID:                     item.ID,
		OrderNumber:            &orderNumber,
		Status:                 sales.ParseOrderStatus(attrs.Status),
		Total:                  attrs.Total,
		Subtotal:               &subtotal,
		Tax:                    &tax,
		DiscountTotal:          &discount,
		Currency:               sales.NormalizeCurrency(attrs.Currency),
		CustomerEmail:          attrs.UserEmail,
		CustomerName:           attrs.UserName,
		ProductName:            productName,
		VariantName:            variantName,
		CreatedAt:              attrs.CreatedAt.Time,
		RefundedAt:             attrs.RefundedAt.ptr(),
		RefundedAmount:         attrs.RefundedAmount,
		Provider:               sales.ProviderLemonSqueezy,
		TotalFormatted:         stringPtr(attrs.TotalFormatted),
		SubtotalFormatted:      stringPtr(attrs.SubtotalFormatted),
		TaxFormatted:           stringPtr(attrs.TaxFormatted),
		DiscountTotalFormatted: stringPtr(attrs.DiscountTotalFormatted),
		TaxName:                attrs.TaxName,
		TaxRate:                taxRate,
		TaxInclusive:           &taxInclusive,
		ReceiptURL:             receiptURL,
		Identifier:             stringPtr(attrs.Identifier),
	}
}

func convertLSProduct(item *lsProductItem) sales.Product {
	attrs := item.Attributes
	return sales.Product{
		ID:              item.ID,
		Name:            attrs.Name,
		Slug:            attrs.Slug,
		Description:     attrs.Description,
		Price:           attrs.Price,
		Currency:        sales.DefaultCurrency,
		Status:          sales.ParseProductStatus(attrs.Status),
		CreatedAt:       attrs.CreatedAt.Time,
		Provider:        sales.ProviderLemonSqueezy,
		ThumbURL:        attrs.ThumbURL,
		LargeThumbURL:   attrs.LargeThumbURL,
		BuyNowURL:       attrs.BuyNowURL,
		PriceFormatted:  attrs.PriceFormatted,
		StatusFormatted: attrs.StatusFormatted,
	}
}

func convertLSStore(item *lsStoreItem) sales.Store {
	attrs := item.Attributes
	totalSales := attrs.TotalSales
	thirtyDaySales := attrs.ThirtyDaySales
	return sales.Store{
		ID:               item.ID,
		Name:             attrs.Name,
		Slug:             attrs.Slug,
		Currency:         sales.NormalizeCurrency(attrs.Currency),
		TotalRevenue:     attrs.TotalRevenue,
		ThirtyDayRevenue: attrs.ThirtyDayRevenue,
		Provider:         sales.ProviderLemonSqueezy,
		URL:              attrs.URL,
		AvatarURL:        attrs.AvatarURL,
		Plan:             attrs.Plan,
		Country:          attrs.Country,
		CountryNicename:  attrs.CountryNicename,
		TotalSales:       &totalSales,
		ThirtyDaySales:   &thirtyDaySales,
		CreatedAt:        attrs.CreatedAt.ptr(),
	}
}

// Ensure LemonSqueezyAdapter implements SalesProvider
var _ sales.SalesProvider = (*LemonSqueezyAdapter)(nil)
