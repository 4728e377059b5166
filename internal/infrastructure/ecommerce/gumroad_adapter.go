package ecommerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/revdash/backend/internal/domain/sales"
	"github.com/revdash/backend/internal/infrastructure/telemetry"
)

// gumroadUnsuccessfulStatus is reported when Gumroad answers 2xx with
// success=false
const gumroadUnsuccessfulStatus = http.StatusBadRequest

// GumroadAdapter implements sales.SalesProvider for the Gumroad v2 API.
// Sales are paginated by following next_page_url until it is absent.
type GumroadAdapter struct {
	config     *GumroadConfig
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
	cred       credential
}

// NewGumroadAdapter creates a new Gumroad adapter
func NewGumroadAdapter(config *GumroadConfig, opts ...Option) (*GumroadAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	// relative next_page_url values resolve below the versioned prefix
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}
	o := buildOptions(config.ClientConfig, opts)

	a := &GumroadAdapter{
		config:     config,
		baseURL:    baseURL,
		httpClient: o.httpClient,
		logger:     o.logger.Named("gumroad"),
		now:        o.now,
	}
	a.cred.set(config.AccessToken)
	return a, nil
}

// Type returns the provider type
func (a *GumroadAdapter) Type() sales.ProviderType {
	return sales.ProviderGumroad
}

// FetchAllOrders fetches every sale, following next_page_url
func (a *GumroadAdapter) FetchAllOrders(ctx context.Context) ([]sales.Order, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, a.Type(), "fetch_all_orders")
	defer span.End()

	key := a.cred.get()
	pageURL := a.endpoint("sales")
	var orders []sales.Order
	pages := 0
	for pageURL != nil {
		pages++
		resp, err := a.fetchSalesPage(ctx, key, pageURL)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("gumroad: fetch sales page %d: %w", pages, err)
		}
		for i := range resp.Sales {
			orders = append(orders, convertGumroadSale(&resp.Sales[i]))
		}

		pageURL, err = a.nextPageURL(resp.NextPageURL)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("gumroad: fetch sales page %d: %w", pages, err)
		}
		a.logger.Debug("fetched sales page",
			zap.Int("page", pages),
			zap.Int("count", len(resp.Sales)),
			zap.Bool("has_more", pageURL != nil),
		)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderCount, len(orders),
		telemetry.SpanAttrPageCount, pages,
	)
	telemetry.SetOK(span)
	return orders, nil
}

func (a *GumroadAdapter) fetchSalesPage(ctx context.Context, key string, pageURL *url.URL) (*gumroadSalesResponse, error) {
	body, err := a.get(ctx, key, pageURL)
	if err != nil {
		return nil, err
	}
	var resp gumroadSalesResponse
	if err := decodePayload(body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &sales.ServerError{StatusCode: gumroadUnsuccessfulStatus}
	}
	return &resp, nil
}

// nextPageURL resolves next_page_url against the API base. A nil or empty
// value ends pagination.
func (a *GumroadAdapter) nextPageURL(next *string) (*url.URL, error) {
	if next == nil || *next == "" {
		return nil, nil
	}
	ref, err := url.Parse(*next)
	if err != nil {
		return nil, &sales.DecodingError{Err: fmt.Errorf("invalid next_page_url %q: %w", *next, err)}
	}
	return a.baseURL.ResolveReference(ref), nil
}

// FetchProducts fetches all products
func (a *GumroadAdapter) FetchProducts(ctx context.Context) ([]sales.Product, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, a.Type(), "fetch_products")
	defer span.End()

	products, err := a.fetchProducts(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("gumroad: fetch products: %w", err)
	}
	telemetry.SetOK(span)
	return products, nil
}

func (a *GumroadAdapter) fetchProducts(ctx context.Context) ([]sales.Product, error) {
	body, err := a.get(ctx, a.cred.get(), a.endpoint("products"))
	if err != nil {
		return nil, err
	}
	var resp gumroadProductsResponse
	if err := decodePayload(body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &sales.ServerError{StatusCode: gumroadUnsuccessfulStatus}
	}

	fetchedAt := a.now().UTC()
	products := make([]sales.Product, 0, len(resp.Products))
	for i := range resp.Products {
		products = append(products, convertGumroadProduct(&resp.Products[i], fetchedAt))
	}
	return products, nil
}

// FetchStore builds the store from the authenticated user
func (a *GumroadAdapter) FetchStore(ctx context.Context) (*sales.Store, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, a.Type(), "fetch_store")
	defer span.End()

	resp, err := a.fetchUser(ctx, a.cred.get())
	if err == nil && (!resp.Success || resp.User == nil) {
		err = &sales.ServerError{StatusCode: gumroadUnsuccessfulStatus}
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("gumroad: fetch store: %w", err)
	}

	store := convertGumroadUser(resp.User)
	telemetry.SetOK(span)
	return &store, nil
}

func (a *GumroadAdapter) fetchUser(ctx context.Context, key string) (*gumroadUserResponse, error) {
	body, err := a.get(ctx, key, a.endpoint("user"))
	if err != nil {
		return nil, err
	}
	var resp gumroadUserResponse
	if err := decodePayload(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateAPIKey checks key against /user and adopts it when Gumroad
// reports success
func (a *GumroadAdapter) ValidateAPIKey(ctx context.Context, key string) (bool, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, a.Type(), "validate_api_key")
	defer span.End()

	ok, err := a.cred.validate(ctx, key, func(ctx context.Context, key string) (bool, error) {
		resp, err := a.fetchUser(ctx, key)
		if err != nil {
			return false, err
		}
		return resp.Success, nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return false, fmt.Errorf("gumroad: validate api key: %w", err)
	}
	telemetry.SetAttributes(span, "valid", ok)
	return ok, nil
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

func (a *GumroadAdapter) endpoint(path string) *url.URL {
	u := *a.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + path
	return &u
}

// get requests u with the access token replacing any token already present
// in its query
func (a *GumroadAdapter) get(ctx context.Context, key string, u *url.URL) ([]byte, error) {
	reqURL := *u
	reqURL.RawQuery = withAccessToken(reqURL.RawQuery, key)

	header := http.Header{}
	header.Set("Accept", "application/json")

	return doRequest(ctx, a.httpClient, reqURL.String(), header, a.logger)
}

// withAccessToken swaps the access_token parameter of rawQuery for key.
// Every other parameter is kept byte for byte, in its original position.
func withAccessToken(rawQuery, key string) string {
	params := make([]string, 0, strings.Count(rawQuery, "&")+2)
	for _, param := range strings.Split(rawQuery, "&") {
		if param == "" {
			continue
		}
		name, _, _ := strings.Cut(param, "=")
		if unescaped, err := url.QueryUnescape(name); err == nil && unescaped == "access_token" {
			continue
		}
		params = append(params, param)
	}
	params = append(params, "access_token="+url.QueryEscape(key))
	return strings.Join(params, "&")
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func convertGumroadSale(sale *gumroadSale) sales.Order {
	email := valueOr(sale.Email, "")
	name := valueOr(sale.FullName, valueOr(sale.Email, "Unknown"))

	status := sales.OrderStatusPaid
	if sale.Refunded != nil && *sale.Refunded {
		status = sales.OrderStatusRefunded
	}

	id := sale.ID
	return sales.Order{
		ID:             sale.ID,
		Status:         status,
		Total:          sale.Price,
		Currency:       sales.NormalizeCurrency(valueOr(sale.Currency, "")),
		CustomerEmail:  email,
		CustomerName:   name,
		ProductName:    valueOr(sale.ProductName, "Gumroad Sale"),
		VariantName:    sale.VariantName,
		CreatedAt:      sale.CreatedAt.Time,
		Provider:       sales.ProviderGumroad,
		TotalFormatted: sale.FormattedDisplayPrice,
		Identifier:     sale.OrderID,
		GumroadSaleID:  &id,
		IPCountry:      sale.IPCountry,
	}
}

func convertGumroadProduct(p *gumroadProduct, fetchedAt time.Time) sales.Product {
	status := sales.ProductStatusDraft
	statusFormatted := "Draft"
	if p.Published {
		status = sales.ProductStatusPublished
		statusFormatted = "Published"
	}

	createdAt := fetchedAt
	if t := p.CreatedAt.ptr(); t != nil {
		createdAt = *t
	}

	var thumbURL, previewURL *string
	if p.Thumbnail != nil {
		thumbURL = p.Thumbnail.URL
	}
	if p.Preview != nil {
		previewURL = p.Preview.URL
	}

	id := p.ID
	return sales.Product{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.CustomPermalink,
		Description:      p.Description,
		Price:            p.Price,
		Currency:         sales.NormalizeCurrency(valueOr(p.Currency, "")),
		Status:           status,
		CreatedAt:        createdAt,
		Provider:         sales.ProviderGumroad,
		ThumbURL:         thumbURL,
		LargeThumbURL:    previewURL,
		BuyNowURL:        p.ShortURL,
		PriceFormatted:   p.FormattedPrice,
		StatusFormatted:  &statusFormatted,
		TotalSales:       p.SalesCount,
		TotalRevenue:     p.SalesUSDCents,
		GumroadProductID: &id,
	}
}

func convertGumroadUser(user *gumroadUser) sales.Store {
	name := valueOr(user.DisplayName, valueOr(user.Name, "Gumroad Store"))

	var slug *string
	if user.URL != nil {
		s := *user.URL
		slug = stringPtr(s[strings.LastIndex(s, "/")+1:])
	}

	id := user.UserID
	return sales.Store{
		ID:            user.UserID,
		Name:          name,
		Slug:          slug,
		Currency:      sales.DefaultCurrency,
		Provider:      sales.ProviderGumroad,
		URL:           user.URL,
		AvatarURL:     user.ProfileURL,
		GumroadUserID: &id,
	}
}

// Ensure GumroadAdapter implements SalesProvider
var _ sales.SalesProvider = (*GumroadAdapter)(nil)
