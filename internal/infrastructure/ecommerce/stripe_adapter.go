package ecommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"

	"github.com/revdash/backend/internal/domain/sales"
	"github.com/revdash/backend/internal/infrastructure/telemetry"
)

// stripeDecodeFailure prefixes the error stripe-go returns when a response
// body does not match the expected object. stripe-go formats the underlying
// json error with %v, so the message is the only signal left.
const stripeDecodeFailure = "Couldn't deserialize JSON"

// StripeAdapter implements sales.SalesProvider on top of stripe-go.
// Charges and products are paginated by the client's list iterators, which
// pass the last object id of each page as starting_after.
type StripeAdapter struct {
	config     *StripeConfig
	httpClient *http.Client
	logger     *zap.Logger
	cred       credential

	clientMu  sync.Mutex
	clientKey string
	api       *client.API
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, opts ...Option) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(config.ClientConfig, opts)

	a := &StripeAdapter{
		config:     config,
		httpClient: o.httpClient,
		logger:     o.logger.Named("stripe"),
	}
	a.cred.set(config.SecretKey)
	return a, nil
}

// Type returns the provider type
func (a *StripeAdapter) Type() sales.ProviderType {
	return sales.ProviderStripe
}

// FetchAllOrders lists every charge and keeps the paid ones
func (a *StripeAdapter) FetchAllOrders(ctx context.Context) ([]sales.Order, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, a.Type(), "fetch_all_orders")
	defer span.End()

	params := &stripe.ChargeListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(defaultPageSize)

	var orders []sales.Order
	seen := 0
	iter := a.client(a.cred.get()).Charges.List(params)
	for iter.Next() {
		seen++
		charge := iter.Charge()
		if !charge.Paid {
			continue
		}
		orders = append(orders, convertStripeCharge(charge))
	}
	if err := iter.Err(); err != nil {
		mapped := mapStripeError(err)
		telemetry.RecordError(span, mapped)
		return nil, fmt.Errorf("stripe: list charges: %w", mapped)
	}

	a.logger.Debug("listed charges", zap.Int("charges", seen), zap.Int("paid", len(orders)))
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderCount, len(orders))
	telemetry.SetOK(span)
	return orders, nil
}

// FetchProducts lists every active product. Stripe prices are separate
// objects, so products carry a zero price in USD.
func (a *StripeAdapter) FetchProducts(ctx context.Context) ([]sales.Product, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, a.Type(), "fetch_products")
	defer span.End()

	params := &stripe.ProductListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.Limit = stripe.Int64(defaultPageSize)

	var products []sales.Product
	iter := a.client(a.cred.get()).Products.List(params)
	for iter.Next() {
		products = append(products, convertStripeProduct(iter.Product()))
	}
	if err := iter.Err(); err != nil {
		mapped := mapStripeError(err)
		telemetry.RecordError(span, mapped)
		return nil, fmt.Errorf("stripe: list products: %w", mapped)
	}

	telemetry.SetOK(span)
	return products, nil
}

// FetchStore combines the account with its USD balance
func (a *StripeAdapter) FetchStore(ctx context.Context) (*sales.Store, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, a.Type(), "fetch_store")
	defer span.End()

	api := a.client(a.cred.get())
	account, err := fetchAccount(ctx, api)
	if err != nil {
		mapped := mapStripeError(err)
		telemetry.RecordError(span, mapped)
		return nil, fmt.Errorf("stripe: get account: %w", mapped)
	}

	balanceParams := &stripe.BalanceParams{}
	balanceParams.Context = ctx
	balance, err := api.Balance.Get(balanceParams)
	if err != nil {
		mapped := mapStripeError(err)
		telemetry.RecordError(span, mapped)
		return nil, fmt.Errorf("stripe: get balance: %w", mapped)
	}

	store := convertStripeAccount(account, balance)
	telemetry.SetOK(span)
	return &store, nil
}

// ValidateAPIKey checks key against /v1/account, falling back to a single
// charge listing when the account endpoint is unavailable for the key
func (a *StripeAdapter) ValidateAPIKey(ctx context.Context, key string) (bool, error) {
	ctx, span := telemetry.StartProviderSpan(ctx, a.Type(), "validate_api_key")
	defer span.End()

	ok, err := a.cred.validate(ctx, key, func(ctx context.Context, key string) (bool, error) {
		api := a.client(key)
		_, err := fetchAccount(ctx, api)
		mapped := mapStripeError(err)

		var serverErr *sales.ServerError
		if errors.As(mapped, &serverErr) && serverErr.StatusCode == http.StatusNotFound {
			a.logger.Debug("account endpoint unavailable, probing charges")
			params := &stripe.ChargeListParams{}
			params.Context = ctx
			params.Limit = stripe.Int64(1)
			params.Single = true
			iter := api.Charges.List(params)
			iter.Next()
			mapped = mapStripeError(iter.Err())
		}
		return mapped == nil, mapped
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return false, fmt.Errorf("stripe: validate api key: %w", err)
	}
	telemetry.SetAttributes(span, "valid", ok)
	return ok, nil
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// client returns a stripe-go client bound to key, reusing the last one
// built when the key is unchanged
func (a *StripeAdapter) client(key string) *client.API {
	a.clientMu.Lock()
	defer a.clientMu.Unlock()

	if a.api != nil && a.clientKey == key {
		return a.api
	}

	backendConfig := &stripe.BackendConfig{
		URL:               stripe.String(a.config.BaseURL),
		HTTPClient:        a.httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		EnableTelemetry:   stripe.Bool(false),
		LeveledLogger:     a.logger.Sugar(),
	}
	api := client.New(key, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	})

	a.api = api
	a.clientKey = key
	return api
}

// fetchAccount retrieves the authenticated account with ctx attached.
// The generated Accounts.Get takes no parameters, so the call goes
// through the backend directly.
func fetchAccount(ctx context.Context, api *client.API) (*stripe.Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	account := &stripe.Account{}
	err := api.Accounts.B.Call(http.MethodGet, "/v1/account", api.Accounts.Key, params, account)
	return account, err
}

// mapStripeError maps stripe-go failures onto the sales error taxonomy
func mapStripeError(err error) error {
	if err == nil {
		return nil
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if mapped := statusError(stripeErr.HTTPStatusCode); mapped != nil {
			return mapped
		}
		return &sales.ServerError{StatusCode: stripeErr.HTTPStatusCode}
	}
	if isJSONError(err) || strings.Contains(err.Error(), stripeDecodeFailure) {
		return &sales.DecodingError{Err: err}
	}
	return &sales.NetworkError{Err: err}
}

func isJSONError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func convertStripeCharge(charge *stripe.Charge) sales.Order {
	status := sales.OrderStatusPaid
	if charge.Refunded || (charge.Amount > 0 && charge.AmountRefunded >= charge.Amount) {
		status = sales.OrderStatusRefunded
	}

	var refundedAmount *int64
	if charge.AmountRefunded > 0 {
		v := charge.AmountRefunded
		refundedAmount = &v
	}

	email, name := "", "Unknown"
	if charge.BillingDetails != nil {
		email = charge.BillingDetails.Email
		if charge.BillingDetails.Name != "" {
			name = charge.BillingDetails.Name
		}
	}

	productName := charge.Description
	if productName == "" {
		productName = "Stripe Payment"
	}

	var paymentIntentID, paymentMethod *string
	if charge.PaymentIntent != nil {
		paymentIntentID = stringPtr(charge.PaymentIntent.ID)
	}
	if charge.PaymentMethodDetails != nil && charge.PaymentMethodDetails.Card != nil {
		paymentMethod = stringPtr(string(charge.PaymentMethodDetails.Card.Brand))
	}

	return sales.Order{
		ID:                    charge.ID,
		Status:                status,
		Total:                 charge.Amount,
		Currency:              sales.NormalizeCurrency(string(charge.Currency)),
		CustomerEmail:         email,
		CustomerName:          name,
		ProductName:           productName,
		CreatedAt:             time.Unix(charge.Created, 0).UTC(),
		RefundedAmount:        refundedAmount,
		Provider:              sales.ProviderStripe,
		ReceiptURL:            stringPtr(charge.ReceiptURL),
		StripePaymentIntentID: paymentIntentID,
		PaymentMethod:         paymentMethod,
	}
}

func convertStripeProduct(product *stripe.Product) sales.Product {
	status, statusFormatted := sales.ProductStatusInactive, "Inactive"
	if product.Active {
		status, statusFormatted = sales.ProductStatusActive, "Active"
	}

	var image *string
	if len(product.Images) > 0 {
		image = stringPtr(product.Images[0])
	}

	var defaultPrice *string
	if product.DefaultPrice != nil {
		defaultPrice = stringPtr(product.DefaultPrice.ID)
	}

	priceFormatted := "—"
	id := product.ID
	return sales.Product{
		ID:                 product.ID,
		Name:               product.Name,
		Description:        stringPtr(product.Description),
		Price:              0,
		Currency:           sales.DefaultCurrency,
		Status:             status,
		CreatedAt:          time.Unix(product.Created, 0).UTC(),
		Provider:           sales.ProviderStripe,
		ThumbURL:           image,
		LargeThumbURL:      image,
		PriceFormatted:     &priceFormatted,
		StatusFormatted:    &statusFormatted,
		StripeProductID:    &id,
		StripeDefaultPrice: defaultPrice,
	}
}

func convertStripeAccount(account *stripe.Account, balance *stripe.Balance) sales.Store {
	name := "Stripe Account"
	var storeURL *string
	if account.BusinessProfile != nil {
		if account.BusinessProfile.Name != "" {
			name = account.BusinessProfile.Name
		}
		storeURL = stringPtr(account.BusinessProfile.URL)
	}

	var totalRevenue int64
	for _, amount := range balance.Available {
		if amount.Currency == stripe.CurrencyUSD {
			totalRevenue += amount.Amount
			break
		}
	}
	for _, amount := range balance.Pending {
		if amount.Currency == stripe.CurrencyUSD {
			totalRevenue += amount.Amount
			break
		}
	}

	var createdAt *time.Time
	if account.Created > 0 {
		t := time.Unix(account.Created, 0).UTC()
		createdAt = &t
	}

	id := account.ID
	return sales.Store{
		ID:              account.ID,
		Name:            name,
		Currency:        sales.NormalizeCurrency(string(account.DefaultCurrency)),
		TotalRevenue:    totalRevenue,
		Provider:        sales.ProviderStripe,
		URL:             storeURL,
		Country:         stringPtr(account.Country),
		CreatedAt:       createdAt,
		StripeAccountID: &id,
		StripeEmail:     stringPtr(account.Email),
	}
}

// Ensure StripeAdapter implements SalesProvider
var _ sales.SalesProvider = (*StripeAdapter)(nil)
