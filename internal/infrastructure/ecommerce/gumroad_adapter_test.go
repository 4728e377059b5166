package ecommerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revdash/backend/internal/domain/sales"
)

func TestGumroadConfig_Validate(t *testing.T) {
	config := &GumroadConfig{}
	assert.ErrorIs(t, config.Validate(), ErrGumroadConfigMissingAPIKey)

	config = &GumroadConfig{AccessToken: "gr_token"}
	require.NoError(t, config.Validate())
	assert.Equal(t, GumroadAPIURL, config.BaseURL)
	assert.Equal(t, defaultBurst, config.Burst)
}

type recordedRequest struct {
	path     string
	query    map[string][]string
	rawQuery string
}

// gumroadMockServer serves canned JSON bodies per path and records every request
type gumroadMockServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	server   *httptest.Server
}

func newGumroadMockServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *gumroadMockServer {
	t.Helper()
	m := &gumroadMockServer{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, recordedRequest{path: r.URL.Path, query: r.URL.Query(), rawQuery: r.URL.RawQuery})
		m.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *gumroadMockServer) recorded() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedRequest(nil), m.requests...)
}

func (m *gumroadMockServer) adapter(t *testing.T, opts ...Option) *GumroadAdapter {
	t.Helper()
	config := NewGumroadConfig("gr_token")
	config.BaseURL = m.server.URL + "/v2"
	adapter, err := NewGumroadAdapter(config, opts...)
	require.NoError(t, err)
	return adapter
}

func TestGumroadAdapter_FetchAllOrders_FollowsNextPageURL(t *testing.T) {
	mock := newGumroadMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/sales", r.URL.Path)
		switch r.URL.Query().Get("page_key") {
		case "":
			_, _ = w.Write([]byte(`{"success": true, "next_page_url": "/v2/sales?page_key=abc&access_token=stale",
				"sales": [{"id": "s1", "email": "ann@example.com", "full_name": "Ann", "product_name": "Ebook",
				"price": 1500, "currency": "usd", "refunded": false, "formatted_display_price": "$15",
				"order_id": "ord-1", "ip_country": "Sweden", "created_at": "2025-06-15T10:00:00Z"}]}`))
		case "abc":
			_, _ = w.Write([]byte(`{"success": true, "next_page_url": null,
				"sales": [{"id": "s2", "email": "bob@example.com", "price": 900, "refunded": true,
				"created_at": "2025-06-14T10:00:00+0000"}]}`))
		default:
			t.Errorf("unexpected page_key %q", r.URL.Query().Get("page_key"))
		}
	})

	orders, err := mock.adapter(t).FetchAllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)

	requests := mock.recorded()
	require.Len(t, requests, 2, "pagination must stop when next_page_url is null")
	assert.Equal(t, []string{"gr_token"}, requests[0].query["access_token"])
	assert.Equal(t, []string{"abc"}, requests[1].query["page_key"])
	assert.Equal(t, []string{"gr_token"}, requests[1].query["access_token"])

	first := orders[0]
	assert.Equal(t, "s1", first.ID)
	assert.Equal(t, sales.OrderStatusPaid, first.Status)
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, "Ann", first.CustomerName)
	assert.Equal(t, "Ebook", first.ProductName)
	assert.Equal(t, "ord-1", *first.Identifier)
	assert.Equal(t, "s1", *first.GumroadSaleID)
	assert.Equal(t, "Sweden", *first.IPCountry)
	assert.Equal(t, "$15", first.DisplayTotal())

	second := orders[1]
	assert.Equal(t, sales.OrderStatusRefunded, second.Status)
	assert.Equal(t, "bob@example.com", second.CustomerName)
	assert.Equal(t, "Gumroad Sale", second.ProductName)
	assert.Equal(t, time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC), second.CreatedAt)
}

func TestGumroadAdapter_FetchAllOrders_RelativeNextPage(t *testing.T) {
	mock := newGumroadMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_key") == "" {
			_, _ = w.Write([]byte(`{"success": true, "next_page_url": "sales?page_key=rel", "sales": []}`))
			return
		}
		_, _ = w.Write([]byte(`{"success": true, "next_page_url": "", "sales": []}`))
	})

	_, err := mock.adapter(t).FetchAllOrders(context.Background())
	require.NoError(t, err)

	requests := mock.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, "/v2/sales", requests[1].path)
}

func TestGumroadAdapter_FetchAllOrders_KeepsNextPageQuery(t *testing.T) {
	mock := newGumroadMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_key") == "" {
			_, _ = w.Write([]byte(`{"success": true,
				"next_page_url": "/v2/sales?z=1&page_key=a%2Fb+c&access_token=stale&a=2", "sales": []}`))
			return
		}
		_, _ = w.Write([]byte(`{"success": true, "sales": []}`))
	})

	_, err := mock.adapter(t).FetchAllOrders(context.Background())
	require.NoError(t, err)

	requests := mock.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, "z=1&page_key=a%2Fb+c&a=2&access_token=gr_token", requests[1].rawQuery)
}

func TestWithAccessToken(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		want     string
	}{
		{"empty", "", "access_token=tok%2B1"},
		{"appends", "page_key=abc", "page_key=abc&access_token=tok%2B1"},
		{"replaces stale token", "access_token=old&page_key=abc", "page_key=abc&access_token=tok%2B1"},
		{"replaces escaped name", "access%5Ftoken=old&b=2", "b=2&access_token=tok%2B1"},
		{"keeps order and escaping", "z=%7E&a=1&&b", "z=%7E&a=1&b&access_token=tok%2B1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withAccessToken(tt.rawQuery, "tok+1"))
		})
	}
}

func TestGumroadAdapter_FetchAllOrders_Unsuccessful(t *testing.T) {
	mock := newGumroadMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "sales": []}`))
	})

	_, err := mock.adapter(t).FetchAllOrders(context.Background())
	var serverErr *sales.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusBadRequest, serverErr.StatusCode)
}

func TestGumroadAdapter_FetchProducts(t *testing.T) {
	fetchedAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	mock := newGumroadMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/products", r.URL.Path)
		_, _ = w.Write([]byte(`{"success": true, "products": [
			{"id": "g1", "name": "Ebook", "price": 1500, "currency": "usd", "published": true,
			 "formatted_price": "$15", "short_url": "https://gum.co/ebook", "sales_count": 12, "sales_usd_cents": 18000,
			 "thumbnail": {"url": "https://example.com/t.png"}, "preview": {"url": "https://example.com/p.png"}},
			{"id": "g2", "name": "Course", "price": 4900, "published": false, "created_at": "2024-03-01T00:00:00Z"}
		]}`))
	})

	products, err := mock.adapter(t, WithClock(func() time.Time { return fetchedAt })).FetchProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	ebook := products[0]
	assert.Equal(t, sales.ProductStatusPublished, ebook.Status)
	assert.Equal(t, "Published", *ebook.StatusFormatted)
	assert.Equal(t, fetchedAt, ebook.CreatedAt)
	assert.Equal(t, 12, *ebook.TotalSales)
	assert.Equal(t, int64(18000), *ebook.TotalRevenue)
	assert.Equal(t, "https://example.com/p.png", *ebook.LargeThumbURL)
	assert.Equal(t, "g1", *ebook.GumroadProductID)

	course := products[1]
	assert.Equal(t, sales.ProductStatusDraft, course.Status)
	assert.Equal(t, "USD", course.Currency)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), course.CreatedAt)
}

func TestGumroadAdapter_FetchStore(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantName string
		wantSlug *string
	}{
		{
			name:     "display name",
			body:     `{"success": true, "user": {"user_id": "u1", "name": "ann", "display_name": "Ann's Shop", "url": "https://gumroad.com/annshop"}}`,
			wantName: "Ann's Shop",
			wantSlug: stringPtr("annshop"),
		},
		{
			name:     "name fallback",
			body:     `{"success": true, "user": {"user_id": "u1", "name": "ann"}}`,
			wantName: "ann",
		},
		{
			name:     "default name",
			body:     `{"success": true, "user": {"user_id": "u1"}}`,
			wantName: "Gumroad Store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newGumroadMockServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v2/user", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})

			store, err := mock.adapter(t).FetchStore(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, store.Name)
			assert.Equal(t, tt.wantSlug, store.Slug)
			assert.Equal(t, "USD", store.Currency)
			assert.Zero(t, store.TotalRevenue)
			assert.Equal(t, "u1", *store.GumroadUserID)
		})
	}
}

func TestGumroadAdapter_ValidateAPIKey(t *testing.T) {
	mock := newGumroadMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("access_token") {
		case "gr_token", "new_token":
			_, _ = w.Write([]byte(`{"success": true, "user": {"user_id": "u1"}}`))
		case "refused_token":
			_, _ = w.Write([]byte(`{"success": false}`))
		case "broken_token":
			_, _ = w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	adapter := mock.adapter(t)

	ok, err := adapter.ValidateAPIKey(context.Background(), "bad_token")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = adapter.ValidateAPIKey(context.Background(), "refused_token")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = adapter.ValidateAPIKey(context.Background(), "broken_token")
	assert.False(t, ok)
	assert.Equal(t, sales.ErrorKindDecoding, sales.KindOf(err))
	assert.Equal(t, "gr_token", adapter.cred.get())

	ok, err = adapter.ValidateAPIKey(context.Background(), "new_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new_token", adapter.cred.get())
}
