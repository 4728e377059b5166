package ecommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/revdash/backend/internal/domain/sales"
)

func TestStatusError(t *testing.T) {
	tests := []struct {
		code int
		kind sales.ErrorKind
	}{
		{http.StatusOK, sales.ErrorKindNone},
		{http.StatusNoContent, sales.ErrorKindNone},
		{http.StatusUnauthorized, sales.ErrorKindInvalidAPIKey},
		{http.StatusTooManyRequests, sales.ErrorKindRateLimited},
		{http.StatusForbidden, sales.ErrorKindServer},
		{http.StatusNotFound, sales.ErrorKindServer},
		{http.StatusInternalServerError, sales.ErrorKindServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.kind, sales.KindOf(statusError(tt.code)))
		})
	}
}

func TestAPITime_UnmarshalJSON(t *testing.T) {
	want := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", `"2025-06-15T10:30:00Z"`, want},
		{"fractional seconds", `"2025-06-15T10:30:00.000000Z"`, want},
		{"numeric offset", `"2025-06-15T12:30:00+0200"`, want},
		{"colon offset", `"2025-06-15T03:30:00-07:00"`, want},
		{"null", `null`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got apiTime
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.True(t, tt.want.Equal(got.Time), "got %s", got.Time)
		})
	}

	var bad apiTime
	assert.Error(t, json.Unmarshal([]byte(`"15/06/2025"`), &bad))
	assert.Nil(t, (*apiTime)(nil).ptr())
	assert.Nil(t, (&apiTime{}).ptr())
}

func TestFlexString_UnmarshalJSON(t *testing.T) {
	var payload struct {
		Rate *flexString `json:"rate"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"rate": "21.00"}`), &payload))
	assert.Equal(t, flexString("21.00"), *payload.Rate)

	require.NoError(t, json.Unmarshal([]byte(`{"rate": 7.5}`), &payload))
	assert.Equal(t, flexString("7.5"), *payload.Rate)

	payload.Rate = nil
	require.NoError(t, json.Unmarshal([]byte(`{"rate": null}`), &payload))
	assert.Nil(t, payload.Rate)

	assert.Error(t, json.Unmarshal([]byte(`{"rate": {}}`), &payload))
}

func TestDecodePayload(t *testing.T) {
	var resp gumroadUserResponse

	err := decodePayload([]byte(`{"success": true, "user": {"name": "no id"}}`), &resp)
	var decodingErr *sales.DecodingError
	assert.ErrorAs(t, err, &decodingErr)

	err = decodePayload([]byte(`{"success": true, "user": {"user_id": "u1"}}`), &resp)
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User.UserID)
}

func TestRateLimitedTransport_HonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Transport: &rateLimitedTransport{
		limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
		next:    http.DefaultTransport,
	}}

	_, err := doRequest(context.Background(), client, server.URL, nil, zap.NewNop())
	require.NoError(t, err)

	// the bucket is now empty; the next request must give up with its context
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = doRequest(ctx, client, server.URL, nil, zap.NewNop())
	var netErr *sales.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestNewProviderFactory(t *testing.T) {
	factory := NewProviderFactory(ProviderSettings{
		sales.ProviderGumroad: {BaseURL: "http://127.0.0.1:1/v2"},
	})

	for _, p := range sales.AllProviders() {
		provider, err := factory(p, "key")
		require.NoError(t, err)
		assert.Equal(t, p, provider.Type())
	}

	gumroad, err := factory(sales.ProviderGumroad, "key")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:1/v2/", gumroad.(*GumroadAdapter).baseURL.String())

	_, err = factory(sales.ProviderStripe, "")
	assert.ErrorIs(t, err, ErrStripeConfigMissingAPIKey)

	_, err = factory(sales.ProviderType("paddle"), "key")
	assert.ErrorIs(t, err, sales.ErrUnknownProvider)
}
