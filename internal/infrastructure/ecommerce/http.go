package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/revdash/backend/internal/domain/sales"
)

// maxResponseSize is the maximum allowed response size from a provider API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// defaultPageSize is the page size requested from paginated endpoints
const defaultPageSize = 100

// payloadValidator checks required fields of decoded wire payloads, so a
// response missing them surfaces as a decoding error like any other schema
// mismatch.
var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

// ---------------------------------------------------------------------------
// HTTP client
// ---------------------------------------------------------------------------

// rateLimitedTransport paces outgoing requests through a token bucket.
// Waiting honours the request context.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// newHTTPClient builds the client shared by an adapter's requests
func newHTTPClient(cfg ClientConfig) *http.Client {
	return &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		Transport: &rateLimitedTransport{
			limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
			next:    http.DefaultTransport,
		},
	}
}

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// doRequest performs a GET request and applies the shared failure mapping:
// transport failures become *sales.NetworkError, non-2xx statuses go
// through statusError.
func doRequest(ctx context.Context, client *http.Client, rawURL string, header http.Header, logger *zap.Logger) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &sales.NetworkError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, &sales.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &sales.NetworkError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	logger.Debug("provider request completed",
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}

// statusError maps an HTTP status code onto the sales error taxonomy.
// It returns nil for 2xx.
func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return sales.ErrInvalidAPIKey
	case code == http.StatusTooManyRequests:
		return sales.ErrRateLimited
	default:
		return &sales.ServerError{StatusCode: code}
	}
}

// decodePayload unmarshals body into v and validates its required fields
func decodePayload(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &sales.DecodingError{Err: err}
	}
	if err := payloadValidator.Struct(v); err != nil {
		return &sales.DecodingError{Err: err}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Wire helper types
// ---------------------------------------------------------------------------

// apiTimeLayouts are the timestamp formats accepted from provider APIs,
// tried in order.
var apiTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.000000Z0700",
	"2006-01-02 15:04:05",
}

// apiTime is an ISO8601 timestamp with or without fractional seconds,
// normalized to UTC.
type apiTime struct {
	time.Time
}

func (t *apiTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range apiTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// ptr returns the time as a pointer, nil when t is nil or zero
func (t *apiTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// flexString accepts a JSON string or a bare number and keeps its text
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// stringPtr returns nil for an empty string
func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// valueOr returns *p or fallback when p is nil or empty
func valueOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}
