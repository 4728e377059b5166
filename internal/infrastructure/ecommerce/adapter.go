package ecommerce

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/revdash/backend/internal/domain/sales"
)

// Option configures a provider adapter
type Option func(*adapterOptions)

type adapterOptions struct {
	logger     *zap.Logger
	httpClient *http.Client
	now        func() time.Time
}

// WithLogger sets the logger used for request and pagination logs
func WithLogger(logger *zap.Logger) Option {
	return func(o *adapterOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHTTPClient replaces the rate-limited client built from the config
func WithHTTPClient(client *http.Client) Option {
	return func(o *adapterOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithClock overrides the time source used for fallback timestamps
func WithClock(now func() time.Time) Option {
	return func(o *adapterOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(cfg ClientConfig, opts []Option) adapterOptions {
	o := adapterOptions{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = newHTTPClient(cfg)
	}
	return o
}

// credential holds an adapter's current API key. Validation serializes on
// validating and only replaces the key once the candidate was accepted.
type credential struct {
	mu         sync.RWMutex
	validating sync.Mutex
	key        string
}

func (c *credential) get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

func (c *credential) set(key string) {
	c.mu.Lock()
	c.key = key
	c.mu.Unlock()
}

// validate runs probe with the candidate key. An accepted key replaces the
// current one; a rejected key (401 or an explicit refusal) yields false
// with no error, and any other failure is returned as is.
func (c *credential) validate(ctx context.Context, key string, probe func(ctx context.Context, key string) (bool, error)) (bool, error) {
	c.validating.Lock()
	defer c.validating.Unlock()

	ok, err := probe(ctx, key)
	switch {
	case errors.Is(err, sales.ErrInvalidAPIKey):
		return false, nil
	case err != nil:
		return false, err
	case !ok:
		return false, nil
	}
	c.set(key)
	return true, nil
}
