package ecommerce

import (
	"errors"
	"fmt"
)

const (
	// LemonSqueezyAPIURL is the production Lemon Squeezy API base URL
	LemonSqueezyAPIURL = "https://api.lemonsqueezy.com/v1"
	// GumroadAPIURL is the production Gumroad API base URL
	GumroadAPIURL = "https://api.gumroad.com/v2"
	// StripeAPIURL is the production Stripe API host; the client adds the /v1 prefix
	StripeAPIURL = "https://api.stripe.com"

	defaultTimeoutSeconds = 30
	defaultBurst          = 5
)

// Errors for provider configuration
var (
	ErrLemonSqueezyConfigMissingAPIKey = errors.New("lemonsqueezy: API key is required")
	ErrGumroadConfigMissingAPIKey      = errors.New("gumroad: access token is required")
	ErrStripeConfigMissingAPIKey       = errors.New("stripe: secret key is required")
	ErrConfigInvalid                   = errors.New("ecommerce: invalid client configuration")
)

// ClientConfig holds the HTTP settings shared by every provider adapter
type ClientConfig struct {
	// BaseURL is the API base URL (overridable for tests and proxies)
	BaseURL string `validate:"required,url"`
	// TimeoutSeconds bounds each HTTP request, including reading the body
	TimeoutSeconds int `validate:"gt=0"`
	// RequestsPerSecond paces requests to stay under the platform's rate limit
	RequestsPerSecond float64 `validate:"gt=0"`
	// Burst is the number of requests allowed back to back
	Burst int `validate:"gte=1"`
}

func (c *ClientConfig) applyDefaults(baseURL string, requestsPerSecond float64) {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = requestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
}

func (c *ClientConfig) validate() error {
	if err := payloadValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Per-provider configuration
// ---------------------------------------------------------------------------

// LemonSqueezyConfig holds configuration for the Lemon Squeezy adapter
type LemonSqueezyConfig struct {
	// APIKey is sent as a bearer token
	APIKey string
	ClientConfig
}

// NewLemonSqueezyConfig creates a Lemon Squeezy configuration with defaults
func NewLemonSqueezyConfig(apiKey string) *LemonSqueezyConfig {
	c := &LemonSqueezyConfig{APIKey: apiKey}
	c.applyDefaults(LemonSqueezyAPIURL, 5)
	return c
}

// Validate validates the configuration and fills in defaults
func (c *LemonSqueezyConfig) Validate() error {
	if c.APIKey == "" {
		return ErrLemonSqueezyConfigMissingAPIKey
	}
	// Lemon Squeezy allows 300 requests per minute
	c.applyDefaults(LemonSqueezyAPIURL, 5)
	return c.validate()
}

// GumroadConfig holds configuration for the Gumroad adapter
type GumroadConfig struct {
	// AccessToken is sent as the access_token query parameter
	AccessToken string
	ClientConfig
}

// NewGumroadConfig creates a Gumroad configuration with defaults
func NewGumroadConfig(accessToken string) *GumroadConfig {
	c := &GumroadConfig{AccessToken: accessToken}
	c.applyDefaults(GumroadAPIURL, 5)
	return c
}

// Validate validates the configuration and fills in defaults
func (c *GumroadConfig) Validate() error {
	if c.AccessToken == "" {
		return ErrGumroadConfigMissingAPIKey
	}
	c.applyDefaults(GumroadAPIURL, 5)
	return c.validate()
}

// StripeConfig holds configuration for the Stripe adapter
type StripeConfig struct {
	// SecretKey is a secret or restricted key (sk_ / rk_)
	SecretKey string
	ClientConfig
}

// NewStripeConfig creates a Stripe configuration with defaults
func NewStripeConfig(secretKey string) *StripeConfig {
	c := &StripeConfig{SecretKey: secretKey}
	c.applyDefaults(StripeAPIURL, 25)
	return c
}

// Validate validates the configuration and fills in defaults
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return ErrStripeConfigMissingAPIKey
	}
	// Stripe allows 25 read requests per second in live mode
	c.applyDefaults(StripeAPIURL, 25)
	return c.validate()
}
