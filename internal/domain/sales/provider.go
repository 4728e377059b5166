package sales

import (
	"context"
)

// ---------------------------------------------------------------------------
// ProviderType identifies a sales platform
// ---------------------------------------------------------------------------

// ProviderType identifies the sales platform an order, product or store came from
type ProviderType string

const (
	// ProviderLemonSqueezy represents Lemon Squeezy (page-number pagination)
	ProviderLemonSqueezy ProviderType = "lemonsqueezy"
	// ProviderGumroad represents Gumroad (next-page URL pagination)
	ProviderGumroad ProviderType = "gumroad"
	// ProviderStripe represents Stripe (starting_after cursor pagination)
	ProviderStripe ProviderType = "stripe"
)

// AllProviders returns every supported provider in display order.
// The order is also the merge order used when combining provider results.
func AllProviders() []ProviderType {
	return []ProviderType{ProviderLemonSqueezy, ProviderGumroad, ProviderStripe}
}

// IsValid returns true if the provider type is supported
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderLemonSqueezy, ProviderGumroad, ProviderStripe:
		return true
	default:
		return false
	}
}

// String returns the string representation of ProviderType
func (p ProviderType) String() string {
	return string(p)
}

// DisplayName returns a human-readable name for the provider
func (p ProviderType) DisplayName() string {
	switch p {
	case ProviderLemonSqueezy:
		return "Lemon Squeezy"
	case ProviderGumroad:
		return "Gumroad"
	case ProviderStripe:
		return "Stripe"
	default:
		return string(p)
	}
}

// ParseProviderType converts a raw string into a ProviderType
func ParseProviderType(raw string) (ProviderType, error) {
	p := ProviderType(raw)
	if !p.IsValid() {
		return "", ErrUnknownProvider
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// SalesProvider Port Interface
// ---------------------------------------------------------------------------

// SalesProvider defines the port interface for a sales platform adapter.
// Each platform (Lemon Squeezy, Gumroad, Stripe) has one implementation in
// the infrastructure layer that translates the platform's wire protocol into
// the shared domain model.
//
// Implementations never write to the platform. They own nothing beyond the
// lifetime of a single call except the API key.
type SalesProvider interface {
	// Type returns the provider this adapter handles
	Type() ProviderType

	// FetchAllOrders retrieves every order of the account, following the
	// platform's pagination until the last page. Pages are appended in the
	// order the server returns them.
	FetchAllOrders(ctx context.Context) ([]Order, error)

	// FetchProducts retrieves the product catalog
	FetchProducts(ctx context.Context) ([]Product, error)

	// FetchStore retrieves the single store/account record
	FetchStore(ctx context.Context) (*Store, error)

	// ValidateAPIKey performs one cheap authenticated request with the
	// candidate key. A rejected key yields (false, nil); any other failure
	// yields (false, err). On every failure path the previously configured
	// key is restored, so a failed validation never changes adapter state.
	ValidateAPIKey(ctx context.Context, key string) (bool, error)
}

// ProviderFactory builds an adapter for a provider from an API key
type ProviderFactory func(provider ProviderType, apiKey string) (SalesProvider, error)

// CredentialSource supplies API keys for configured providers.
// Secure storage of the keys is owned by the implementation.
type CredentialSource interface {
	// APIKey returns the key for the provider and whether one is configured
	APIKey(provider ProviderType) (string, bool)
}
