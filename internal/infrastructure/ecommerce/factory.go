package ecommerce

import (
	"fmt"

	"github.com/revdash/backend/internal/domain/sales"
)

// ProviderSettings carries per-provider HTTP settings. Missing entries
// fall back to each provider's defaults.
type ProviderSettings map[sales.ProviderType]ClientConfig

// NewProviderFactory returns a sales.ProviderFactory that builds adapters
// with the given settings and options
func NewProviderFactory(settings ProviderSettings, opts ...Option) sales.ProviderFactory {
	return func(provider sales.ProviderType, apiKey string) (sales.SalesProvider, error) {
		client := settings[provider]

		switch provider {
		case sales.ProviderLemonSqueezy:
			a, err := NewLemonSqueezyAdapter(&LemonSqueezyConfig{APIKey: apiKey, ClientConfig: client}, opts...)
			if err != nil {
				return nil, err
			}
			return a, nil
		case sales.ProviderGumroad:
			a, err := NewGumroadAdapter(&GumroadConfig{AccessToken: apiKey, ClientConfig: client}, opts...)
			if err != nil {
				return nil, err
			}
			return a, nil
		case sales.ProviderStripe:
			a, err := NewStripeAdapter(&StripeConfig{SecretKey: apiKey, ClientConfig: client}, opts...)
			if err != nil {
				return nil, err
			}
			return a, nil
		default:
			return nil, fmt.Errorf("%w: %q", sales.ErrUnknownProvider, provider)
		}
	}
}
