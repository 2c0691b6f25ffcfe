package adapter

import (
	"context"
	"fmt"

	"github.com/zen-systems/toolroute/pkg/config"
)

// Adapter defines the interface for completion model providers.
type Adapter interface {
	// Complete sends one system+user exchange and returns the model's reply.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name returns the adapter's identifier.
	Name() string
}

// Request is a single chat completion call.
type Request struct {
	Model       string
	System      string
	User        string
	MaxTokens   int64
	Temperature float64
	// JSON asks the provider to constrain output to a JSON object.
	JSON bool
}

// New builds the adapter selected by cfg.Provider. When cfg.RequestsPerSecond
// is positive the adapter is wrapped in a client-side rate limiter.
func New(cfg config.ModelConfig) (Adapter, error) {
	var (
		a   Adapter
		err error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		a, err = NewOpenAIAdapter(cfg.BaseURL, cfg.APIKey)
	case config.ProviderAnthropic:
		a, err = NewAnthropicAdapter(cfg.APIKey, cfg.BaseURL)
	case config.ProviderGoogle:
		a, err = NewGoogleAdapter(context.Background(), cfg.APIKey, cfg.BaseURL)
	case config.ProviderMock:
		a = NewMockAdapter()
	default:
		return nil, &config.ConfigurationError{
			Field:  "model.provider",
			Reason: fmt.Sprintf("unsupported provider %q", cfg.Provider),
		}
	}
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond > 0 {
		a = NewRateLimited(a, cfg.RequestsPerSecond, 1)
	}
	return a, nil
}
