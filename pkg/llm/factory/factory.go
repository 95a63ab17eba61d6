// Package factory builds model gateway clients from configuration: it
// resolves a model name to its provider, pulls the provider's API key from
// the secrets layer, and wraps the raw adapter with retry and metrics
// middleware.
package factory

import (
	"fmt"

	"intake/pkg/config"
	"intake/pkg/llm"
	"intake/pkg/llm/anthropic"
	"intake/pkg/llm/google"
	"intake/pkg/llm/middleware/logging"
	"intake/pkg/llm/middleware/metrics"
	"intake/pkg/llm/middleware/retry"
	"intake/pkg/llm/ollama"
	"intake/pkg/llm/openai"
)

// Factory creates gateway clients for configured models.
type Factory struct {
	cfg      config.Config
	recorder metrics.Recorder
}

// New creates a client factory. recorder may be nil to disable metrics.
func New(cfg config.Config, recorder metrics.Recorder) *Factory {
	return &Factory{cfg: cfg, recorder: recorder}
}

// NewClient builds a middleware-wrapped client for the given model name.
func (f *Factory) NewClient(model string) (llm.Client, error) {
	base, err := f.newRawClient(model)
	if err != nil {
		return nil, err
	}

	middlewares := []llm.Middleware{
		retry.Middleware(retry.DefaultPolicy()),
		logging.Middleware(),
	}
	if f.recorder != nil {
		// Metrics outermost so retries count as one observed request.
		middlewares = append([]llm.Middleware{metrics.Middleware(f.recorder)}, middlewares...)
	}
	return llm.Chain(base, middlewares...), nil
}

func (f *Factory) newRawClient(model string) (llm.Client, error) {
	provider, err := config.GetModelProvider(model)
	if err != nil {
		return nil, err
	}
	timeout := f.cfg.GatewayTimeout()

	switch provider {
	case config.ProviderAnthropic:
		apiKey, err := config.GetSecret(config.EnvAnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("anthropic client: %w", err)
		}
		return anthropic.NewClient(apiKey, model, timeout), nil
	case config.ProviderOpenAI:
		apiKey, err := config.GetSecret(config.EnvOpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		return openai.NewClient(apiKey, model, timeout), nil
	case config.ProviderGoogle:
		apiKey, err := config.GetSecret(config.EnvGoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("google client: %w", err)
		}
		return google.NewClient(apiKey, model, timeout), nil
	case config.ProviderOllama:
		return ollama.NewClient(f.cfg.OllamaHost, config.StripProviderPrefix(model), timeout), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q for model %q", provider, model)
	}
}
