package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wolfman30/callflow-ai/internal/agent"
	"github.com/wolfman30/callflow-ai/internal/config"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

// Provider names. The first four are selectable per session; bedrock is only
// reachable as a fallback.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderGoogle     = "google"
	ProviderBedrock    = "bedrock"
)

type backend struct {
	client LLMClient
	model  string
}

// Factory resolves a session's provider name into a completion provider.
// It is built once at startup and is read-only afterwards.
type Factory struct {
	backends     map[string]backend
	fallbackName string
	observer     Observer
	closers      []io.Closer
	logger       *logging.Logger
}

type FactoryOption func(*Factory)

func WithObserver(o Observer) FactoryOption {
	return func(f *Factory) { f.observer = o }
}

func WithFactoryLogger(logger *logging.Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		backends: make(map[string]backend),
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register binds name to client using model for every request.
func (f *Factory) Register(name string, client LLMClient, model string) {
	name = normalizeProvider(name)
	f.backends[name] = backend{client: instrument(name, client, f.observer), model: model}
	if c, ok := client.(io.Closer); ok {
		f.closers = append(f.closers, c)
	}
}

// SetFallback names the provider tried when the session's provider fails.
func (f *Factory) SetFallback(name string) error {
	name = normalizeProvider(name)
	if name == "" {
		f.fallbackName = ""
		return nil
	}
	if _, ok := f.backends[name]; !ok {
		return fmt.Errorf("llm: fallback provider %q: %w", name, ErrProviderNotConfigured)
	}
	f.fallbackName = name
	return nil
}

// Provider never fails. Unknown names resolve to openai; a provider without
// credentials yields ErrProviderNotConfigured when the completion is requested,
// so template strategies keep working without any key.
func (f *Factory) Provider(name string, params Params) agent.TextCompletionProvider {
	name = resolveProvider(name)
	b, ok := f.backends[name]
	if !ok {
		b = backend{client: unconfiguredClient{name: name}}
	}

	client := b.client
	if f.fallbackName != "" && f.fallbackName != name {
		fb := f.backends[f.fallbackName]
		client = NewFallbackClient(client, fb.client, fb.model, f.logger)
	}
	return NewCompleter(client, b.model, params)
}

// Configured reports whether name has a registered client.
func (f *Factory) Configured(name string) bool {
	_, ok := f.backends[normalizeProvider(name)]
	return ok
}

func (f *Factory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewFactoryFromConfig constructs every provider whose credentials are present.
func NewFactoryFromConfig(ctx context.Context, cfg *config.Config, opts ...FactoryOption) (*Factory, error) {
	f := NewFactory(opts...)

	if cfg.OpenAIAPIKey != "" {
		client, err := NewOpenAIClient(OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			return nil, err
		}
		f.Register(ProviderOpenAI, client, cfg.OpenAIModel)
	}

	if cfg.AnthropicAPIKey != "" {
		client, err := NewAnthropicClient(cfg.AnthropicAPIKey, cfg.LLMTimeout)
		if err != nil {
			return nil, err
		}
		f.Register(ProviderAnthropic, client, cfg.AnthropicModel)
	}

	if cfg.OpenRouterAPIKey != "" {
		client, err := NewOpenAIClient(OpenAIConfig{
			BaseURL: cfg.OpenRouterBaseURL,
			APIKey:  cfg.OpenRouterAPIKey,
			Timeout: cfg.LLMTimeout,
			Headers: map[string]string{"X-Title": "CallFlow AI"},
		})
		if err != nil {
			return nil, err
		}
		f.Register(ProviderOpenRouter, client, cfg.OpenRouterModel)
	}

	if cfg.GeminiAPIKey != "" {
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		f.Register(ProviderGoogle, client, cfg.GeminiModel)
	}

	if cfg.BedrockModelID != "" {
		client, err := NewBedrockClientFromConfig(ctx, BedrockAuth{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		f.Register(ProviderBedrock, client, cfg.BedrockModelID)
	}

	if err := f.SetFallback(cfg.LLMFallbackProvider); err != nil {
		f.logger.Warn("llm fallback disabled", "provider", cfg.LLMFallbackProvider, "error", err)
	}

	f.logger.Info("llm providers configured",
		"openai", f.Configured(ProviderOpenAI),
		"anthropic", f.Configured(ProviderAnthropic),
		"openrouter", f.Configured(ProviderOpenRouter),
		"google", f.Configured(ProviderGoogle),
		"bedrock", f.Configured(ProviderBedrock),
		"fallback", f.fallbackName,
	)
	return f, nil
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// resolveProvider maps a session provider name to a registered backend key.
func resolveProvider(name string) string {
	switch n := normalizeProvider(name); n {
	case ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter, ProviderGoogle:
		return n
	default:
		return ProviderOpenAI
	}
}

type unconfiguredClient struct {
	name string
}

func (c unconfiguredClient) Complete(context.Context, LLMRequest) (LLMResponse, error) {
	return LLMResponse{}, fmt.Errorf("llm: %s: %w", c.name, ErrProviderNotConfigured)
}
