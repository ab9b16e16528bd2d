package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/callflow-ai/internal/config"
)

type recordingLLMObserver struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (o *recordingLLMObserver) ObserveLLM(provider string, _ time.Duration, _ TokenUsage, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, provider)
	o.errs = append(o.errs, err)
}

func TestFactory_ProviderRoutesByName(t *testing.T) {
	openai := &stubClient{resp: LLMResponse{Text: "from openai"}}
	anthropic := &stubClient{resp: LLMResponse{Text: "from anthropic"}}

	f := NewFactory(WithFactoryLogger(quietLogger()))
	f.Register(ProviderOpenAI, openai, "gpt-4")
	f.Register(ProviderAnthropic, anthropic, "claude-3-sonnet-20240229")

	out, err := f.Provider("Anthropic", Params{MaxTokens: 300, Temperature: 0.2}).Complete(context.Background(), "instr", "hola")
	require.NoError(t, err)
	assert.Equal(t, "from anthropic", out)
	assert.Equal(t, "claude-3-sonnet-20240229", anthropic.last.Model)
	assert.Equal(t, int32(300), anthropic.last.MaxTokens)
	assert.Zero(t, openai.calls)
}

func TestFactory_UnknownProviderFallsBackToOpenAI(t *testing.T) {
	openai := &stubClient{resp: LLMResponse{Text: "from openai"}}
	f := NewFactory(WithFactoryLogger(quietLogger()))
	f.Register(ProviderOpenAI, openai, "gpt-4")

	for _, name := range []string{"", "mistral", "bedrock"} {
		out, err := f.Provider(name, Params{}).Complete(context.Background(), "instr", "hola")
		require.NoError(t, err, name)
		assert.Equal(t, "from openai", out)
	}
	assert.Equal(t, 3, openai.calls)
}

func TestFactory_UnconfiguredProviderFailsOnUse(t *testing.T) {
	f := NewFactory(WithFactoryLogger(quietLogger()))

	provider := f.Provider(ProviderGoogle, Params{})
	require.NotNil(t, provider)

	_, err := provider.Complete(context.Background(), "instr", "hola")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
	assert.Contains(t, err.Error(), "google")
}

func TestFactory_Fallback(t *testing.T) {
	openai := &stubClient{err: errors.New("429 rate limited")}
	bedrock := &stubClient{resp: LLMResponse{Text: "from bedrock"}}

	f := NewFactory(WithFactoryLogger(quietLogger()))
	f.Register(ProviderOpenAI, openai, "gpt-4")
	f.Register(ProviderBedrock, bedrock, "anthropic.claude-3-haiku")
	require.NoError(t, f.SetFallback("bedrock"))

	out, err := f.Provider(ProviderOpenAI, Params{}).Complete(context.Background(), "instr", "hola")
	require.NoError(t, err)
	assert.Equal(t, "from bedrock", out)
	assert.Equal(t, "anthropic.claude-3-haiku", bedrock.last.Model)
}

func TestFactory_SetFallbackUnknown(t *testing.T) {
	f := NewFactory(WithFactoryLogger(quietLogger()))
	assert.ErrorIs(t, f.SetFallback("bedrock"), ErrProviderNotConfigured)
	assert.NoError(t, f.SetFallback(""))
}

func TestFactory_ObserverWrapsClients(t *testing.T) {
	observer := &recordingLLMObserver{}
	boom := errors.New("boom")
	f := NewFactory(WithFactoryLogger(quietLogger()), WithObserver(observer))
	f.Register(ProviderOpenAI, &stubClient{resp: LLMResponse{Text: "ok"}}, "gpt-4")
	f.Register(ProviderAnthropic, &stubClient{err: boom}, "claude")

	_, err := f.Provider(ProviderOpenAI, Params{}).Complete(context.Background(), "i", "m")
	require.NoError(t, err)
	_, err = f.Provider(ProviderAnthropic, Params{}).Complete(context.Background(), "i", "m")
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"openai", "anthropic"}, observer.calls)
	assert.NoError(t, observer.errs[0])
	assert.ErrorIs(t, observer.errs[1], boom)
}

func TestNewFactoryFromConfig(t *testing.T) {
	cfg := &config.Config{
		OpenAIAPIKey:        "sk-openai",
		OpenAIModel:         "gpt-4",
		OpenRouterAPIKey:    "sk-or",
		OpenRouterModel:     "openai/gpt-4",
		OpenRouterBaseURL:   "https://openrouter.ai/api/v1",
		LLMFallbackProvider: "openrouter",
		LLMTimeout:          time.Second,
	}

	f, err := NewFactoryFromConfig(context.Background(), cfg, WithFactoryLogger(quietLogger()))
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, f.Configured(ProviderOpenAI))
	assert.True(t, f.Configured(ProviderOpenRouter))
	assert.False(t, f.Configured(ProviderAnthropic))
	assert.False(t, f.Configured(ProviderGoogle))
	assert.False(t, f.Configured(ProviderBedrock))
	assert.Equal(t, ProviderOpenRouter, f.fallbackName)
}

func TestNewFactoryFromConfig_IgnoresMissingFallback(t *testing.T) {
	f, err := NewFactoryFromConfig(context.Background(), &config.Config{LLMFallbackProvider: "bedrock"}, WithFactoryLogger(quietLogger()))
	require.NoError(t, err)
	assert.Empty(t, f.fallbackName)
}
