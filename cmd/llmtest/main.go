// Command llmtest sends one message through the agent pipeline against a
// configured provider, for checking credentials and prompts by hand.
//
//	llmtest -provider anthropic -message "¿Qué pisos tienen en Madrid?"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wolfman30/callflow-ai/internal/agent"
	appconfig "github.com/wolfman30/callflow-ai/internal/config"
	"github.com/wolfman30/callflow-ai/internal/llm"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

func main() {
	provider := flag.String("provider", llm.ProviderOpenAI, "provider name: openai, anthropic, openrouter, google, bedrock")
	message := flag.String("message", "Hola, ¿qué propiedades tienen disponibles?", "user message")
	business := flag.String("business", "Inmobiliaria Demo", "business name used in the session context")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Parse()

	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	factory, err := llm.NewFactoryFromConfig(ctx, cfg, llm.WithFactoryLogger(logger))
	if err != nil {
		logger.Error("configure providers", "error", err)
		os.Exit(1)
	}
	defer func() { _ = factory.Close() }()

	if !factory.Configured(*provider) {
		logger.Warn("provider has no credentials; the request will fail", "provider", *provider)
	}

	pipeline := agent.NewPipeline(
		factory.Provider(*provider, llm.Params{MaxTokens: cfg.LLMMaxTokens, Temperature: cfg.LLMTemperature}),
		agent.WithLogger(logger),
	)

	start := time.Now()
	result, err := pipeline.Process(ctx, agent.Input{
		Session: agent.SessionContext{
			BusinessName:  *business,
			Location:      "Madrid",
			PropertyTypes: "pisos y áticos",
			WorkingHours:  "L-V 9:00-18:00",
			Phone:         "+34 900 000 000",
		},
		Message: *message,
	})
	if err != nil {
		logger.Error("pipeline failed", "provider", *provider, "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	logger.Info("done", "provider", *provider, "elapsed", time.Since(start).Round(time.Millisecond))
}
