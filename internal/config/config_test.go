package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EVENTS_OUTBOX", "")
	t.Setenv("OUTBOX_INTERVAL", "")
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("LLM_DEFAULT_TEMPERATURE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8000" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.OpenAIModel != "gpt-4" {
		t.Fatalf("expected default openai model gpt-4, got %s", cfg.OpenAIModel)
	}
	if cfg.LLMTemperature != 0.7 {
		t.Fatalf("expected default temperature 0.7, got %v", cfg.LLMTemperature)
	}
	if cfg.LLMMaxTokens != 1000 {
		t.Fatalf("expected default max tokens 1000, got %d", cfg.LLMMaxTokens)
	}
	if cfg.ChatHistoryLimit != 10 {
		t.Fatalf("expected history limit 10, got %d", cfg.ChatHistoryLimit)
	}
	if cfg.CallSimulationDelay != 2*time.Second {
		t.Fatalf("expected call delay 2s, got %s", cfg.CallSimulationDelay)
	}
	if cfg.CallSimulationMinutes != 3 {
		t.Fatalf("expected 3 simulated minutes, got %d", cfg.CallSimulationMinutes)
	}
	if cfg.EventsOutbox {
		t.Fatalf("expected outbox disabled by default")
	}
	if cfg.OutboxInterval != 2*time.Second {
		t.Fatalf("expected outbox interval 2s, got %s", cfg.OutboxInterval)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard CORS, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("LLM_DEFAULT_TEMPERATURE", "0.2")
	t.Setenv("LLM_FALLBACK_PROVIDER", " Bedrock ")
	t.Setenv("CALL_SIMULATION_DELAY", "150ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("CHAT_HISTORY_LIMIT", "not-a-number")
	t.Setenv("EVENTS_OUTBOX", "true")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis TLS enabled")
	}
	if cfg.LLMTemperature != 0.2 {
		t.Fatalf("expected temperature 0.2, got %v", cfg.LLMTemperature)
	}
	if cfg.LLMFallbackProvider != "bedrock" {
		t.Fatalf("expected normalized fallback provider, got %q", cfg.LLMFallbackProvider)
	}
	if cfg.CallSimulationDelay != 150*time.Millisecond {
		t.Fatalf("expected call delay override, got %s", cfg.CallSimulationDelay)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.EventsOutbox {
		t.Fatalf("expected outbox enabled")
	}
	if cfg.ChatHistoryLimit != 10 {
		t.Fatalf("expected invalid int to fall back to default, got %d", cfg.ChatHistoryLimit)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CALLFLOW_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("CALLFLOW_TEST_DOTENV", "")
	os.Unsetenv("CALLFLOW_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("CALLFLOW_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}
