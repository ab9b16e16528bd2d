package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// chatCompletionAPI is the subset of the go-openai client the adapter uses.
type chatCompletionAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient talks to any OpenAI-compatible /chat/completions endpoint
// (OpenAI itself, OpenRouter).
type OpenAIClient struct {
	api chatCompletionAPI
}

// OpenAIConfig describes how to reach the endpoint.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Headers are sent with every request (OpenRouter attribution headers).
	Headers map[string]string
}

// headerTransport adds static headers to every outgoing request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// NewOpenAIClient validates the configuration and returns a ready-to-use client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm: openai api key is required: %w", ErrProviderNotConfigured)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	httpClient := &http.Client{Timeout: timeout}
	if len(cfg.Headers) > 0 {
		httpClient.Transport = headerTransport{base: http.DefaultTransport, headers: cfg.Headers}
	}
	clientCfg.HTTPClient = httpClient

	return &OpenAIClient{api: openai.NewClientWithConfig(clientCfg)}, nil
}

// Complete sends the conversation as-is; system prompts are prepended as system messages.
func (c *OpenAIClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return LLMResponse{}, errors.New("llm: openai model is required")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, s := range req.System {
		if strings.TrimSpace(s) != "" {
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: s})
		}
	}
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: int(req.MaxTokens),
	}
	// A zero temperature is dropped from the request body.
	if req.Temperature > 0 {
		chatReq.Temperature = req.Temperature
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return LLMResponse{}, fmt.Errorf("llm: openai error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		return LLMResponse{}, fmt.Errorf("llm: openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return LLMResponse{}, ErrEmptyCompletion
	}

	return LLMResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		StopReason: string(resp.Choices[0].FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}
