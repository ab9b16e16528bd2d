package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicDefaultURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion    = "2023-06-01"
	// The Messages API requires max_tokens.
	anthropicDefaultMaxTokens = 1000
)

type AnthropicClient struct {
	apiKey string
	url    string
	http   *http.Client
}

func NewAnthropicClient(apiKey string, timeout time.Duration) (*AnthropicClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("llm: anthropic api key is required: %w", ErrProviderNotConfigured)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AnthropicClient{
		apiKey: apiKey,
		url:    anthropicDefaultURL,
		http:   &http.Client{Timeout: timeout},
	}, nil
}

// SetBaseURL points the client at another messages endpoint.
func (c *AnthropicClient) SetBaseURL(url string) {
	c.url = url
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int32              `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float32           `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int32 `json:"input_tokens"`
		OutputTokens int32 `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete calls the Messages API. Leading assistant turns become part of the system prompt.
func (c *AnthropicClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return LLMResponse{}, errors.New("llm: anthropic model is required")
	}

	system, turns := foldLeadingTurns(req)
	if len(turns) == 0 {
		return LLMResponse{}, errors.New("llm: anthropic requires at least one user message")
	}

	messages := make([]anthropicMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, anthropicMessage{Role: t.Role, Content: t.Content})
	}

	payload := anthropicRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    strings.Join(system, "\n\n"),
		Messages:  messages,
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = anthropicDefaultMaxTokens
	}
	if req.Temperature >= 0 {
		temp := req.Temperature
		payload.Temperature = &temp
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("llm: marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return LLMResponse{}, fmt.Errorf("llm: create anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("llm: anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("llm: read anthropic response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp anthropicErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return LLMResponse{}, fmt.Errorf("llm: anthropic error %d: %s: %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return LLMResponse{}, fmt.Errorf("llm: anthropic error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out anthropicResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return LLMResponse{}, fmt.Errorf("llm: decode anthropic response: %w", err)
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return LLMResponse{}, ErrEmptyCompletion
	}

	return LLMResponse{
		Text:       strings.TrimSpace(text.String()),
		StopReason: out.StopReason,
		Usage: TokenUsage{
			InputTokens:  out.Usage.InputTokens,
			OutputTokens: out.Usage.OutputTokens,
			TotalTokens:  out.Usage.InputTokens + out.Usage.OutputTokens,
		},
	}, nil
}
