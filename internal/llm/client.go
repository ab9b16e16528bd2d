// Package llm holds the generative-text provider clients and the factory that
// turns a session's provider name into an agent.TextCompletionProvider.
package llm

import (
	"context"
	"errors"
	"strings"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

var (
	// ErrEmptyCompletion is returned when a provider answers without any text.
	ErrEmptyCompletion = errors.New("llm: provider returned an empty completion")

	// ErrProviderNotConfigured is returned when a provider has no credentials configured.
	ErrProviderNotConfigured = errors.New("llm: provider not configured")
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMRequest is provider-neutral. A negative Temperature omits it.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// foldLeadingTurns moves system messages and any assistant turns that precede
// the first user turn into the system prompt. Used by APIs that require the
// conversation to open with a user message.
func foldLeadingTurns(req LLMRequest) ([]string, []ChatMessage) {
	system := make([]string, 0, len(req.System)+1)
	for _, s := range req.System {
		if strings.TrimSpace(s) != "" {
			system = append(system, s)
		}
	}

	messages := make([]ChatMessage, 0, len(req.Messages))
	seenUser := false
	for _, msg := range req.Messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		switch {
		case msg.Role == ChatRoleSystem:
			system = append(system, msg.Content)
		case msg.Role == ChatRoleAssistant && !seenUser:
			system = append(system, msg.Content)
		default:
			if msg.Role == ChatRoleUser {
				seenUser = true
			}
			messages = append(messages, msg)
		}
	}
	return system, messages
}
