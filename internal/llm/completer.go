package llm

import (
	"context"

	"github.com/wolfman30/callflow-ai/internal/agent"
)

// Params are the per-session generation settings from the agent config.
// A negative Temperature leaves it to the provider default.
type Params struct {
	MaxTokens   int
	Temperature float64
}

// Completer adapts an LLMClient to agent.TextCompletionProvider.
type Completer struct {
	client LLMClient
	model  string
	params Params
}

var _ agent.TextCompletionProvider = (*Completer)(nil)

func NewCompleter(client LLMClient, model string, params Params) *Completer {
	return &Completer{client: client, model: model, params: params}
}

// Complete sends the instruction as a leading assistant turn followed by the user message.
func (c *Completer) Complete(ctx context.Context, instruction, userMessage string) (string, error) {
	resp, err := c.client.Complete(ctx, LLMRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: ChatRoleAssistant, Content: instruction},
			{Role: ChatRoleUser, Content: userMessage},
		},
		MaxTokens:   int32(c.params.MaxTokens),
		Temperature: float32(c.params.Temperature),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
