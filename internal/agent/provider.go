package agent

import "context"

// TextCompletionProvider produces one completion for an instruction and a user message.
// Implementations are built from configuration outside the pipeline.
type TextCompletionProvider interface {
	Complete(ctx context.Context, instruction, userMessage string) (string, error)
}

// CompletionFunc adapts a plain function to TextCompletionProvider.
type CompletionFunc func(ctx context.Context, instruction, userMessage string) (string, error)

// Complete calls f.
func (f CompletionFunc) Complete(ctx context.Context, instruction, userMessage string) (string, error) {
	return f(ctx, instruction, userMessage)
}
