package llm

import (
	"context"
	"time"
)

// Observer receives one call per provider request.
type Observer interface {
	ObserveLLM(provider string, duration time.Duration, usage TokenUsage, err error)
}

type instrumentedClient struct {
	provider string
	next     LLMClient
	observer Observer
	now      func() time.Time
}

func instrument(provider string, next LLMClient, observer Observer) LLMClient {
	if observer == nil {
		return next
	}
	return &instrumentedClient{provider: provider, next: next, observer: observer, now: time.Now}
}

func (c *instrumentedClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	start := c.now()
	resp, err := c.next.Complete(ctx, req)
	c.observer.ObserveLLM(c.provider, c.now().Sub(start), resp.Usage, err)
	return resp, err
}
