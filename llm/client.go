// LLMClient - Simple wrapper around providers.

package llm

import (
	"context"
	"fmt"
	"time"
)

// Client wraps a Provider with an optional per-call timeout.
type Client struct {
	provider Provider
	timeout  time.Duration
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// WithTimeout bounds each Generate call. Zero means no bound beyond the
// caller's context.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// Generate runs one model round.
func (c *Client) Generate(ctx context.Context, conversation []Message, tools []ToolDefinition, systemInstruction string) (Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.provider.Generate(ctx, conversation, tools, systemInstruction)
	if err != nil {
		return Response{}, fmt.Errorf("%s: %w", c.provider.Name(), err)
	}
	return resp, nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}
