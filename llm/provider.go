// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for LLM providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Tool schema and tool-call conversion
// - Provider-specific error handling

package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
// Implementations hide provider-specific details while exposing
// a single request/response round with tool calling.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Generate sends the whole conversation, the tool schemas and the
	// system instruction, and returns the candidate replies.
	// The call is blocking; it returns an error only when no reply could be obtained.
	Generate(ctx context.Context, conversation []Message, tools []ToolDefinition, systemInstruction string) (Response, error)
}
