// Package llm provides shared data models for LLM providers.
package llm

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// ToolCall represents a tool call requested by the model.
// Args keys are parameter names as declared in the tool's schema.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`

	// Malformed is set when the provider delivered arguments that could
	// not be decoded into Args.
	Malformed string `json:"-"`
}

// ArgsJSON returns the call arguments encoded as a JSON object.
func (c ToolCall) ArgsJSON() string {
	if len(c.Args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(c.Args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ToolResult is the outcome of exactly one ToolCall.
// Output and Error are mutually exclusive; a non-empty Error marks a failure.
type ToolResult struct {
	CallID string `json:"call_id,omitempty"`
	Name   string `json:"name"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// IsError reports whether the result carries an error.
func (r ToolResult) IsError() bool {
	return r.Error != ""
}

// Payload returns the response object sent back to the model.
func (r ToolResult) Payload() map[string]any {
	if r.IsError() {
		return map[string]any{"error": r.Error}
	}
	return map[string]any{"result": r.Output}
}

// Part is one element of a message. Exactly one field is set.
type Part struct {
	Text   string      `json:"text,omitempty"`
	Call   *ToolCall   `json:"call,omitempty"`
	Result *ToolResult `json:"result,omitempty"`
}

// Message is one turn in a conversation.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// UserMessage creates a user message with a single text part.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// ModelMessage creates a model message from text and tool calls.
// Empty text is omitted.
func ModelMessage(text string, calls ...ToolCall) Message {
	msg := Message{Role: RoleModel}
	if text != "" {
		msg.Parts = append(msg.Parts, Part{Text: text})
	}
	for i := range calls {
		call := calls[i]
		msg.Parts = append(msg.Parts, Part{Call: &call})
	}
	return msg
}

// ToolMessage creates a tool message carrying a single result.
func ToolMessage(result ToolResult) Message {
	return Message{Role: RoleTool, Parts: []Part{{Result: &result}}}
}

// Calls returns the tool calls in the message, in emission order.
func (m Message) Calls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Parts {
		if p.Call != nil {
			calls = append(calls, *p.Call)
		}
	}
	return calls
}

// Results returns the tool results in the message.
func (m Message) Results() []ToolResult {
	var results []ToolResult
	for _, p := range m.Parts {
		if p.Result != nil {
			results = append(results, *p.Result)
		}
	}
	return results
}

// Text returns the concatenated text parts.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// ToolDefinition defines a tool that the LLM can call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Response is the result of one model round.
// Usage is nil when the provider did not report token counts.
type Response struct {
	Candidates []Message
	Usage      *TokenUsage
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens   uint32
	ResponseTokens uint32
	TotalTokens    uint32
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.ResponseTokens += other.ResponseTokens
	u.TotalTokens += other.TotalTokens
}
