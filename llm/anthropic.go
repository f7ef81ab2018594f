// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Anthropic Messages API
// - tool_use / tool_result block conversion

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string, maxTokens uint32, temperature float32) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:      client,
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: float64(temperature),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Generate sends the conversation with tool definitions.
func (p *AnthropicProvider) Generate(ctx context.Context, conversation []Message, tools []ToolDefinition, systemInstruction string) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Messages:    convertToAnthropicMessages(conversation),
		Temperature: anthropic.Float(p.temperature),
		Tools:       convertToAnthropicTools(tools),
	}

	if systemInstruction != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemInstruction},
		}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion failed: %w", err)
	}

	reply := Message{Role: RoleModel}
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			if variant.Text != "" {
				reply.Parts = append(reply.Parts, Part{Text: variant.Text})
			}
		case anthropic.ToolUseBlock:
			call := convertAnthropicToolUse(variant.ID, variant.Name, variant.Input)
			reply.Parts = append(reply.Parts, Part{Call: &call})
		}
	}

	var usage *TokenUsage
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		usage = &TokenUsage{
			PromptTokens:   uint32(message.Usage.InputTokens),
			ResponseTokens: uint32(message.Usage.OutputTokens),
			TotalTokens:    uint32(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}

	return Response{Candidates: []Message{reply}, Usage: usage}, nil
}

// convertToAnthropicMessages converts the conversation to Anthropic messages.
// Anthropic requires every tool_result for an assistant turn in a single
// user message, so consecutive tool messages are merged.
func convertToAnthropicMessages(conversation []Message) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(pendingResults) > 0 {
			messages = append(messages, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range conversation {
		switch msg.Role {
		case RoleUser:
			flush()
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Text()),
			))
		case RoleModel:
			flush()
			content := anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
			}
			for _, part := range msg.Parts {
				switch {
				case part.Call != nil:
					input := part.Call.Args
					if input == nil {
						input = map[string]any{}
					}
					content.Content = append(content.Content, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							ID:    part.Call.ID,
							Name:  part.Call.Name,
							Input: input,
						},
					})
				case part.Text != "":
					content.Content = append(content.Content, anthropic.NewTextBlock(part.Text))
				}
			}
			if len(content.Content) > 0 {
				messages = append(messages, content)
			}
		case RoleTool:
			for _, result := range msg.Results() {
				text := result.Output
				if result.IsError() {
					text = result.Error
				}
				pendingResults = append(pendingResults,
					anthropic.NewToolResultBlock(result.CallID, text, result.IsError()))
			}
		}
	}
	flush()

	return messages
}

// convertToAnthropicTools converts tool definitions to Anthropic format.
func convertToAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		properties, _ := t.Parameters["properties"].(map[string]any)
		required, _ := t.Parameters["required"].([]string)

		toolParam := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   required,
			},
		}
		result[i] = anthropic.ToolUnionParam{OfTool: &toolParam}
	}
	return result
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)

// convertAnthropicToolUse decodes a tool_use input into call arguments.
// Input that is not a JSON object marks the call malformed.
func convertAnthropicToolUse(id, name string, input any) ToolCall {
	call := ToolCall{ID: id, Name: name}
	raw, err := json.Marshal(input)
	if err != nil {
		call.Malformed = fmt.Sprintf("undecodable tool input: %v", err)
		return call
	}
	if trimmed := strings.TrimSpace(string(raw)); trimmed == "" || trimmed == "null" {
		return call
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		call.Malformed = fmt.Sprintf("tool input is not a JSON object: %v", err)
		return call
	}
	call.Args = args
	return call
}
