// OpenAI Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for OpenAI Chat Completions API
// - Function tool conversion shared with OpenAI-compatible providers

package llm

import (
	"context"
	"fmt"

	jsonutil "github.com/richinex/tether/internal/json"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Generate sends the conversation with tool definitions.
func (p *OpenAIProvider) Generate(ctx context.Context, conversation []Message, tools []ToolDefinition, systemInstruction string) (Response, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    convertToOpenAIMessages(conversation, systemInstruction),
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Tools:       convertToOpenAITools(tools),
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion failed: %w", err)
	}

	return convertFromOpenAIResponse(resp), nil
}

// convertFromOpenAIResponse converts every choice into a candidate reply.
func convertFromOpenAIResponse(resp openai.ChatCompletionResponse) Response {
	var candidates []Message
	for _, choice := range resp.Choices {
		msg := Message{Role: RoleModel}
		if choice.Message.Content != "" {
			msg.Parts = append(msg.Parts, Part{Text: choice.Message.Content})
		}
		for _, tc := range choice.Message.ToolCalls {
			call := &ToolCall{ID: tc.ID, Name: tc.Function.Name}
			args, err := jsonutil.DecodeArguments(tc.Function.Arguments)
			if err != nil {
				call.Malformed = err.Error()
			} else {
				call.Args = args
			}
			msg.Parts = append(msg.Parts, Part{Call: call})
		}
		candidates = append(candidates, msg)
	}

	var usage *TokenUsage
	if resp.Usage.TotalTokens > 0 {
		usage = &TokenUsage{
			PromptTokens:   uint32(resp.Usage.PromptTokens),
			ResponseTokens: uint32(resp.Usage.CompletionTokens),
			TotalTokens:    uint32(resp.Usage.TotalTokens),
		}
	}

	return Response{Candidates: candidates, Usage: usage}
}

// convertToOpenAIMessages converts the conversation to chat completion messages.
func convertToOpenAIMessages(conversation []Message, systemInstruction string) []openai.ChatCompletionMessage {
	var result []openai.ChatCompletionMessage
	if systemInstruction != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemInstruction,
		})
	}

	for _, msg := range conversation {
		switch msg.Role {
		case RoleUser:
			result = append(result, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Text(),
			})
		case RoleModel:
			oaiMsg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Text(),
			}
			for _, call := range msg.Calls() {
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: call.ArgsJSON(),
					},
				})
			}
			result = append(result, oaiMsg)
		case RoleTool:
			for _, r := range msg.Results() {
				content := r.Output
				if r.IsError() {
					content = "Error: " + r.Error
				}
				result = append(result, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    content,
					Name:       r.Name,
					ToolCallID: r.CallID,
				})
			}
		}
	}
	return result
}

// convertToOpenAITools converts tool definitions to OpenAI format.
func convertToOpenAITools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
