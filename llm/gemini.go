// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - System instruction handling via config
// - Function declarations, function calls and function responses

package llm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	initErr     error // Stores client initialization error for deferred reporting
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey, model string, maxTokens uint32, temperature float32) *GeminiProvider {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &GeminiProvider{
			model:       model,
			maxTokens:   int32(maxTokens),
			temperature: temperature,
			initErr:     fmt.Errorf("failed to initialize Gemini client: %w", err),
		}
	}

	return &GeminiProvider{
		client:      client,
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the current model.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Generate sends the conversation with function declarations.
func (p *GeminiProvider) Generate(ctx context.Context, conversation []Message, tools []ToolDefinition, systemInstruction string) (Response, error) {
	if p.initErr != nil {
		return Response{}, p.initErr
	}
	if p.client == nil {
		return Response{}, fmt.Errorf("gemini client not initialized")
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
		Tools:           convertToGeminiTools(tools),
	}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, convertToGeminiContents(conversation), config)
	if err != nil {
		return Response{}, fmt.Errorf("generate content failed: %w", err)
	}

	var candidates []Message
	for _, cand := range response.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		candidates = append(candidates, convertFromGeminiContent(cand.Content))
	}

	var usage *TokenUsage
	if response.UsageMetadata != nil {
		usage = &TokenUsage{
			PromptTokens:   uint32(response.UsageMetadata.PromptTokenCount),
			ResponseTokens: uint32(response.UsageMetadata.CandidatesTokenCount),
			TotalTokens:    uint32(response.UsageMetadata.TotalTokenCount),
		}
	}

	return Response{Candidates: candidates, Usage: usage}, nil
}

// convertFromGeminiContent converts a candidate's content into a model message.
// Gemini may omit call IDs; a synthetic one is assigned so results can be paired.
func convertFromGeminiContent(content *genai.Content) Message {
	msg := Message{Role: RoleModel}
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			msg.Parts = append(msg.Parts, Part{Text: part.Text})
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			msg.Parts = append(msg.Parts, Part{Call: &ToolCall{
				ID:   id,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			}})
		}
	}
	return msg
}

// convertToGeminiContents converts the conversation to Gemini contents.
// Consecutive tool messages are merged into one content so that all
// function responses for a turn travel together.
func convertToGeminiContents(conversation []Message) []*genai.Content {
	var contents []*genai.Content
	var pendingResults *genai.Content

	flush := func() {
		if pendingResults != nil {
			contents = append(contents, pendingResults)
			pendingResults = nil
		}
	}

	for _, msg := range conversation {
		switch msg.Role {
		case RoleUser:
			flush()
			contents = append(contents, genai.NewContentFromText(msg.Text(), genai.RoleUser))
		case RoleModel:
			flush()
			content := &genai.Content{Role: string(genai.RoleModel)}
			for _, part := range msg.Parts {
				switch {
				case part.Call != nil:
					content.Parts = append(content.Parts, &genai.Part{
						FunctionCall: &genai.FunctionCall{
							Name: part.Call.Name,
							Args: part.Call.Args,
						},
					})
				case part.Text != "":
					content.Parts = append(content.Parts, &genai.Part{Text: part.Text})
				}
			}
			if len(content.Parts) > 0 {
				contents = append(contents, content)
			}
		case RoleTool:
			if pendingResults == nil {
				// Gemini expects tool results as user
				pendingResults = &genai.Content{Role: string(genai.RoleUser)}
			}
			for _, result := range msg.Results() {
				pendingResults.Parts = append(pendingResults.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						Name:     result.Name,
						Response: result.Payload(),
					},
				})
			}
		}
	}
	flush()

	return contents
}

// convertToGeminiTools converts tool definitions to Gemini format.
func convertToGeminiTools(tools []ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	var declarations []*genai.FunctionDeclaration
	for _, t := range tools {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertToGeminiSchema(t.Parameters),
		})
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertToGeminiSchema recursively converts a parameter schema to Gemini format.
// Handles arrays by adding required 'items' field.
func convertToGeminiSchema(params map[string]any) *genai.Schema {
	schema := &genai.Schema{
		Type: genai.TypeObject,
	}

	if t, ok := params["type"].(string); ok {
		schema.Type = mapToGeminiType(t)
	}

	switch req := params["required"].(type) {
	case []string:
		schema.Required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			propMap, ok := prop.(map[string]any)
			if !ok {
				continue
			}
			schema.Properties[name] = convertPropertyToGeminiSchema(propMap)
		}
	}

	return schema
}

// convertPropertyToGeminiSchema converts a single property to Gemini schema.
func convertPropertyToGeminiSchema(prop map[string]any) *genai.Schema {
	schema := &genai.Schema{}

	if t, ok := prop["type"].(string); ok {
		schema.Type = mapToGeminiType(t)
	}
	if d, ok := prop["description"].(string); ok {
		schema.Description = d
	}

	// Gemini requires 'items' for arrays
	if schema.Type == genai.TypeArray {
		if items, ok := prop["items"].(map[string]any); ok {
			schema.Items = convertPropertyToGeminiSchema(items)
		} else {
			schema.Items = &genai.Schema{Type: genai.TypeString}
		}
	}

	return schema
}

// mapToGeminiType maps JSON schema type to Gemini type.
func mapToGeminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
