package tools

import (
	"context"
	"fmt"

	"github.com/richinex/tether/llm"
)

// Parameter types understood by the dispatcher's argument validation.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// ToolParameter defines a parameter schema for a tool.
type ToolParameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	ItemType    string `json:"item_type,omitempty"` // element type when ParamType is "array"
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Definition renders the metadata as a JSON-schema tool definition for the
// model.
func (m ToolMetadata) Definition() llm.ToolDefinition {
	properties := make(map[string]any, len(m.Parameters))
	required := []string{}
	for _, p := range m.Parameters {
		prop := map[string]any{
			"type":        p.ParamType,
			"description": p.Description,
		}
		if p.ParamType == TypeArray {
			itemType := p.ItemType
			if itemType == "" {
				itemType = TypeString
			}
			prop["items"] = map[string]any{"type": itemType}
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return llm.ToolDefinition{
		Name:        m.Name,
		Description: m.Description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

func (m ToolMetadata) parameter(name string) (ToolParameter, bool) {
	for _, p := range m.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ToolParameter{}, false
}

// Args holds the named arguments of one call. Tools read them through the
// typed accessors after the dispatcher has validated them against the
// tool's metadata.
type Args map[string]any

// String returns the named string argument, or "" when absent.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Strings returns the named string-array argument, or nil when absent.
func (a Args) Strings(name string) []string {
	switch v := a[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Tool is the interface that all tools must implement.
//
// The sandbox a tool operates on is bound at construction; it is never an
// argument the model can supply.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Execute runs the tool. The returned string is the tool output sent
	// back to the model.
	Execute(ctx context.Context, args Args) (string, error)
}
