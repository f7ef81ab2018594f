// Package tools provides tool management and registration.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Registration order preserved for the schemas sent to the model

package tools

import (
	"fmt"
	"strings"
	"sync"

	"github.com/richinex/tether/llm"
)

// Registry maps tool names to tools. It is populated once at startup and
// read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a new tool to the registry.
// Returns error if the name is empty or already registered.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Metadata().Name
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool '%s' already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// List returns metadata for all registered tools in registration order.
func (r *Registry) List() []ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(r.order))
	for _, name := range r.order {
		metadata = append(metadata, r.tools[name].Metadata())
	}
	return metadata
}

// Definitions returns the schemas sent to the model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	list := r.List()
	defs := make([]llm.ToolDefinition, len(list))
	for i, meta := range list {
		defs[i] = meta.Definition()
	}
	return defs
}

// Description returns a formatted description of all tools.
func (r *Registry) Description() string {
	var descriptions []string
	for _, meta := range r.List() {
		var params []string
		for _, p := range meta.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			paramType := p.ParamType
			if p.ParamType == TypeArray && p.ItemType != "" {
				paramType = fmt.Sprintf("%s of %s", p.ParamType, p.ItemType)
			}
			params = append(params, fmt.Sprintf("  - %s (%s): %s [%s]",
				p.Name, paramType, p.Description, required))
		}

		descriptions = append(descriptions, fmt.Sprintf(
			"Tool: %s\nDescription: %s\nParameters:\n%s",
			meta.Name, meta.Description, strings.Join(params, "\n")))
	}

	return strings.Join(descriptions, "\n\n")
}

// WithDefaults creates a registry holding the list, read, run and write
// tools bound to sandbox.
func WithDefaults(sandbox *Sandbox) (*Registry, error) {
	registry := NewRegistry()

	tools := []Tool{
		NewListFilesTool(sandbox),
		NewReadFileTool(sandbox),
		NewRunScriptTool(sandbox),
		NewWriteFileTool(sandbox),
	}

	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register default tools: %w", err)
		}
	}

	return registry, nil
}
