// Agent builder for fluent configuration.

package agent

import "fmt"

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder("name") - no stutter.
type Builder struct {
	name         string
	systemPrompt string
	maxRounds    int
}

// NewBuilder creates a new agent builder with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// SystemPrompt sets the agent's system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.systemPrompt = prompt
	return b
}

// MaxRounds sets the round limit.
func (b *Builder) MaxRounds(n int) *Builder {
	b.maxRounds = n
	return b
}

// Build creates the agent configuration, filling unset fields with defaults.
func (b *Builder) Build() Config {
	name := b.name
	if name == "" {
		name = "agent"
	}

	systemPrompt := b.systemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	maxRounds := b.maxRounds
	if maxRounds == 0 {
		maxRounds = DefaultMaxRounds
	}

	return Config{
		Name:         name,
		SystemPrompt: systemPrompt,
		MaxRounds:    maxRounds,
	}
}

// String summarizes the configuration being built.
func (b *Builder) String() string {
	return fmt.Sprintf("agent %q (max %d rounds)", b.name, b.Build().MaxRounds)
}
