// Agent configuration types.
//
// Information Hiding:
// - Configuration validation logic hidden
// - Default values hidden

package agent

import (
	"errors"
	"fmt"
)

// DefaultMaxRounds bounds the loop when no limit is configured.
const DefaultMaxRounds = 15

// DefaultSystemPrompt is sent with every model round.
const DefaultSystemPrompt = `You are a helpful AI coding agent.

When a user asks a question or makes a request, make a function call plan. You can perform the following operations:

- List files and directories
- Read file contents
- Execute Python files with optional arguments
- Write or overwrite files

All paths you provide should be relative to the working directory. The working directory is injected automatically and must not be passed in function calls.
If a request is unclear, list the files and directories first to learn what the working directory contains.`

// Config holds agent configuration.
type Config struct {
	// Name identifies the agent in logs.
	Name string

	// SystemPrompt guides the agent's behavior.
	SystemPrompt string

	// MaxRounds is the number of model rounds allowed before the run
	// ends with LimitExceeded.
	MaxRounds int
}

// DefaultConfig returns the configuration of the coding agent.
func DefaultConfig() Config {
	return Config{
		Name:         "agent",
		SystemPrompt: DefaultSystemPrompt,
		MaxRounds:    DefaultMaxRounds,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name cannot be empty"))
	}
	if c.MaxRounds < 1 {
		errs = append(errs, fmt.Errorf("max rounds must be at least 1, got %d", c.MaxRounds))
	}
	return errors.Join(errs...)
}
