// Package agent provides the tool-calling agent loop.
//
// Contains all types used by agents for outcomes and responses.
package agent

import (
	"errors"
	"fmt"

	"github.com/richinex/tether/llm"
)

// ErrLimitExceeded is reported when the round limit is reached before the
// model produced a final answer.
var ErrLimitExceeded = errors.New("maximum rounds reached without a final answer")

// Outcome is the terminal state of a run.
type Outcome int

const (
	// Terminated means the model replied without tool calls.
	Terminated Outcome = iota
	// LimitExceeded means the round limit was reached.
	LimitExceeded
)

func (o Outcome) String() string {
	switch o {
	case Terminated:
		return "terminated"
	case LimitExceeded:
		return "limit_exceeded"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Response represents the result of one agent run.
type Response struct {
	Outcome Outcome
	// Answer is the text of the final reply. Empty unless Terminated.
	Answer string
	// Rounds counts completed model rounds.
	Rounds int
	// Usage sums the token usage reported across rounds.
	Usage          llm.TokenUsage
	ConversationID string
	Conversation   []llm.Message
}

// Err returns ErrLimitExceeded (wrapped) when the run did not terminate.
func (r Response) Err() error {
	if r.Outcome == LimitExceeded {
		return fmt.Errorf("%w (%d rounds)", ErrLimitExceeded, r.Rounds)
	}
	return nil
}

// IsSuccess checks if the run produced a final answer.
func (r Response) IsSuccess() bool {
	return r.Outcome == Terminated
}
