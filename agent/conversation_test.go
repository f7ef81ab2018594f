package agent

import (
	"testing"

	"github.com/richinex/tether/llm"
)

func TestConversationAppendOnly(t *testing.T) {
	conv := NewConversation("list the files")
	if conv.Len() != 1 {
		t.Fatalf("Len = %d, want 1", conv.Len())
	}
	last, ok := conv.Last()
	if !ok || last.Role != llm.RoleUser || last.Text() != "list the files" {
		t.Errorf("unexpected initial message: %+v", last)
	}

	conv.Append(llm.ModelMessage("", llm.ToolCall{ID: "1", Name: "get_files_info"}))
	conv.Append(llm.ToolMessage(llm.ToolResult{CallID: "1", Name: "get_files_info", Output: "- a.py"}))

	messages := conv.Messages()
	if len(messages) != 3 {
		t.Fatalf("Messages has %d entries, want 3", len(messages))
	}
	messages[0] = llm.UserMessage("tampered")
	if first := conv.Messages()[0]; first.Text() != "list the files" {
		t.Error("Messages should return a copy")
	}

	last, _ = conv.Last()
	if last.Role != llm.RoleTool {
		t.Errorf("Last role = %s, want tool", last.Role)
	}
}

func TestEmptyConversationLast(t *testing.T) {
	var conv Conversation
	if _, ok := conv.Last(); ok {
		t.Error("Last on empty conversation should report false")
	}
}

func TestBuilderDefaults(t *testing.T) {
	config := NewBuilder("coder").Build()
	if config.Name != "coder" || config.MaxRounds != DefaultMaxRounds || config.SystemPrompt != DefaultSystemPrompt {
		t.Errorf("unexpected defaults: %+v", config)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	config = NewBuilder("coder").MaxRounds(3).SystemPrompt("be brief").Build()
	if config.MaxRounds != 3 || config.SystemPrompt != "be brief" {
		t.Errorf("builder values lost: %+v", config)
	}
}

func TestOutcomeString(t *testing.T) {
	if Terminated.String() != "terminated" || LimitExceeded.String() != "limit_exceeded" {
		t.Errorf("unexpected names: %s, %s", Terminated, LimitExceeded)
	}
}
