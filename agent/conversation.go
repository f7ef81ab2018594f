package agent

import "github.com/richinex/tether/llm"

// Conversation is the append-only message log of a single run.
// Not safe for concurrent use.
type Conversation struct {
	messages []llm.Message
}

// NewConversation starts a conversation with the user's prompt.
func NewConversation(prompt string) *Conversation {
	return &Conversation{messages: []llm.Message{llm.UserMessage(prompt)}}
}

// Append adds a message to the end of the log.
func (c *Conversation) Append(msg llm.Message) {
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []llm.Message {
	out := make([]llm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Last returns the newest message.
func (c *Conversation) Last() (llm.Message, bool) {
	if len(c.messages) == 0 {
		return llm.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}
