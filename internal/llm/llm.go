package llm

import "context"

// Message is one chat turn. Role is "system", "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chatter is a chat-completion backend. Implementations are expected to be
// safe for concurrent use.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []Message) (string, error)
}
