// Package llm holds the provider-agnostic chat completion types used by the
// chat pipeline and the memory extractor.
package llm

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with the given role and text.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}

// IsConversationRole reports whether role is one of the two roles kept in
// conversation history.
func IsConversationRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
