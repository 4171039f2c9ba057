package types

// MessageRole is the author of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem carries instructions.
	RoleUser      MessageRole = "user"      // RoleUser carries the prompt.
	RoleAssistant MessageRole = "assistant" // RoleAssistant carries model output.
)

// Message is one chat-completions message.
type Message struct {
	Role    MessageRole
	Content string
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	Provider string
	Name     string
	BaseURL  string
}
