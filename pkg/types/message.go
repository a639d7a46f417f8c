package types

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem carries standing instructions.
	RoleUser      MessageRole = "user"      // RoleUser carries the prompt.
	RoleAssistant MessageRole = "assistant" // RoleAssistant carries the model reply.
)

// Message is one entry of a model conversation.
type Message struct {
	// Usage is filled on assistant replies when the provider reports it.
	Usage *TokenUsage

	Role    MessageRole
	Content string
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	Metadata map[string]interface{}

	Provider          string
	Name              string
	MaxTokens         int
	SupportsStreaming bool
}
