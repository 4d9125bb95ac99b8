// Package types defines the request and response shapes shared by every layer
// of the generation chain and the wire format of the local chat endpoint.
package types //nolint:revive // package name is intentional

// Message roles understood by the chat endpoint.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// GenerationRequest is a single logical generation call.
// An empty SystemPrompt means no system prompt was supplied.
type GenerationRequest struct {
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// HasSystemPrompt reports whether a system message should be sent.
func (r GenerationRequest) HasSystemPrompt() bool {
	return r.SystemPrompt != ""
}

// Messages returns the ordered message list for the request:
// the system message first (only when present), then the user message.
func (r GenerationRequest) Messages() []ChatMessage {
	messages := make([]ChatMessage, 0, 2)
	if r.HasSystemPrompt() {
		messages = append(messages, ChatMessage{Role: RoleSystem, Content: r.SystemPrompt})
	}
	return append(messages, ChatMessage{Role: RoleUser, Content: r.Prompt})
}

// ChatRequest is the body of a chat call against the local endpoint.
// Stream is always serialized so the server never falls back to its default.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ChatMessage is a single message in the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
