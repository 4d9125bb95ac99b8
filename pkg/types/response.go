package types //nolint:revive // package name is intentional

import "time"

// ChatResponse is one reply object from the chat endpoint.
// Non-streaming calls return exactly one; streaming calls return a sequence
// of partial objects terminated by one with Done set. Message is nil when the
// object carried no "message" field.
type ChatResponse struct {
	Model      string       `json:"model"`
	CreatedAt  time.Time    `json:"created_at"`
	Message    *ChatMessage `json:"message"`
	Done       bool         `json:"done"`
	DoneReason string       `json:"done_reason,omitempty"`
	Error      string       `json:"error,omitempty"`

	TotalDuration      int64 `json:"total_duration,omitempty"`
	LoadDuration       int64 `json:"load_duration,omitempty"`
	PromptEvalCount    int   `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64 `json:"prompt_eval_duration,omitempty"`
	EvalCount          int   `json:"eval_count,omitempty"`
	EvalDuration       int64 `json:"eval_duration,omitempty"`
}

// Content returns the message text carried by the response.
func (r *ChatResponse) Content() string {
	if r == nil || r.Message == nil {
		return ""
	}
	return r.Message.Content
}

// HasMessage reports whether the reply carried a message object.
func (r *ChatResponse) HasMessage() bool {
	return r != nil && r.Message != nil
}

// ModelList is the body of the endpoint's model listing.
type ModelList struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo describes one model installed on the local endpoint.
type ModelInfo struct {
	Name       string    `json:"name"`
	Model      string    `json:"model"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}
