package ai

import "context"

// Message is one turn in the generation request
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CompletionRequest is a single text-generation request
type CompletionRequest struct {
	System      string    // persona preamble plus serialized context
	Messages    []Message // ordered history, ending with the new user message
	Model       string    // optional override of the provider default
	MaxTokens   int
	Temperature float32
}

// Usage reports token accounting for a completion
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the provider's response
type Completion struct {
	Content string
	Usage   Usage
}

// Provider is the external text-generation collaborator. Implementations
// must be safe for concurrent use.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
}
