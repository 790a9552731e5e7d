package llm

import (
	"context"
	"errors"
)

// ErrUnavailable marks completion-service failures (network, auth, provider
// rate limits). Callers match it with errors.Is to distinguish an outage of
// the completion service from internal failures.
var ErrUnavailable = errors.New("completion service unavailable")

// Role constants for chat messages
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the reply to a single chat invocation
type Completion struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// Client is the narrow capability interface every pipeline call goes through
// (classification, SQL generation, answer synthesis, question splitting).
// Network or availability failures surface as errors and are never swallowed
// below this boundary.
type Client interface {
	Invoke(ctx context.Context, messages []Message) (*Completion, error)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, input string) ([]float32, error)
}

// System and User are small helpers for building prompt message lists.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}
