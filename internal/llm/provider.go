// Package llm defines the provider-agnostic interface for language
// generation. Ali's dialogue layer renders winning thoughts through a
// Provider; backends range from a full OpenAI-compatible API to the
// rule-based newborn voice.
package llm

import "context"

// Provider is the abstraction over any language backend.
type Provider interface {
	// SendMessage sends a conversation and returns the generated reply.
	SendMessage(ctx context.Context, req *Request) (*Response, error)
	// Name returns the provider identifier (e.g. "openai", "simple").
	Name() string
}

// Request is a full conversation sent to the provider.
type Request struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64 // 0 = provider default.
}

// Message is a single turn in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role identifies who sent a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response is what the provider returns.
type Response struct {
	Content    string
	Usage      Usage
	StopReason string // "end_turn", "max_tokens"
}

// Usage tracks token consumption for cost accounting.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// LastUserMessage returns the content of the most recent user turn, or
// an empty string when there is none.
func (r *Request) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}
