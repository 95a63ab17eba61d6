// Package llm defines the model gateway boundary: the client interface,
// request/response types, and middleware chaining for provider adapters.
package llm

import (
	"context"
	"fmt"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem indicates an instruction-layer message.
	RoleSystem Role = "system"
	// RoleUser indicates a message from the human user.
	RoleUser Role = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant Role = "assistant"
)

// Temperature defaults. Interview turns allow some exploration; pipeline
// stages stay near-deterministic.
const (
	TemperatureInterview float32 = 0.7
	TemperaturePipeline  float32 = 0.2
)

// Message is one entry in a conversation transcript sent to a model.
type Message struct {
	Role    Role
	Content string
}

// Usage reports token consumption for a single completion, as returned by
// the provider. All-zero usage means the provider did not report it; callers
// that need numbers regardless should estimate (see pkg/tokens).
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a successful completion. Content is free
// text; callers must not assume it is valid JSON even when JSON was
// requested.
type CompletionResponse struct {
	Content    string
	StopReason string
	Usage      Usage
}

// Client is the model gateway interface. Complete blocks for the duration of
// the network round trip; implementations must honor ctx cancellation and
// enforce a bounded timeout so a call always resolves to a response or a
// typed failure.
type Client interface {
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name this client targets.
	GetModelName() string
}

// NewCompletionRequest creates a completion request with default values.
func NewCompletionRequest(messages []Message) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   2000,
		Temperature: TemperaturePipeline,
	}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Validate performs basic request sanity checks shared by all adapters.
func (r *CompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("message list cannot be empty")
	}
	if r.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", r.MaxTokens)
	}
	return nil
}
