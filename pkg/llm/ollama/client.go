// Package ollama provides the Ollama adapter for the model gateway
// interface. Ollama is a local runtime for open-source models, useful for
// development without provider credentials.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"intake/pkg/llm"
	"intake/pkg/llm/llmerrors"
)

// Client wraps the Ollama API client to implement llm.Client.
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewClient creates an Ollama client. hostURL should be the Ollama server
// URL, e.g. "http://localhost:11434".
func NewClient(hostURL, model string, timeout time.Duration) *Client {
	parsedURL, err := url.Parse(hostURL)
	if err != nil {
		parsedURL, _ = url.Parse("http://localhost:11434")
	}
	return &Client{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		timeout: timeout,
	}
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := in.Validate(); err != nil {
		return llm.CompletionResponse{}, llmerrors.Wrap(llmerrors.ErrorTypeBadPrompt, err)
	}

	messages := make([]api.Message, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		messages = append(messages, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var response api.ChatResponse
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if response.Message.Content == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty response from Ollama")
	}

	return llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: stopReason(&response),
		Usage: llm.Usage{
			PromptTokens:     response.PromptEvalCount,
			CompletionTokens: response.EvalCount,
			TotalTokens:      response.PromptEvalCount + response.EvalCount,
		},
	}, nil
}

// GetModelName implements llm.Client.
func (c *Client) GetModelName() string {
	return c.model
}

// stopReason converts Ollama's done_reason to the gateway's stop reason
// vocabulary.
func stopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}
	switch resp.DoneReason {
	case "stop", "":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return resp.DoneReason
	}
}

// classifyError converts Ollama errors to structured error types.
func classifyError(err error) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return llmerrors.NewError(llmerrors.ErrorTypeTransient, fmt.Sprintf("Ollama server not reachable: %v", err))
	case strings.Contains(errStr, "model") && strings.Contains(errStr, "not found"):
		return llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("Ollama model not found: %v", err))
	case strings.Contains(errStr, "context canceled"), strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "deadline exceeded"):
		return llmerrors.NewError(llmerrors.ErrorTypeTransient, fmt.Sprintf("request interrupted: %v", err))
	default:
		return llmerrors.NewError(llmerrors.ErrorTypeUnknown, fmt.Sprintf("Ollama API error: %v", err))
	}
}
