// Package openai provides the OpenAI adapter for the model gateway
// interface, using the official OpenAI Go SDK.
package openai

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"intake/pkg/llm"
	"intake/pkg/llm/llmerrors"
)

// Client wraps the official OpenAI client to implement llm.Client.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewClient creates an OpenAI client for the given model. timeout bounds
// each Complete call end to end.
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
	}
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := in.Validate(); err != nil {
		return llm.CompletionResponse{}, llmerrors.Wrap(llmerrors.ErrorTypeBadPrompt, err)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(c.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(in.MaxTokens)),
	}
	// Reasoning models (o-series) reject explicit temperature settings.
	if !isReasoningModel(c.model) {
		params.Temperature = openai.Float(float64(in.Temperature))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty response from OpenAI API")
	}

	choice := resp.Choices[0]
	return llm.CompletionResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// GetModelName implements llm.Client.
func (c *Client) GetModelName() string {
	return c.model
}

// isReasoningModel reports whether the model is an o-series reasoning model
// with fixed temperature.
func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4")
}

// classifyError maps OpenAI SDK errors to structured error types.
func classifyError(err error) *llmerrors.Error {
	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") ||
		strings.Contains(lower, "invalid api key") || strings.Contains(lower, "incorrect api key"):
		return llmerrors.Wrap(llmerrors.ErrorTypeAuth, err)
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "quota"):
		return llmerrors.Wrap(llmerrors.ErrorTypeRateLimit, err)
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") || strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "connection"):
		return llmerrors.Wrap(llmerrors.ErrorTypeTransient, err)
	case strings.Contains(lower, "400") || strings.Contains(lower, "context length") ||
		strings.Contains(lower, "maximum context"):
		return llmerrors.Wrap(llmerrors.ErrorTypeBadPrompt, err)
	default:
		return llmerrors.Wrap(llmerrors.ErrorTypeUnknown, err)
	}
}
