// Package anthropic provides the Anthropic Claude adapter for the model
// gateway interface.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"intake/pkg/llm"
	"intake/pkg/llm/llmerrors"
)

// Client wraps the Anthropic API client to implement llm.Client.
type Client struct {
	client  anthropic.Client
	model   anthropic.Model
	timeout time.Duration
}

// NewClient creates a Claude client for the given model. timeout bounds each
// Complete call end to end.
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   anthropic.Model(model),
		timeout: timeout,
	}
}

// ensureAlternation prepares messages for the Anthropic API:
// system messages move to the top-level system parameter, consecutive user
// messages merge, and the sequence must end with a user message.
func ensureAlternation(messages []llm.Message) (systemPrompt string, alternating []llm.Message, err error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	var rest []llm.Message
	for i := range messages {
		msg := &messages[i]
		if msg.Role == llm.RoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			rest = append(rest, *msg)
		}
	}
	systemPrompt = strings.Join(systemParts, "\n\n")

	if len(rest) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}

	// Merge consecutive user messages.
	var merged []llm.Message
	var userParts []string
	flush := func() {
		if len(userParts) > 0 {
			merged = append(merged, llm.Message{Role: llm.RoleUser, Content: strings.Join(userParts, "\n\n")})
			userParts = nil
		}
	}
	for i := range rest {
		msg := &rest[i]
		if msg.Role == llm.RoleAssistant {
			flush()
			merged = append(merged, *msg)
		} else {
			userParts = append(userParts, msg.Content)
		}
	}
	flush()

	for i := range merged {
		if i > 0 && merged[i].Role == merged[i-1].Role {
			return "", nil, fmt.Errorf("alternation violation at index %d: consecutive %s messages", i, merged[i].Role)
		}
	}
	if merged[0].Role != llm.RoleUser {
		return "", nil, fmt.Errorf("first message must be user role, got: %s", merged[0].Role)
	}
	if merged[len(merged)-1].Role != llm.RoleUser {
		return "", nil, fmt.Errorf("last message must be user role, got: %s", merged[len(merged)-1].Role)
	}

	return systemPrompt, merged, nil
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := in.Validate(); err != nil {
		return llm.CompletionResponse{}, llmerrors.Wrap(llmerrors.ErrorTypeBadPrompt, err)
	}

	systemPrompt, alternating, err := ensureAlternation(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message alternation error: %v", err))
	}

	messages := make([]anthropic.MessageParam, 0, len(alternating))
	for i := range alternating {
		msg := &alternating[i]
		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(msg.Role),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
		})
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: systemPrompt,
			Type: "text",
		}}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty response from Claude API")
	}

	var text strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return llm.CompletionResponse{
		Content:    text.String(),
		StopReason: string(resp.StopReason),
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// GetModelName implements llm.Client.
func (c *Client) GetModelName() string {
	return string(c.model)
}

// classifyError maps Anthropic SDK errors to structured error types.
func classifyError(err error) *llmerrors.Error {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") ||
		strings.Contains(lower, "authentication") || strings.Contains(lower, "api key"):
		return llmerrors.Wrap(llmerrors.ErrorTypeAuth, err)
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "overloaded"):
		return llmerrors.Wrap(llmerrors.ErrorTypeRateLimit, err)
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") || strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "connection"):
		return llmerrors.Wrap(llmerrors.ErrorTypeTransient, err)
	case strings.Contains(lower, "400") || strings.Contains(lower, "invalid_request"):
		return llmerrors.Wrap(llmerrors.ErrorTypeBadPrompt, err)
	default:
		return llmerrors.Wrap(llmerrors.ErrorTypeUnknown, err)
	}
}
