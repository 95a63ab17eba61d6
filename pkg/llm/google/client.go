// Package google provides the Google Gemini adapter for the model gateway
// interface.
package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"intake/pkg/llm"
	"intake/pkg/llm/llmerrors"
)

// Client wraps the Google GenAI client to implement llm.Client.
type Client struct {
	client  *genai.Client
	apiKey  string
	model   string
	timeout time.Duration
}

// NewClient creates a Gemini client for the given model. The underlying SDK
// client is created lazily on first use because its constructor requires a
// context.
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
	}
}

// convertMessages converts gateway messages to Gemini Content. System
// messages become the system instruction; Gemini uses "model" for the
// assistant role.
func convertMessages(messages []llm.Message) (contents []*genai.Content, systemInstruction string, err error) {
	var systemParts []string
	for i := range messages {
		msg := &messages[i]
		if msg.Role == llm.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}

		var role string
		switch msg.Role {
		case llm.RoleUser:
			role = "user"
		case llm.RoleAssistant:
			role = "model"
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	if len(contents) == 0 {
		return nil, "", fmt.Errorf("must have at least one non-system message")
	}
	return contents, strings.Join(systemParts, "\n\n"), nil
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := in.Validate(); err != nil {
		return llm.CompletionResponse{}, llmerrors.Wrap(llmerrors.ErrorTypeBadPrompt, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return llm.CompletionResponse{}, llmerrors.Wrap(llmerrors.ErrorTypeAuth, fmt.Errorf("failed to create Gemini client: %w", err))
		}
		c.client = client
	}

	contents, systemInstruction, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	//nolint:gosec // MaxTokens validated upstream, overflow not reachable
	cfg := &genai.GenerateContentConfig{
		Temperature:     &in.Temperature,
		MaxOutputTokens: int32(in.MaxTokens),
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty response from Gemini API")
	}

	resp := llm.CompletionResponse{
		Content:    result.Text(),
		StopReason: string(result.Candidates[0].FinishReason),
	}
	if result.UsageMetadata != nil {
		resp.Usage = llm.Usage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}

// GetModelName implements llm.Client.
func (c *Client) GetModelName() string {
	return c.model
}

// classifyError maps GenAI SDK errors to structured error types.
func classifyError(err error) *llmerrors.Error {
	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") ||
		strings.Contains(lower, "permission") || strings.Contains(lower, "api key"):
		return llmerrors.Wrap(llmerrors.ErrorTypeAuth, err)
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "resource exhausted") || strings.Contains(lower, "quota"):
		return llmerrors.Wrap(llmerrors.ErrorTypeRateLimit, err)
	case strings.Contains(lower, "500") || strings.Contains(lower, "503") ||
		strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") ||
		strings.Contains(lower, "unavailable"):
		return llmerrors.Wrap(llmerrors.ErrorTypeTransient, err)
	case strings.Contains(lower, "400") || strings.Contains(lower, "invalid argument"):
		return llmerrors.Wrap(llmerrors.ErrorTypeBadPrompt, err)
	default:
		return llmerrors.Wrap(llmerrors.ErrorTypeUnknown, err)
	}
}
