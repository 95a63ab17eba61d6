package metrics

import (
	"context"
	"time"

	"intake/pkg/llm"
	"intake/pkg/llm/llmerrors"
	"intake/pkg/tokens"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Middleware records request latency, token usage, and outcomes for every
// gateway call. Providers that report usage are trusted; otherwise usage is
// estimated from the request and response text.
func Middleware(recorder Recorder) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				labels := LabelsFrom(ctx)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageOrEstimate(req, resp)
				}

				errorType := ""
				if err != nil {
					errorType = llmerrors.TypeOf(err).String()
				}

				recorder.ObserveRequest(
					next.GetModelName(),
					labels.SessionID,
					labels.Stage,
					promptTokens,
					completionTokens,
					err == nil,
					errorType,
					duration,
				)
				return resp, err
			},
			next.GetModelName,
		)
	}
}

// usageOrEstimate prefers provider-reported usage, falling back to tokenizer
// estimation when the provider omitted it.
func usageOrEstimate(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		return resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}

	var promptText string
	for i := range req.Messages {
		promptText += req.Messages[i].Content + "\n"
	}
	return tokens.Count(promptText), tokens.Count(resp.Content)
}
