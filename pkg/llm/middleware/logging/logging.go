// Package logging provides a gateway middleware that logs request
// outcomes. Message bodies are never logged; only shape and timing.
package logging

import (
	"context"
	"time"

	"intake/pkg/llm"
	"intake/pkg/logx"
)

// Middleware logs one line per gateway call: model, message count, budget,
// duration, and outcome.
func Middleware() llm.Middleware {
	logger := logx.NewLogger("gateway")
	return func(next llm.Client) llm.Client {
		model := next.GetModelName()
		return llm.WrapClient(func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
			start := time.Now()
			resp, err := next.Complete(ctx, req)
			elapsed := time.Since(start)
			if err != nil {
				logger.Warn("%s: %d messages, budget %d: failed after %s: %v",
					model, len(req.Messages), req.MaxTokens, elapsed.Round(time.Millisecond), err)
				return resp, err
			}
			logger.Debug("%s: %d messages, budget %d: %d tokens in %s",
				model, len(req.Messages), req.MaxTokens, resp.Usage.TotalTokens, elapsed.Round(time.Millisecond))
			return resp, nil
		}, next.GetModelName)
	}
}
