// Package metrics provides metrics middleware for model gateway clients.
package metrics

import (
	"context"
	"time"
)

// Labels identify the logical operation a gateway call belongs to. They are
// attached to the context by the orchestrator and the plan pipeline.
type Labels struct {
	SessionID string
	Stage     string // interview, extraction, summary, technical
}

type labelsKey struct{}

// WithLabels attaches metric labels to a context.
func WithLabels(ctx context.Context, labels Labels) context.Context {
	return context.WithValue(ctx, labelsKey{}, labels)
}

// LabelsFrom extracts metric labels from a context, returning zero labels
// when none are attached.
func LabelsFrom(ctx context.Context) Labels {
	if labels, ok := ctx.Value(labelsKey{}).(Labels); ok {
		return labels
	}
	return Labels{}
}

// Recorder records outcomes of gateway calls.
type Recorder interface {
	ObserveRequest(
		model, sessionID, stage string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)
}
