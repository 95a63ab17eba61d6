package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusActive, StatusPaused},
		{StatusActive, StatusGenerating},
		{StatusActive, StatusAbandoned},
		{StatusPaused, StatusActive},
		{StatusPaused, StatusAbandoned},
		{StatusGenerating, StatusCompleted},
		{StatusGenerating, StatusFailed},
	}
	for _, tr := range allowed {
		assert.True(t, tr.from.CanTransitionTo(tr.to), "%s -> %s should be allowed", tr.from, tr.to)
	}

	denied := []struct{ from, to Status }{
		{StatusActive, StatusCompleted},
		{StatusPaused, StatusGenerating},
		{StatusCompleted, StatusActive},
		{StatusFailed, StatusGenerating},
		{StatusAbandoned, StatusActive},
		{StatusGenerating, StatusActive},
	}
	for _, tr := range denied {
		assert.False(t, tr.from.CanTransitionTo(tr.to), "%s -> %s should be denied", tr.from, tr.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range ValidStatuses() {
		terminal := s == StatusCompleted || s == StatusFailed || s == StatusAbandoned
		assert.Equal(t, terminal, s.IsTerminal(), "status %s", s)
	}
}
