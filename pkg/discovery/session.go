// Package discovery implements the conversation-pacing core: sessions,
// turns, the guidance engine, readiness detection, and the turn
// orchestrator.
package discovery

import (
	"encoding/json"
	"time"
)

// Status is a session lifecycle state. Transitions are restricted to the
// canonical table below; use CanTransitionTo before any status write.
type Status string

const (
	// StatusActive is the initial state; the interview is in progress.
	StatusActive Status = "active"
	// StatusPaused is a user-initiated suspension; resumable.
	StatusPaused Status = "paused"
	// StatusGenerating means plan production has started.
	StatusGenerating Status = "generating"
	// StatusCompleted is terminal; reached only on pipeline success.
	StatusCompleted Status = "completed"
	// StatusFailed is terminal; reached on unrecoverable pipeline error.
	StatusFailed Status = "failed"
	// StatusAbandoned is terminal; applied by external timeout policy.
	StatusAbandoned Status = "abandoned"
)

// statusTransitions is the canonical transition table. Terminal states have
// no outgoing edges.
//
//nolint:gochecknoglobals // Static transition table
var statusTransitions = map[Status][]Status{
	StatusActive:     {StatusPaused, StatusGenerating, StatusAbandoned},
	StatusPaused:     {StatusActive, StatusAbandoned},
	StatusGenerating: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
	StatusAbandoned:  {},
}

// CanTransitionTo reports whether the transition from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// ValidStatuses returns all session statuses.
func ValidStatuses() []Status {
	return []Status{StatusActive, StatusPaused, StatusGenerating, StatusCompleted, StatusFailed, StatusAbandoned}
}

// InteractionMode records how a turn's user message arrived.
type InteractionMode string

const (
	ModeText  InteractionMode = "text"
	ModeVoice InteractionMode = "voice"
)

// Session represents one discovery conversation.
type Session struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	// TurnCount is the number of the most recent persisted turn. It is
	// incremented exactly once per successfully completed turn; the greeting
	// is turn 0.
	TurnCount int `json:"turn_count"`
	// ExtractedRequirements is an optional snapshot used to bias later
	// prompts. Not authoritative; overwritten as the conversation evolves.
	ExtractedRequirements json.RawMessage `json:"extracted_requirements,omitempty"`
}

// Turn is one exchange within a session. Immutable once created.
type Turn struct {
	CreatedAt time.Time `json:"created_at"`
	SessionID string    `json:"session_id"`
	// UserMessage is empty for turn 0, the system-authored greeting.
	UserMessage      string          `json:"user_message,omitempty"`
	AssistantMessage string          `json:"assistant_message"`
	InteractionMode  InteractionMode `json:"interaction_mode"`
	// TurnContext snapshots the guidance level used to produce this turn.
	TurnContext Level `json:"turn_context"`
	TurnNumber  int   `json:"turn_number"`
	TokensUsed  int   `json:"tokens_used"`
}
