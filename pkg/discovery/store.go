package discovery

import (
	"context"
	"encoding/json"
)

// SessionStore is the persistence contract for sessions and turns.
// Implementations must make AppendTurn atomic: the turn insert and the
// session turn-count increment succeed or fail together, and the increment
// is conditional on the caller's observed count.
type SessionStore interface {
	CreateSession(ctx context.Context, sess *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)

	// UpdateSessionStatus transitions the session from the expected status
	// to the next one. Returns a StateConflictError when the stored status
	// is not the expected one or the transition is not allowed.
	UpdateSessionStatus(ctx context.Context, id string, from, to Status) error

	// AppendTurn persists the turn and advances the session's turn count to
	// turn.TurnNumber, but only if the stored count is turn.TurnNumber-1.
	// Returns ErrTurnConflict otherwise.
	AppendTurn(ctx context.Context, turn *Turn) error

	// ListTurns returns the session's turns ordered by turn number.
	ListTurns(ctx context.Context, sessionID string) ([]Turn, error)

	// SaveExtractedRequirements overwrites the session's requirements
	// snapshot.
	SaveExtractedRequirements(ctx context.Context, sessionID string, raw json.RawMessage) error
}
