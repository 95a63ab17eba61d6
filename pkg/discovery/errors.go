package discovery

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrTurnConflict is returned when an append races with another writer:
// the session's turn count no longer matches what the caller observed.
var ErrTurnConflict = errors.New("turn count changed concurrently")

// StateConflictError is returned when an operation is attempted against a
// session whose status does not permit it.
type StateConflictError struct {
	SessionID string
	Status    Status
	Op        string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("session %s: cannot %s in status %q", e.SessionID, e.Op, e.Status)
}

// IsStateConflict reports whether err is a StateConflictError.
func IsStateConflict(err error) bool {
	var sc *StateConflictError
	return errors.As(err, &sc)
}
