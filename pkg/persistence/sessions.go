package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"intake/pkg/discovery"
)

// timeFormat is the stored timestamp layout.
const timeFormat = time.RFC3339Nano

// CreateSession inserts a new session.
func (s *Store) CreateSession(ctx context.Context, sess *discovery.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, status, turn_count, extracted_requirements, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, string(sess.Status), sess.TurnCount,
		nullableJSON(sess.ExtractedRequirements),
		sess.CreatedAt.UTC().Format(timeFormat),
		sess.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", sess.ID, err)
	}
	return nil
}

// GetSession loads a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*discovery.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, turn_count, extracted_requirements, created_at, updated_at
		FROM sessions WHERE id = ?`, id)

	var (
		sess      discovery.Session
		status    string
		extracted sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&sess.ID, &status, &sess.TurnCount, &extracted, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, discovery.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	sess.Status = discovery.Status(status)
	if extracted.Valid && extracted.String != "" {
		sess.ExtractedRequirements = json.RawMessage(extracted.String)
	}
	if sess.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at for session %s: %w", id, err)
	}
	if sess.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at for session %s: %w", id, err)
	}
	return &sess, nil
}

// UpdateSessionStatus performs a guarded transition. The WHERE clause on the
// expected status makes the check-and-set atomic under the single writer.
func (s *Store) UpdateSessionStatus(ctx context.Context, id string, from, to discovery.Status) error {
	if !from.CanTransitionTo(to) {
		return &discovery.StateConflictError{SessionID: id, Status: from, Op: "transition to " + string(to)}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC().Format(timeFormat), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update status for session %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return s.statusMismatch(ctx, id, "transition to "+string(to))
	}
	return nil
}

// AppendTurn inserts the turn and advances the turn count in one
// transaction. The count update is conditional on the caller's observed
// value, so two writers racing on the same session cannot both win.
func (s *Store) AppendTurn(ctx context.Context, turn *discovery.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	expected := turn.TurnNumber - 1
	if turn.TurnNumber == 0 {
		expected = 0
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET turn_count = ?, updated_at = ? WHERE id = ? AND turn_count = ?`,
		turn.TurnNumber, time.Now().UTC().Format(timeFormat), turn.SessionID, expected,
	)
	if err != nil {
		return fmt.Errorf("failed to advance turn count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if scanErr := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions WHERE id = ?", turn.SessionID).Scan(&exists); scanErr != nil {
			return fmt.Errorf("failed to check session %s: %w", turn.SessionID, scanErr)
		}
		if exists == 0 {
			return discovery.ErrSessionNotFound
		}
		return discovery.ErrTurnConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (session_id, turn_number, user_message, assistant_message, interaction_mode, turn_context, tokens_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.SessionID, turn.TurnNumber, turn.UserMessage, turn.AssistantMessage,
		string(turn.InteractionMode), string(turn.TurnContext), turn.TokensUsed,
		turn.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn %d: %w", turn.TurnNumber, err)
	}
	return tx.Commit()
}

// ListTurns returns the session's turns in turn-number order.
func (s *Store) ListTurns(ctx context.Context, sessionID string) ([]discovery.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, turn_number, user_message, assistant_message, interaction_mode, turn_context, tokens_used, created_at
		FROM turns WHERE session_id = ? ORDER BY turn_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	var turns []discovery.Turn
	for rows.Next() {
		var (
			t         discovery.Turn
			mode      string
			level     string
			createdAt string
		)
		if err := rows.Scan(&t.SessionID, &t.TurnNumber, &t.UserMessage, &t.AssistantMessage, &mode, &level, &t.TokensUsed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.InteractionMode = discovery.InteractionMode(mode)
		t.TurnContext = discovery.Level(level)
		if t.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse turn timestamp: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// SaveExtractedRequirements overwrites the session's requirements snapshot.
func (s *Store) SaveExtractedRequirements(ctx context.Context, sessionID string, raw json.RawMessage) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET extracted_requirements = ?, updated_at = ? WHERE id = ?`,
		string(raw), time.Now().UTC().Format(timeFormat), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to save requirements snapshot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return discovery.ErrSessionNotFound
	}
	return nil
}

// statusMismatch distinguishes a missing session from a stale status.
func (s *Store) statusMismatch(ctx context.Context, id, op string) error {
	var current string
	err := s.db.QueryRowContext(ctx, "SELECT status FROM sessions WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return discovery.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return &discovery.StateConflictError{SessionID: id, Status: discovery.Status(current), Op: op}
}

// nullableJSON maps an empty payload to NULL.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
