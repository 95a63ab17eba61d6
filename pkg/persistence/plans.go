package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"intake/pkg/discovery"
	"intake/pkg/plan"
)

// CreatePlan inserts a new plan record.
func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plans (id, session_id, status, raw_conversation, failure_stage, failure_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SessionID, string(p.Status), p.RawConversation,
		string(p.FailureStage), p.FailureReason,
		p.CreatedAt.UTC().Format(timeFormat),
		p.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to create plan %s: %w", p.ID, err)
	}
	return nil
}

// GetPlan loads a plan by ID.
func (s *Store) GetPlan(ctx context.Context, id string) (*plan.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, status, raw_conversation, structured_requirements, user_summary, technical_plan, failure_stage, failure_reason, created_at, updated_at
		FROM plans WHERE id = ?`, id)

	p, err := scanPlan(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, plan.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", id, err)
	}
	return p, nil
}

// ListPlansBySession returns all plans for a session, oldest first.
func (s *Store) ListPlansBySession(ctx context.Context, sessionID string) ([]plan.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, status, raw_conversation, structured_requirements, user_summary, technical_plan, failure_stage, failure_reason, created_at, updated_at
		FROM plans WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	var plans []plan.Plan
	for rows.Next() {
		p, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// SaveStructuredRequirements persists the stage-1 output. Write-once: an
// already populated column is never overwritten.
func (s *Store) SaveStructuredRequirements(ctx context.Context, planID string, req *plan.Requirements) error {
	return s.saveStageOutput(ctx, planID, "structured_requirements", req)
}

// SaveUserSummary persists the stage-2 output.
func (s *Store) SaveUserSummary(ctx context.Context, planID string, summary *plan.UserSummary) error {
	return s.saveStageOutput(ctx, planID, "user_summary", summary)
}

// MarkPlanFailed records the failing stage and reason and ends the plan.
func (s *Store) MarkPlanFailed(ctx context.Context, planID string, stage plan.Stage, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE plans SET status = ?, failure_stage = ?, failure_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(plan.PlanFailed), string(stage), reason,
		time.Now().UTC().Format(timeFormat), planID, string(plan.PlanGenerating),
	)
	if err != nil {
		return fmt.Errorf("failed to mark plan %s failed: %w", planID, err)
	}
	return s.requireAffected(res, planID)
}

// CompletePlan persists the technical plan, flips the plan to completed and,
// when requested, moves the session from generating to completed in the same
// transaction. If any write cannot land the whole operation rolls back.
func (s *Store) CompletePlan(ctx context.Context, planID, sessionID string, tech *plan.TechnicalPlan, completeSession bool) error {
	payload, err := json.Marshal(tech)
	if err != nil {
		return fmt.Errorf("failed to encode technical plan: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeFormat)
	res, err := tx.ExecContext(ctx, `
		UPDATE plans SET status = ?, technical_plan = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(plan.PlanCompleted), string(payload), now, planID, string(plan.PlanGenerating),
	)
	if err != nil {
		return fmt.Errorf("failed to complete plan %s: %w", planID, err)
	}
	if err := s.requireAffected(res, planID); err != nil {
		return err
	}

	if completeSession {
		res, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(discovery.StatusCompleted), now, sessionID, string(discovery.StatusGenerating),
		)
		if err != nil {
			return fmt.Errorf("failed to complete session %s: %w", sessionID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			// Query through the transaction: it holds the only connection.
			var current string
			err := tx.QueryRowContext(ctx, "SELECT status FROM sessions WHERE id = ?", sessionID).Scan(&current)
			if errors.Is(err, sql.ErrNoRows) {
				return discovery.ErrSessionNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to load session %s: %w", sessionID, err)
			}
			return &discovery.StateConflictError{SessionID: sessionID, Status: discovery.Status(current), Op: "complete"}
		}
	}
	return tx.Commit()
}

// saveStageOutput writes a stage's JSON column only when it is still null,
// keeping stage outputs immutable once written.
func (s *Store) saveStageOutput(ctx context.Context, planID, column string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", column, err)
	}
	// column is one of two compile-time constants, never user input.
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE plans SET %s = ?, updated_at = ? WHERE id = ? AND %s IS NULL", column, column),
		string(payload), time.Now().UTC().Format(timeFormat), planID,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", column, err)
	}
	return s.requireAffected(res, planID)
}

func (s *Store) requireAffected(res sql.Result, planID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("plan %s: %w or not writable in its current state", planID, plan.ErrPlanNotFound)
	}
	return nil
}

// scanPlan maps one row onto a Plan, decoding the JSON stage columns.
func scanPlan(scan func(dest ...any) error) (*plan.Plan, error) {
	var (
		p            plan.Plan
		status       string
		reqs         sql.NullString
		summary      sql.NullString
		tech         sql.NullString
		failureStage string
		createdAt    string
		updatedAt    string
	)
	err := scan(&p.ID, &p.SessionID, &status, &p.RawConversation, &reqs, &summary, &tech, &failureStage, &p.FailureReason, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Status = plan.PlanStatus(status)
	p.FailureStage = plan.Stage(failureStage)
	if reqs.Valid {
		p.StructuredRequirements = &plan.Requirements{}
		if err := json.Unmarshal([]byte(reqs.String), p.StructuredRequirements); err != nil {
			return nil, fmt.Errorf("failed to decode structured requirements: %w", err)
		}
	}
	if summary.Valid {
		p.UserSummary = &plan.UserSummary{}
		if err := json.Unmarshal([]byte(summary.String), p.UserSummary); err != nil {
			return nil, fmt.Errorf("failed to decode user summary: %w", err)
		}
	}
	if tech.Valid {
		p.TechnicalPlan = &plan.TechnicalPlan{}
		if err := json.Unmarshal([]byte(tech.String), p.TechnicalPlan); err != nil {
			return nil, fmt.Errorf("failed to decode technical plan: %w", err)
		}
	}
	if p.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &p, nil
}
