package plan

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PlanStatus is a plan lifecycle state. Generating is the only non-terminal
// state; the first stage failure ends the plan.
type PlanStatus string

const (
	PlanGenerating PlanStatus = "generating"
	PlanCompleted  PlanStatus = "completed"
	PlanFailed     PlanStatus = "failed"
)

// Stage names the pipeline stages in execution order.
type Stage string

const (
	StageExtraction Stage = "extraction"
	StageSummary    Stage = "summary"
	StageTechnical  Stage = "technical"
)

// StageError wraps a stage failure with the stage that produced it.
type StageError struct {
	Err   error
	Stage Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage returns the failing stage when err is a StageError.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// ErrPlanNotFound is returned when a plan ID does not exist.
var ErrPlanNotFound = errors.New("plan not found")

// Plan is the structured output of one session. raw conversation and the
// three stage outputs are write-once: each field, once populated, is never
// mutated again.
type Plan struct {
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ID              string     `json:"id"`
	SessionID       string     `json:"session_id"`
	Status          PlanStatus `json:"status"`
	RawConversation string     `json:"raw_conversation"`

	// Each stage output is nil until its stage succeeds.
	StructuredRequirements *Requirements  `json:"structured_requirements,omitempty"`
	UserSummary            *UserSummary   `json:"user_summary,omitempty"`
	TechnicalPlan          *TechnicalPlan `json:"technical_plan,omitempty"`

	// FailureStage and FailureReason are set only for failed plans.
	FailureStage  Stage  `json:"failure_stage,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// Store is the persistence contract for plans. CompletePlan must be atomic:
// the technical plan, the status flip, and (when requested) the session
// transition to completed land in one logical operation or not at all.
type Store interface {
	CreatePlan(ctx context.Context, p *Plan) error
	GetPlan(ctx context.Context, id string) (*Plan, error)

	// ListPlansBySession returns all plans for a session, oldest first.
	// A session accumulates one plan per pipeline invocation.
	ListPlansBySession(ctx context.Context, sessionID string) ([]Plan, error)

	SaveStructuredRequirements(ctx context.Context, planID string, req *Requirements) error
	SaveUserSummary(ctx context.Context, planID string, summary *UserSummary) error

	MarkPlanFailed(ctx context.Context, planID string, stage Stage, reason string) error

	// CompletePlan persists the technical plan and marks the plan completed.
	// When completeSession is set the owning session moves from generating
	// to completed in the same transaction.
	CompletePlan(ctx context.Context, planID, sessionID string, tech *TechnicalPlan, completeSession bool) error
}
