package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"intake/pkg/config"
	"intake/pkg/discovery"
	"intake/pkg/llm"
	"intake/pkg/llm/extract"
	"intake/pkg/llm/middleware/metrics"
	"intake/pkg/logx"
)

// StageClients holds one gateway client per pipeline stage. Stages may share
// a client or use different models.
type StageClients struct {
	Extraction llm.Client
	Summary    llm.Client
	Technical  llm.Client
}

// Options tunes a single pipeline invocation.
type Options struct {
	// Regenerate permits running the pipeline against an already completed
	// session. A fresh Plan record is produced; the session's status and
	// prior plans are untouched. Without this flag a completed session is a
	// state conflict.
	Regenerate bool
}

// Pipeline runs the three generation stages against a session's transcript.
// One invocation produces exactly one Plan record; there are no retries at
// this layer, the first stage failure ends the plan.
type Pipeline struct {
	sessions discovery.SessionStore
	plans    Store
	clients  StageClients
	logger   *logx.Logger
	budgets  config.Budgets
}

// NewPipeline wires a pipeline. Clients should already carry retry and
// metrics middleware.
func NewPipeline(sessions discovery.SessionStore, plans Store, clients StageClients, budgets config.Budgets) *Pipeline {
	return &Pipeline{
		sessions: sessions,
		plans:    plans,
		clients:  clients,
		logger:   logx.NewLogger("pipeline"),
		budgets:  budgets,
	}
}

// Generate runs the full pipeline for a session. On success the returned
// plan is completed and the session (unless regenerating) has moved to
// completed with it. On failure the plan is marked failed, any outputs from
// stages that did succeed are retained, and the error carries the failing
// stage.
func (p *Pipeline) Generate(ctx context.Context, sessionID string, opts Options) (*Plan, error) {
	sess, err := p.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// ownsSession: this run holds the session in generating and is
	// responsible for moving it to a terminal state.
	ownsSession := false
	switch sess.Status {
	case discovery.StatusActive, discovery.StatusPaused:
		if err := p.sessions.UpdateSessionStatus(ctx, sessionID, sess.Status, discovery.StatusGenerating); err != nil {
			return nil, err
		}
		ownsSession = true
	case discovery.StatusCompleted:
		if !opts.Regenerate {
			return nil, &discovery.StateConflictError{SessionID: sessionID, Status: sess.Status, Op: "generate plan"}
		}
	default:
		return nil, &discovery.StateConflictError{SessionID: sessionID, Status: sess.Status, Op: "generate plan"}
	}

	turns, err := p.sessions.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	transcript := formatTranscript(turns)

	now := time.Now().UTC()
	pl := &Plan{
		ID:              uuid.New().String(),
		SessionID:       sessionID,
		Status:          PlanGenerating,
		RawConversation: transcript,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := p.plans.CreatePlan(ctx, pl); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	p.logger.Info("plan %s started for session %s (%d turns)", pl.ID, sessionID, len(turns))

	// Stage 1: extraction.
	var reqs Requirements
	if err := p.runStage(ctx, StageExtraction, p.clients.Extraction, extractionPrompt(transcript), p.budgets.Extraction, sessionID, &reqs); err != nil {
		return pl, p.fail(ctx, pl, ownsSession, StageExtraction, err)
	}
	if err := reqs.Validate(); err != nil {
		// Schema drift is logged, not fatal: the object parsed and the later
		// stages can still work with it.
		p.logger.Warn("plan %s: extraction schema drift: %v", pl.ID, err)
	}
	if err := p.plans.SaveStructuredRequirements(ctx, pl.ID, &reqs); err != nil {
		return pl, p.fail(ctx, pl, ownsSession, StageExtraction, err)
	}
	pl.StructuredRequirements = &reqs

	reqsJSON, err := json.MarshalIndent(&reqs, "", "  ")
	if err != nil {
		return pl, p.fail(ctx, pl, ownsSession, StageExtraction, err)
	}
	// Refresh the session's biasing snapshot with the authoritative
	// extraction. Best effort.
	if err := p.sessions.SaveExtractedRequirements(ctx, sessionID, reqsJSON); err != nil {
		p.logger.Warn("plan %s: snapshot refresh failed: %v", pl.ID, err)
	}

	// Stage 2: user summary.
	var summary UserSummary
	if err := p.runStage(ctx, StageSummary, p.clients.Summary, summaryPrompt(string(reqsJSON)), p.budgets.Summary, sessionID, &summary); err != nil {
		return pl, p.fail(ctx, pl, ownsSession, StageSummary, err)
	}
	if err := p.plans.SaveUserSummary(ctx, pl.ID, &summary); err != nil {
		return pl, p.fail(ctx, pl, ownsSession, StageSummary, err)
	}
	pl.UserSummary = &summary

	// Stage 3: technical plan. Persisted atomically with completion.
	var tech TechnicalPlan
	if err := p.runStage(ctx, StageTechnical, p.clients.Technical, technicalPrompt(string(reqsJSON)), p.budgets.Technical, sessionID, &tech); err != nil {
		return pl, p.fail(ctx, pl, ownsSession, StageTechnical, err)
	}
	if err := p.plans.CompletePlan(ctx, pl.ID, sessionID, &tech, ownsSession); err != nil {
		return pl, p.fail(ctx, pl, ownsSession, StageTechnical, err)
	}
	pl.TechnicalPlan = &tech
	pl.Status = PlanCompleted
	p.logger.Info("plan %s completed", pl.ID)
	return pl, nil
}

// runStage performs one gateway call and decodes the JSON object out of the
// reply into dest.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, client llm.Client, prompt string, budget int, sessionID string, dest any) error {
	ctx = metrics.WithLabels(ctx, metrics.Labels{SessionID: sessionID, Stage: string(stage)})
	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{llm.NewUserMessage(prompt)},
		MaxTokens:   budget,
		Temperature: llm.TemperaturePipeline,
	})
	if err != nil {
		return err
	}
	if err := extract.Decode(resp.Content, dest); err != nil {
		return err
	}
	return nil
}

// fail records the stage failure on the plan and, when this run owns the
// session, moves it to failed. Outputs from earlier stages stay on the plan.
func (p *Pipeline) fail(ctx context.Context, pl *Plan, ownsSession bool, stage Stage, cause error) error {
	p.logger.Error("plan %s failed at %s: %v", pl.ID, stage, cause)
	if err := p.plans.MarkPlanFailed(ctx, pl.ID, stage, cause.Error()); err != nil {
		p.logger.Error("plan %s: could not record failure: %v", pl.ID, err)
	}
	pl.Status = PlanFailed
	pl.FailureStage = stage
	pl.FailureReason = cause.Error()
	if ownsSession {
		if err := p.sessions.UpdateSessionStatus(ctx, pl.SessionID, discovery.StatusGenerating, discovery.StatusFailed); err != nil {
			p.logger.Error("plan %s: could not fail session: %v", pl.ID, err)
		}
	}
	return &StageError{Stage: stage, Err: cause}
}

// formatTranscript renders the stored turns as the plain-text conversation
// snapshot persisted on the plan and fed to extraction.
func formatTranscript(turns []discovery.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.UserMessage != "" {
			b.WriteString("User: ")
			b.WriteString(t.UserMessage)
			b.WriteString("\n")
		}
		b.WriteString("Assistant: ")
		b.WriteString(t.AssistantMessage)
		b.WriteString("\n")
	}
	return b.String()
}
