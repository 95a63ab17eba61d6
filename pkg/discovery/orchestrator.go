package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"intake/pkg/config"
	"intake/pkg/llm"
	"intake/pkg/llm/middleware/metrics"
	"intake/pkg/logx"
)

// StageInterview labels interview gateway calls in metrics.
const StageInterview = "interview"

// TurnResult is what an orchestrated turn hands back to its caller.
type TurnResult struct {
	AssistantMessage string
	Level            Level
	TurnNumber       int
	TokensUsed       int
	// ShouldGeneratePlan is set when the reply contains a readiness trigger
	// or the hard turn limit was reached. Advisory: the caller decides
	// whether to start the pipeline.
	ShouldGeneratePlan bool
}

// Orchestrator drives one discovery turn end to end: pacing, prompt
// assembly, the gateway call, persistence, and readiness detection.
type Orchestrator struct {
	store      SessionStore
	client     llm.Client
	classifier ReadinessClassifier
	logger     *logx.Logger
	thresholds config.Thresholds
	budget     int
}

// NewOrchestrator wires an orchestrator. The client should already carry
// retry and metrics middleware.
func NewOrchestrator(store SessionStore, client llm.Client, classifier ReadinessClassifier, thresholds config.Thresholds, budget int) *Orchestrator {
	if classifier == nil {
		classifier = NewPhraseClassifier()
	}
	return &Orchestrator{
		store:      store,
		client:     client,
		classifier: classifier,
		logger:     logx.NewLogger("orchestrator"),
		thresholds: thresholds,
		budget:     budget,
	}
}

// StartSession creates a new active session and persists the greeting as
// turn 0. The greeting is authored locally; no gateway call happens here.
func (o *Orchestrator) StartSession(ctx context.Context) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.New().String(),
		Status:    StatusActive,
		TurnCount: 0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	greeting := &Turn{
		SessionID:        sess.ID,
		TurnNumber:       0,
		AssistantMessage: GreetingMessage,
		InteractionMode:  ModeText,
		TurnContext:      LevelDiscovery,
		CreatedAt:        now,
	}
	if err := o.store.AppendTurn(ctx, greeting); err != nil {
		return nil, fmt.Errorf("persist greeting: %w", err)
	}
	o.logger.Info("session %s started", sess.ID)
	return sess, nil
}

// HandleTurn processes one user message. On gateway failure nothing is
// persisted and the turn count does not advance, so the user can simply
// retry. At or beyond the turn cap the orchestrator short-circuits: no
// gateway call, a fixed wrap-up message, and ShouldGeneratePlan set.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, userMessage string) (*TurnResult, error) {
	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusActive {
		return nil, &StateConflictError{SessionID: sessionID, Status: sess.Status, Op: "handle turn"}
	}

	next := sess.TurnCount + 1
	level := LevelFor(next, o.thresholds)

	if level == LevelHardLimit {
		// Deliberate short-circuit: runaway interviews end deterministically
		// and at zero model cost. Nothing is persisted, so repeated calls
		// are idempotent.
		o.logger.Info("session %s hit turn limit at turn %d", sessionID, next)
		return &TurnResult{
			AssistantMessage:   HardLimitMessage,
			Level:              LevelHardLimit,
			TurnNumber:         next,
			ShouldGeneratePlan: true,
		}, nil
	}

	turns, err := o.store.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	req := llm.CompletionRequest{
		Messages:    buildMessages(level, sess, turns, userMessage),
		MaxTokens:   o.budget,
		Temperature: llm.TemperatureInterview,
	}
	ctx = metrics.WithLabels(ctx, metrics.Labels{SessionID: sessionID, Stage: StageInterview})
	resp, err := o.client.Complete(ctx, req)
	if err != nil {
		// Propagate as-is; no turn is recorded and the count stays put.
		return nil, fmt.Errorf("interview call (turn %d): %w", next, err)
	}

	turn := &Turn{
		SessionID:        sessionID,
		TurnNumber:       next,
		UserMessage:      userMessage,
		AssistantMessage: resp.Content,
		InteractionMode:  ModeText,
		TurnContext:      level,
		TokensUsed:       resp.Usage.TotalTokens,
		CreatedAt:        time.Now().UTC(),
	}
	if err := o.store.AppendTurn(ctx, turn); err != nil {
		return nil, fmt.Errorf("persist turn %d: %w", next, err)
	}

	ready := o.classifier.Ready(resp.Content)
	if ready {
		o.logger.Debug("session %s readiness trigger at turn %d", sessionID, next)
	}
	return &TurnResult{
		AssistantMessage:   resp.Content,
		Level:              level,
		TurnNumber:         next,
		TokensUsed:         resp.Usage.TotalTokens,
		ShouldGeneratePlan: ready,
	}, nil
}

// Pause suspends an active session.
func (o *Orchestrator) Pause(ctx context.Context, sessionID string) error {
	return o.store.UpdateSessionStatus(ctx, sessionID, StatusActive, StatusPaused)
}

// Resume reactivates a paused session.
func (o *Orchestrator) Resume(ctx context.Context, sessionID string) error {
	return o.store.UpdateSessionStatus(ctx, sessionID, StatusPaused, StatusActive)
}

// buildMessages turns the stored transcript plus the incoming user message
// into the gateway message list. The turn-0 greeting is skipped: it is a
// fixed system-authored opener, and providers require the conversation to
// lead with a user message.
func buildMessages(level Level, sess *Session, turns []Turn, userMessage string) []llm.Message {
	msgs := make([]llm.Message, 0, 2*len(turns)+2)
	msgs = append(msgs, llm.NewSystemMessage(buildSystemPrompt(level, sess.ExtractedRequirements)))
	for _, t := range turns {
		if t.UserMessage == "" {
			continue
		}
		msgs = append(msgs, llm.NewUserMessage(t.UserMessage))
		msgs = append(msgs, llm.NewAssistantMessage(t.AssistantMessage))
	}
	msgs = append(msgs, llm.NewUserMessage(userMessage))
	return msgs
}
