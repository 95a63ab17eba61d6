package persistence

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/pkg/discovery"
	"intake/pkg/plan"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "intake.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newSession(t *testing.T, store *Store, status discovery.Status) *discovery.Session {
	t.Helper()
	now := time.Now().UTC()
	sess := &discovery.Session{
		ID:        uuid.New().String(),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.CreateSession(context.Background(), sess))
	return sess
}

func appendTurn(t *testing.T, store *Store, sessionID string, number int, user, assistant string) {
	t.Helper()
	require.NoError(t, store.AppendTurn(context.Background(), &discovery.Turn{
		SessionID:        sessionID,
		TurnNumber:       number,
		UserMessage:      user,
		AssistantMessage: assistant,
		InteractionMode:  discovery.ModeText,
		TurnContext:      discovery.LevelDiscovery,
		TokensUsed:       42,
		CreatedAt:        time.Now().UTC(),
	}))
}

func TestSessionRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sess := newSession(t, store, discovery.StatusActive)

	loaded, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, discovery.StatusActive, loaded.Status)
	assert.Equal(t, 0, loaded.TurnCount)
	assert.Nil(t, loaded.ExtractedRequirements)

	snapshot := json.RawMessage(`{"project_name":"Bookly"}`)
	require.NoError(t, store.SaveExtractedRequirements(ctx, sess.ID, snapshot))
	loaded, err = store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(snapshot), string(loaded.ExtractedRequirements))

	_, err = store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, discovery.ErrSessionNotFound)
}

func TestAppendTurnIsGapless(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sess := newSession(t, store, discovery.StatusActive)

	appendTurn(t, store, sess.ID, 0, "", "welcome")
	appendTurn(t, store, sess.ID, 1, "hello", "tell me more")
	appendTurn(t, store, sess.ID, 2, "a booking app", "who uses it?")

	// A writer that read turn_count=1 loses to the one that already wrote
	// turn 2.
	err := store.AppendTurn(ctx, &discovery.Turn{
		SessionID: sess.ID, TurnNumber: 2,
		AssistantMessage: "stale", CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, discovery.ErrTurnConflict)

	// Skipping a number is also a conflict.
	err = store.AppendTurn(ctx, &discovery.Turn{
		SessionID: sess.ID, TurnNumber: 5,
		AssistantMessage: "gap", CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, discovery.ErrTurnConflict)

	loaded, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.TurnCount)

	turns, err := store.ListTurns(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	for i, turn := range turns {
		assert.Equal(t, i, turn.TurnNumber)
	}
	assert.Equal(t, "a booking app", turns[2].UserMessage)
	assert.Equal(t, 42, turns[2].TokensUsed)

	err = store.AppendTurn(ctx, &discovery.Turn{SessionID: "missing", TurnNumber: 1, AssistantMessage: "x", CreatedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, discovery.ErrSessionNotFound)
}

func TestUpdateSessionStatusGuards(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sess := newSession(t, store, discovery.StatusActive)

	require.NoError(t, store.UpdateSessionStatus(ctx, sess.ID, discovery.StatusActive, discovery.StatusGenerating))

	// Stale expected status.
	err := store.UpdateSessionStatus(ctx, sess.ID, discovery.StatusActive, discovery.StatusPaused)
	assert.True(t, discovery.IsStateConflict(err))

	// Illegal transition is rejected before touching the database.
	err = store.UpdateSessionStatus(ctx, sess.ID, discovery.StatusGenerating, discovery.StatusActive)
	assert.True(t, discovery.IsStateConflict(err))

	err = store.UpdateSessionStatus(ctx, "missing", discovery.StatusActive, discovery.StatusPaused)
	assert.ErrorIs(t, err, discovery.ErrSessionNotFound)
}

func newPlan(t *testing.T, store *Store, sessionID string) *plan.Plan {
	t.Helper()
	now := time.Now().UTC()
	p := &plan.Plan{
		ID:              uuid.New().String(),
		SessionID:       sessionID,
		Status:          plan.PlanGenerating,
		RawConversation: "User: hi\nAssistant: hello\n",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, store.CreatePlan(context.Background(), p))
	return p
}

func TestPlanStageOutputsAreWriteOnce(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sess := newSession(t, store, discovery.StatusGenerating)
	p := newPlan(t, store, sess.ID)

	reqs := &plan.Requirements{
		Project:    plan.ProjectInfo{Name: "Bookly"},
		Complexity: plan.ComplexityMedium,
		Confidence: plan.ConfidenceHigh,
	}
	require.NoError(t, store.SaveStructuredRequirements(ctx, p.ID, reqs))

	overwrite := &plan.Requirements{Project: plan.ProjectInfo{Name: "Other"}}
	assert.Error(t, store.SaveStructuredRequirements(ctx, p.ID, overwrite), "stage outputs are immutable once written")

	loaded, err := store.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.StructuredRequirements)
	assert.Equal(t, "Bookly", loaded.StructuredRequirements.Project.Name)
	assert.Nil(t, loaded.UserSummary)
	assert.Nil(t, loaded.TechnicalPlan)
}

func TestMarkPlanFailed(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sess := newSession(t, store, discovery.StatusGenerating)
	p := newPlan(t, store, sess.ID)

	require.NoError(t, store.MarkPlanFailed(ctx, p.ID, plan.StageSummary, "empty response"))

	loaded, err := store.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.PlanFailed, loaded.Status)
	assert.Equal(t, plan.StageSummary, loaded.FailureStage)
	assert.Equal(t, "empty response", loaded.FailureReason)

	// A finished plan cannot fail again.
	assert.Error(t, store.MarkPlanFailed(ctx, p.ID, plan.StageTechnical, "late"))
}

func TestCompletePlanAtomicWithSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sess := newSession(t, store, discovery.StatusGenerating)
	p := newPlan(t, store, sess.ID)

	tech := &plan.TechnicalPlan{ExecutiveSummary: "a small service"}
	require.NoError(t, store.CompletePlan(ctx, p.ID, sess.ID, tech, true))

	loaded, err := store.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.PlanCompleted, loaded.Status)
	require.NotNil(t, loaded.TechnicalPlan)
	assert.Equal(t, "a small service", loaded.TechnicalPlan.ExecutiveSummary)

	updated, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, discovery.StatusCompleted, updated.Status)
}

func TestCompletePlanRollsBackWhenSessionBlocked(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	// Session never entered generating, so the session leg of the
	// transaction cannot land.
	sess := newSession(t, store, discovery.StatusActive)
	p := newPlan(t, store, sess.ID)

	err := store.CompletePlan(ctx, p.ID, sess.ID, &plan.TechnicalPlan{}, true)
	require.Error(t, err)
	assert.True(t, discovery.IsStateConflict(err))

	// The plan write rolled back with it.
	loaded, getErr := store.GetPlan(ctx, p.ID)
	require.NoError(t, getErr)
	assert.Equal(t, plan.PlanGenerating, loaded.Status)
	assert.Nil(t, loaded.TechnicalPlan)
}

func TestCompletePlanWithoutSessionTransition(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sess := newSession(t, store, discovery.StatusCompleted)
	p := newPlan(t, store, sess.ID)

	require.NoError(t, store.CompletePlan(ctx, p.ID, sess.ID, &plan.TechnicalPlan{}, false))

	updated, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, discovery.StatusCompleted, updated.Status)
}

func TestListPlansBySession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sess := newSession(t, store, discovery.StatusGenerating)

	first := newPlan(t, store, sess.ID)
	time.Sleep(2 * time.Millisecond)
	second := newPlan(t, store, sess.ID)

	plans, err := store.ListPlansBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, first.ID, plans[0].ID)
	assert.Equal(t, second.ID, plans[1].ID)

	empty, err := store.ListPlansBySession(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intake.db")

	store, err := Open(path)
	require.NoError(t, err)
	sess := newSession(t, store, discovery.StatusActive)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
}
