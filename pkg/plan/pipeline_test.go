package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/pkg/config"
	"intake/pkg/discovery"
	"intake/pkg/llm"
	"intake/pkg/llm/extract"
	"intake/pkg/llm/llmerrors"
)

const requirementsJSON = `{
  "project": {"name": "Bookly", "vision": "Simple salon bookings", "problem_statement": "Phone tag wastes hours"},
  "users": {"primary_users": "salon owners", "user_count_estimate": "200", "user_locations": "US"},
  "features": {"core_features": ["calendar", "reminders"], "nice_to_have": ["payments"], "integrations": ["google calendar"]},
  "technical": {"existing_systems": [], "scale_expectations": "small", "performance_critical": [], "security_requirements": ["PII"]},
  "timeline": {"desired_launch": "spring", "phases": "mvp then payments"},
  "constraints": {"budget": "modest", "team_size": "2", "other": []},
  "goals_and_success_metrics": ["fewer no-shows"],
  "complexity": "Medium",
  "confidence": "high",
  "gaps": ["payment provider undecided"]
}`

const summaryJSON = `{
  "project_overview": "Bookly helps salons take bookings online.",
  "goals_and_success": ["fewer no-shows"],
  "high_level_features": ["calendar", "reminders"],
  "complexity": "Medium",
  "next_steps_message": "Take a look at the plan and tell us what you think!"
}`

const technicalJSON = `{
  "executive_summary": "A small hosted booking service.",
  "full_technical_breakdown": {"description": "API plus web app", "key_components": ["api", "web", "jobs"]},
  "architecture_recommendations": {"pattern": "modular monolith", "rationale": "small team", "diagrams": ""},
  "tech_stack_details": {"backend": "Go", "frontend": "React", "database": "Postgres", "deployment": "Fly.io"},
  "timeline_week_ranges": {"total_weeks": "8-10", "phases": [{"name": "MVP", "weeks": "1-6", "deliverables": ["booking flow"]}]},
  "cost_estimates": {"development": "low five figures", "infrastructure_monthly": "$50", "third_party_services": ["twilio"], "total_estimate_range": "$20k-$35k", "assumptions": ["two developers"]},
  "risk_assessment": [{"risk": "calendar sync drift", "mitigation": "webhook reconciliation"}],
  "recommendations": {"architectural_decisions": ["start monolith"], "team_composition": "2 full-stack", "prioritization": ["booking flow first"]}
}`

func interviewTurns() []discovery.Turn {
	return []discovery.Turn{
		{TurnNumber: 0, AssistantMessage: "Hi! What would you like to build?"},
		{TurnNumber: 1, UserMessage: "A booking app for salons", AssistantMessage: "Who are the main users?"},
		{TurnNumber: 2, UserMessage: "Salon owners mostly", AssistantMessage: "I have enough to create a plan."},
	}
}

func newTestPipeline(store *fakeStore, extraction, summary, technical llm.Client) *Pipeline {
	return NewPipeline(store, store, StageClients{
		Extraction: extraction,
		Summary:    summary,
		Technical:  technical,
	}, config.Default().Budgets)
}

func TestGenerateHappyPath(t *testing.T) {
	store := newFakeStore()
	store.addSession("s1", discovery.StatusActive, interviewTurns()...)

	extraction := llm.NewMockClient(llm.MockResponse("Here you go:\n" + requirementsJSON))
	summary := llm.NewMockClient(llm.MockResponse(summaryJSON))
	technical := llm.NewMockClient(llm.MockResponse(technicalJSON))
	p := newTestPipeline(store, extraction, summary, technical)

	pl, err := p.Generate(context.Background(), "s1", Options{})
	require.NoError(t, err)
	assert.Equal(t, PlanCompleted, pl.Status)
	require.NotNil(t, pl.StructuredRequirements)
	assert.Equal(t, "Bookly", pl.StructuredRequirements.Project.Name)
	require.NotNil(t, pl.UserSummary)
	require.NotNil(t, pl.TechnicalPlan)
	assert.Equal(t, "modular monolith", pl.TechnicalPlan.Architecture.Pattern)

	stored, err := store.GetPlan(context.Background(), pl.ID)
	require.NoError(t, err)
	assert.Equal(t, PlanCompleted, stored.Status)
	assert.Contains(t, stored.RawConversation, "User: A booking app for salons")

	sess, err := store.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, discovery.StatusCompleted, sess.Status)
	assert.JSONEq(t, requirementsJSON, string(sess.ExtractedRequirements))

	// Transcript flows into stage 1; stage-1 output flows into stages 2 and 3.
	assert.Contains(t, extraction.Requests()[0].Messages[0].Content, "booking app for salons")
	assert.Contains(t, summary.Requests()[0].Messages[0].Content, "Bookly")
	assert.Contains(t, technical.Requests()[0].Messages[0].Content, "Bookly")
}

func TestGenerateStageOneGatewayFailure(t *testing.T) {
	store := newFakeStore()
	store.addSession("s1", discovery.StatusActive, interviewTurns()...)

	extraction := llm.NewMockClient(llm.MockFailure(llmerrors.ErrorTypeTransient, "boom"))
	summary := llm.NewMockClient(llm.MockResponse(summaryJSON))
	technical := llm.NewMockClient(llm.MockResponse(technicalJSON))
	p := newTestPipeline(store, extraction, summary, technical)

	pl, err := p.Generate(context.Background(), "s1", Options{})
	require.Error(t, err)
	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StageExtraction, stage)

	stored, getErr := store.GetPlan(context.Background(), pl.ID)
	require.NoError(t, getErr)
	assert.Equal(t, PlanFailed, stored.Status)
	assert.Nil(t, stored.StructuredRequirements)
	assert.Nil(t, stored.UserSummary)
	assert.Nil(t, stored.TechnicalPlan)

	// Later stages never ran.
	assert.Zero(t, summary.CallCount())
	assert.Zero(t, technical.CallCount())

	sess, _ := store.GetSession(context.Background(), "s1")
	assert.Equal(t, discovery.StatusFailed, sess.Status)
}

func TestGenerateStageOneParseFailure(t *testing.T) {
	store := newFakeStore()
	store.addSession("s1", discovery.StatusActive, interviewTurns()...)

	extraction := llm.NewMockClient(llm.MockResponse("not json at all"))
	p := newTestPipeline(store, extraction, llm.NewMockClient(), llm.NewMockClient())

	_, err := p.Generate(context.Background(), "s1", Options{})
	require.Error(t, err)

	var parseErr *extract.ParseError
	assert.True(t, errors.As(err, &parseErr))
	stage, _ := FailedStage(err)
	assert.Equal(t, StageExtraction, stage)
}

func TestGenerateStageTwoFailureRetainsExtraction(t *testing.T) {
	store := newFakeStore()
	store.addSession("s1", discovery.StatusActive, interviewTurns()...)

	extraction := llm.NewMockClient(llm.MockResponse(requirementsJSON))
	summary := llm.NewMockClient(llm.MockFailure(llmerrors.ErrorTypeEmptyResponse, "empty"))
	technical := llm.NewMockClient(llm.MockResponse(technicalJSON))
	p := newTestPipeline(store, extraction, summary, technical)

	pl, err := p.Generate(context.Background(), "s1", Options{})
	require.Error(t, err)
	stage, _ := FailedStage(err)
	assert.Equal(t, StageSummary, stage)

	stored, getErr := store.GetPlan(context.Background(), pl.ID)
	require.NoError(t, getErr)
	assert.Equal(t, PlanFailed, stored.Status)
	require.NotNil(t, stored.StructuredRequirements, "stage-1 output is durable despite the failed plan")
	assert.Nil(t, stored.UserSummary)
	assert.Nil(t, stored.TechnicalPlan)
	assert.Zero(t, technical.CallCount())
}

func TestGenerateStageThreeFailureRetainsSummary(t *testing.T) {
	store := newFakeStore()
	store.addSession("s1", discovery.StatusActive, interviewTurns()...)

	extraction := llm.NewMockClient(llm.MockResponse(requirementsJSON))
	summary := llm.NewMockClient(llm.MockResponse(summaryJSON))
	technical := llm.NewMockClient(llm.MockFailure(llmerrors.ErrorTypeRateLimit, "429"))
	p := newTestPipeline(store, extraction, summary, technical)

	pl, err := p.Generate(context.Background(), "s1", Options{})
	require.Error(t, err)
	stage, _ := FailedStage(err)
	assert.Equal(t, StageTechnical, stage)

	stored, _ := store.GetPlan(context.Background(), pl.ID)
	require.NotNil(t, stored.StructuredRequirements)
	require.NotNil(t, stored.UserSummary)
	assert.Nil(t, stored.TechnicalPlan)
}

func TestGenerateSessionStateGuards(t *testing.T) {
	store := newFakeStore()
	store.addSession("gen", discovery.StatusGenerating)
	store.addSession("done", discovery.StatusCompleted, interviewTurns()...)
	store.addSession("gone", discovery.StatusAbandoned)
	p := newTestPipeline(store,
		llm.NewMockClient(llm.MockResponse(requirementsJSON)),
		llm.NewMockClient(llm.MockResponse(summaryJSON)),
		llm.NewMockClient(llm.MockResponse(technicalJSON)),
	)

	_, err := p.Generate(context.Background(), "gen", Options{})
	assert.True(t, discovery.IsStateConflict(err), "concurrent generation must conflict")

	_, err = p.Generate(context.Background(), "gone", Options{})
	assert.True(t, discovery.IsStateConflict(err))

	_, err = p.Generate(context.Background(), "done", Options{})
	assert.True(t, discovery.IsStateConflict(err), "completed session needs the regenerate option")
}

func TestGenerateRegenerate(t *testing.T) {
	store := newFakeStore()
	store.addSession("done", discovery.StatusCompleted, interviewTurns()...)
	p := newTestPipeline(store,
		llm.NewMockClient(llm.MockResponse(requirementsJSON)),
		llm.NewMockClient(llm.MockResponse(summaryJSON)),
		llm.NewMockClient(llm.MockResponse(technicalJSON)),
	)

	first, err := p.Generate(context.Background(), "done", Options{Regenerate: true})
	require.NoError(t, err)
	second, err := p.Generate(context.Background(), "done", Options{Regenerate: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID, "each invocation produces an independent plan")

	plans, err := store.ListPlansBySession(context.Background(), "done")
	require.NoError(t, err)
	assert.Len(t, plans, 2)

	sess, _ := store.GetSession(context.Background(), "done")
	assert.Equal(t, discovery.StatusCompleted, sess.Status, "regeneration leaves the session alone")
}

func TestRequirementsValidate(t *testing.T) {
	valid := Requirements{
		Project:    ProjectInfo{Name: "Bookly"},
		Complexity: ComplexityMedium,
		Confidence: ConfidenceHigh,
	}
	assert.NoError(t, valid.Validate())

	badTier := valid
	badTier.Complexity = "enormous"
	assert.Error(t, badTier.Validate())

	badConfidence := valid
	badConfidence.Confidence = "sure"
	assert.Error(t, badConfidence.Validate())

	empty := Requirements{Complexity: ComplexitySimple, Confidence: ConfidenceLow}
	assert.Error(t, empty.Validate())
}
