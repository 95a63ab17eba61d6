// Package plan implements plan records and the three-stage generation
// pipeline: requirements extraction, user-facing summary, and the technical
// plan. Stages run strictly in order; each is a single bounded model call.
package plan

import "fmt"

// Complexity is the extracted complexity tier.
type Complexity string

const (
	ComplexitySimple  Complexity = "Simple"
	ComplexityMedium  Complexity = "Medium"
	ComplexityComplex Complexity = "Complex"
)

// Confidence is the model's self-reported confidence in the extraction.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Requirements is the stage-1 output: everything the interview surfaced,
// in a fixed shape the later stages consume.
type Requirements struct {
	Project                ProjectInfo      `json:"project"`
	Users                  UserInfo         `json:"users"`
	Features               FeatureSet       `json:"features"`
	Technical              TechnicalContext `json:"technical"`
	Timeline               TimelineInfo     `json:"timeline"`
	Constraints            Constraints      `json:"constraints"`
	GoalsAndSuccessMetrics []string         `json:"goals_and_success_metrics"`
	Complexity             Complexity       `json:"complexity"`
	Confidence             Confidence       `json:"confidence"`
	Gaps                   []string         `json:"gaps"`
}

type ProjectInfo struct {
	Name             string `json:"name"`
	Vision           string `json:"vision"`
	ProblemStatement string `json:"problem_statement"`
}

type UserInfo struct {
	PrimaryUsers      string `json:"primary_users"`
	UserCountEstimate string `json:"user_count_estimate"`
	UserLocations     string `json:"user_locations"`
}

type FeatureSet struct {
	CoreFeatures []string `json:"core_features"`
	NiceToHave   []string `json:"nice_to_have"`
	Integrations []string `json:"integrations"`
}

type TechnicalContext struct {
	ExistingSystems      []string `json:"existing_systems"`
	ScaleExpectations    string   `json:"scale_expectations"`
	PerformanceCritical  []string `json:"performance_critical"`
	SecurityRequirements []string `json:"security_requirements"`
}

type TimelineInfo struct {
	DesiredLaunch string `json:"desired_launch"`
	Phases        string `json:"phases"`
}

type Constraints struct {
	Budget   string   `json:"budget"`
	TeamSize string   `json:"team_size"`
	Other    []string `json:"other"`
}

// Validate checks the enum fields and the minimal required content. A
// failed validation is advisory: the extraction is still usable, it just
// means the model drifted from the schema.
func (r *Requirements) Validate() error {
	switch r.Complexity {
	case ComplexitySimple, ComplexityMedium, ComplexityComplex:
	default:
		return fmt.Errorf("unknown complexity tier %q", r.Complexity)
	}
	switch r.Confidence {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
	default:
		return fmt.Errorf("unknown confidence tier %q", r.Confidence)
	}
	if r.Project.Name == "" && r.Project.Vision == "" {
		return fmt.Errorf("extraction carries neither a project name nor a vision")
	}
	return nil
}

// UserSummary is the stage-2 output: a plain-language recap for the person
// being interviewed. No jargon, no costs, no timelines.
type UserSummary struct {
	ProjectOverview   string     `json:"project_overview"`
	GoalsAndSuccess   []string   `json:"goals_and_success"`
	HighLevelFeatures []string   `json:"high_level_features"`
	Complexity        Complexity `json:"complexity"`
	NextStepsMessage  string     `json:"next_steps_message"`
}

// TechnicalPlan is the stage-3 output: the full build plan.
type TechnicalPlan struct {
	ExecutiveSummary       string               `json:"executive_summary"`
	FullTechnicalBreakdown TechnicalBreakdown   `json:"full_technical_breakdown"`
	Architecture           ArchitectureChoice   `json:"architecture_recommendations"`
	TechStack              TechStackDetails     `json:"tech_stack_details"`
	Timeline               TimelineWeekRanges   `json:"timeline_week_ranges"`
	CostEstimates          CostEstimates        `json:"cost_estimates"`
	RiskAssessment         []Risk               `json:"risk_assessment"`
	Recommendations        PersonnelAndSequence `json:"recommendations"`
}

type TechnicalBreakdown struct {
	Description   string   `json:"description"`
	KeyComponents []string `json:"key_components"`
}

type ArchitectureChoice struct {
	Pattern   string `json:"pattern"`
	Rationale string `json:"rationale"`
	Diagrams  string `json:"diagrams"`
}

type TechStackDetails struct {
	Backend    string `json:"backend"`
	Frontend   string `json:"frontend"`
	Database   string `json:"database"`
	Deployment string `json:"deployment"`
}

type TimelineWeekRanges struct {
	TotalWeeks string          `json:"total_weeks"`
	Phases     []TimelinePhase `json:"phases"`
}

type TimelinePhase struct {
	Name         string   `json:"name"`
	Weeks        string   `json:"weeks"`
	Deliverables []string `json:"deliverables"`
}

type CostEstimates struct {
	Development           string   `json:"development"`
	InfrastructureMonthly string   `json:"infrastructure_monthly"`
	ThirdPartyServices    []string `json:"third_party_services"`
	TotalEstimateRange    string   `json:"total_estimate_range"`
	Assumptions           []string `json:"assumptions"`
}

type Risk struct {
	Risk       string `json:"risk"`
	Mitigation string `json:"mitigation"`
}

type PersonnelAndSequence struct {
	ArchitecturalDecisions []string `json:"architectural_decisions"`
	TeamComposition        string   `json:"team_composition"`
	Prioritization         []string `json:"prioritization"`
}
