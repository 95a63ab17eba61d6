package plan

import "fmt"

const extractionInstruction = `You are a requirements analyst. Below is the full
transcript of a discovery interview about a software project. Extract everything
discussed into a single JSON object with exactly this shape:

{
  "project": {"name": "", "vision": "", "problem_statement": ""},
  "users": {"primary_users": "", "user_count_estimate": "", "user_locations": ""},
  "features": {"core_features": [], "nice_to_have": [], "integrations": []},
  "technical": {"existing_systems": [], "scale_expectations": "", "performance_critical": [], "security_requirements": []},
  "timeline": {"desired_launch": "", "phases": ""},
  "constraints": {"budget": "", "team_size": "", "other": []},
  "goals_and_success_metrics": [],
  "complexity": "Simple | Medium | Complex",
  "confidence": "low | medium | high",
  "gaps": []
}

Use "complexity" for how hard the project is to build and "confidence" for how
sure you are that the transcript supports your extraction. List anything the
interview never clarified under "gaps". Output only the JSON object, no other
text.

Transcript:

%s`

const summaryInstruction = `You are writing a recap for a non-technical person
who just finished describing their project. Below are the structured
requirements extracted from the conversation. Write a single JSON object:

{
  "project_overview": "",
  "goals_and_success": [],
  "high_level_features": [],
  "complexity": "Simple | Medium | Complex",
  "next_steps_message": ""
}

Rules: no technical jargon, no cost figures, no timelines, no architecture
talk. Keep it warm and plain. "next_steps_message" must end with a friendly
call to action inviting them to review the plan. Output only the JSON object.

Requirements:

%s`

const technicalInstruction = `You are a solutions architect. Below are the
structured requirements for a software project. Produce a complete technical
plan as a single JSON object:

{
  "executive_summary": "",
  "full_technical_breakdown": {"description": "", "key_components": []},
  "architecture_recommendations": {"pattern": "", "rationale": "", "diagrams": ""},
  "tech_stack_details": {"backend": "", "frontend": "", "database": "", "deployment": ""},
  "timeline_week_ranges": {"total_weeks": "", "phases": [{"name": "", "weeks": "", "deliverables": []}]},
  "cost_estimates": {"development": "", "infrastructure_monthly": "", "third_party_services": [], "total_estimate_range": "", "assumptions": []},
  "risk_assessment": [{"risk": "", "mitigation": ""}],
  "recommendations": {"architectural_decisions": [], "team_composition": "", "prioritization": []}
}

Justify the architecture pattern, recommend a concrete stack per layer, itemize
costs with their assumptions, and phase the timeline in week ranges. Output
only the JSON object.

Requirements:

%s`

func extractionPrompt(transcript string) string {
	return fmt.Sprintf(extractionInstruction, transcript)
}

func summaryPrompt(requirementsJSON string) string {
	return fmt.Sprintf(summaryInstruction, requirementsJSON)
}

func technicalPrompt(requirementsJSON string) string {
	return fmt.Sprintf(technicalInstruction, requirementsJSON)
}
