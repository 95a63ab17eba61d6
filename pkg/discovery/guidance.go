package discovery

import "intake/pkg/config"

// Level is the guidance level injected into the interview system prompt.
// It is a pure function of the turn number, never of conversation content.
type Level string

const (
	// LevelDiscovery lets the conversation explore freely.
	LevelDiscovery Level = "discovery"
	// LevelSoftNudge starts steering toward a summary.
	LevelSoftNudge Level = "soft_nudge"
	// LevelForceSummary instructs the model to summarize now.
	LevelForceSummary Level = "force_summary"
	// LevelHardLimit means the interview is over; no model call is made.
	LevelHardLimit Level = "hard_limit"
)

// LevelFor maps a turn number to its guidance level using the configured
// thresholds. Total over all inputs: any turn number at or beyond the max
// is hard_limit.
func LevelFor(turnNumber int, t config.Thresholds) Level {
	switch {
	case turnNumber >= t.MaxTurns:
		return LevelHardLimit
	case turnNumber >= t.ForceSummaryAt:
		return LevelForceSummary
	case turnNumber >= t.SoftNudgeAt:
		return LevelSoftNudge
	default:
		return LevelDiscovery
	}
}

// Directive returns the prompt directive for a guidance level. Hard limit
// has no directive because no prompt is built at that level.
func Directive(level Level) string {
	switch level {
	case LevelSoftNudge:
		return softNudgeDirective
	case LevelForceSummary:
		return forceSummaryDirective
	case LevelDiscovery, LevelHardLimit:
		return ""
	default:
		return ""
	}
}
