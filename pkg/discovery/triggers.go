package discovery

import "strings"

// ReadinessClassifier decides whether an assistant reply signals readiness
// to produce a plan. The default is phrase matching; richer classifiers
// (a small local model, say) can be plugged in without touching the
// orchestrator.
type ReadinessClassifier interface {
	Ready(assistantMessage string) bool
}

// defaultTriggerPhrases are the assistant formulations that indicate the
// interview has gathered enough. Matching is case-insensitive substring;
// the model is prompted to use these exact formulations when it is ready.
//
//nolint:gochecknoglobals // Static phrase table
var defaultTriggerPhrases = []string{
	"would you like me to summarize",
	"i have enough to create",
	"ready to create a plan",
	"shall i put together a plan",
	"i can draft a plan now",
	"let me summarize what we've discussed",
}

// PhraseClassifier matches a fixed set of trigger phrases.
type PhraseClassifier struct {
	phrases []string
}

// NewPhraseClassifier builds a classifier over the default phrase set.
func NewPhraseClassifier() *PhraseClassifier {
	return &PhraseClassifier{phrases: defaultTriggerPhrases}
}

// NewPhraseClassifierWith builds a classifier over a custom phrase set.
// Phrases are matched case-insensitively.
func NewPhraseClassifierWith(phrases []string) *PhraseClassifier {
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		lowered = append(lowered, strings.ToLower(p))
	}
	return &PhraseClassifier{phrases: lowered}
}

// Ready reports whether the message contains any trigger phrase.
func (c *PhraseClassifier) Ready(assistantMessage string) bool {
	lowered := strings.ToLower(assistantMessage)
	for _, phrase := range c.phrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
