package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhraseClassifierMatches(t *testing.T) {
	c := NewPhraseClassifier()

	positives := []string{
		"Great - would you like me to summarize what we've covered?",
		"I think I have enough to create a plan for you.",
		"WOULD YOU LIKE ME TO SUMMARIZE?",
		"I'm ready to create a plan whenever you are.",
	}
	for _, msg := range positives {
		assert.True(t, c.Ready(msg), "expected trigger in %q", msg)
	}

	negatives := []string{
		"Tell me more about your users.",
		"What features matter most to you?",
		"Summarizing budgets is hard.",
		"",
	}
	for _, msg := range negatives {
		assert.False(t, c.Ready(msg), "unexpected trigger in %q", msg)
	}
}

func TestPhraseClassifierCustomPhrases(t *testing.T) {
	c := NewPhraseClassifierWith([]string{"Listo Para Resumir"})
	assert.True(t, c.Ready("estoy listo para resumir el proyecto"))
	assert.False(t, c.Ready("would you like me to summarize"))
}
