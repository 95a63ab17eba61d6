package discovery

import (
	"encoding/json"
	"strings"
)

// GreetingMessage opens every session as turn 0. It is authored locally;
// no model call happens before the user's first message.
const GreetingMessage = "Hi! I'm here to help you figure out what you'd like to build. " +
	"Tell me a bit about your project idea - what problem are you trying to solve, " +
	"and who is it for?"

// HardLimitMessage is returned verbatim once the turn cap is reached. The
// orchestrator never calls the model at that point.
const HardLimitMessage = "We've covered a lot of ground! I have everything I need " +
	"to put together a plan for your project. Let me summarize what we've discussed " +
	"and draft it for you."

const basePersona = `You are a friendly discovery interviewer helping a non-technical
person describe a software project they want built. Ask one focused question at a
time. Keep replies short and conversational. Never use technical jargon, never
discuss cost or timelines, and never propose an architecture. Your job is to
understand the problem, the users, the desired features, and any constraints.

When you believe you have gathered enough to describe the project, say so using a
phrase like "Would you like me to summarize what we've discussed?" or "I have
enough to create a plan".`

const softNudgeDirective = `The conversation has gone on for a while. Start steering
toward wrapping up: consolidate what you have learned and ask only about genuine
gaps. If nothing essential is missing, offer to summarize.`

const forceSummaryDirective = `Wrap up now. Do not ask further exploratory questions.
Summarize what has been discussed, confirm the key points in one short message, and
state that you have enough to create a plan.`

// buildSystemPrompt assembles the interview system prompt: persona, the
// guidance directive for the current level, and the requirements snapshot
// when one exists.
func buildSystemPrompt(level Level, requirements json.RawMessage) string {
	var b strings.Builder
	b.WriteString(basePersona)
	if d := Directive(level); d != "" {
		b.WriteString("\n\n")
		b.WriteString(d)
	}
	if len(requirements) > 0 {
		b.WriteString("\n\nWhat we know so far (may be incomplete):\n")
		b.Write(requirements)
	}
	return b.String()
}
