// Package extract recovers structured JSON payloads from free-form model
// output. Models reliably wrap JSON in explanatory prose or markdown fences
// despite "output only JSON" instructions, so recovery is layered: fenced
// code block first, then the outermost brace span, then the whole trimmed
// response. Recovered text is cleaned of line comments and trailing commas
// before decoding.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Pre-compiled patterns for JSON extraction.
var (
	// jsonBlockPattern matches a JSON object inside a markdown code block.
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern greedily matches the outermost JSON object span.
	jsonObjectPattern = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ParseError indicates the model replied but its text did not contain a
// recoverable JSON payload.
type ParseError struct {
	// Snippet is a short prefix of the offending text for diagnostics.
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no recoverable JSON payload in model response: %v (text begins %q)", e.Err, e.Snippet)
	}
	return fmt.Sprintf("no recoverable JSON payload in model response (text begins %q)", e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError indicates a payload parsed but is missing required fields.
// Callers treat this as a warning: downstream consumers tolerate nulls.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("payload is missing required fields: %s", strings.Join(e.Missing, ", "))
}

// Object extracts and validates a single JSON object from a model response.
// Returns the cleaned JSON text, or a *ParseError when no candidate span
// parses.
func Object(content string) (json.RawMessage, error) {
	for _, candidate := range candidates(content) {
		cleaned := clean(candidate)
		if json.Valid([]byte(cleaned)) {
			return json.RawMessage(cleaned), nil
		}
	}
	return nil, &ParseError{Snippet: snippet(content)}
}

// Decode extracts a JSON object from a model response and unmarshals it into
// dest.
func Decode(content string, dest any) error {
	raw, err := Object(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return &ParseError{Snippet: snippet(string(raw)), Err: err}
	}
	return nil
}

// candidates returns extraction candidates in priority order: fenced block,
// outermost brace span, whole trimmed response.
func candidates(content string) []string {
	var out []string
	if matches := jsonBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		out = append(out, matches[1])
	}
	if match := jsonObjectPattern.FindString(content); match != "" {
		out = append(out, match)
	}
	out = append(out, strings.TrimSpace(content))
	return out
}

// clean removes JavaScript-style line comments and trailing commas, both
// common model output artifacts that break strict JSON decoding.
func clean(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")
	return trailingCommaPattern.ReplaceAllString(result, "$1")
}

// stripLineComment removes a // comment from a line, respecting string
// values so URLs like "http://example.com" survive.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}

func snippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) > 80 {
		return trimmed[:80]
	}
	return trimmed
}
