package llm

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reSuggestValue      = regexp.MustCompile(`(?m)VALUE:[ \t]*(.*)$`)
	reSuggestConfidence = regexp.MustCompile(`CONFIDENCE:[ \t]*(\d+)`)
	reSuggestReasoning  = regexp.MustCompile(`(?s)REASONING:[ \t]*(.*)$`)
)

// ParseSuggestion pulls the VALUE/CONFIDENCE/REASONING lines out of a
// suggestion response. "Not found" style answers normalize to an empty
// value with zero confidence; a missing confidence line defaults to 0.5.
func ParseSuggestion(fieldPath, responseText string) Suggestion {
	s := Suggestion{
		FieldPath:  fieldPath,
		Confidence: 0.5,
		Reasoning:  "No reasoning provided.",
	}

	if m := reSuggestValue.FindStringSubmatch(responseText); m != nil {
		s.Value = strings.TrimSpace(m[1])
	}
	if m := reSuggestConfidence.FindStringSubmatch(responseText); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			s.Confidence = float64(n) / 100
		}
	}
	if m := reSuggestReasoning.FindStringSubmatch(responseText); m != nil {
		s.Reasoning = strings.TrimSpace(m[1])
	}

	switch strings.ToLower(s.Value) {
	case "not found", "none", "n/a", "unknown":
		s.Value = ""
		s.Confidence = 0.0
	}
	return s
}
