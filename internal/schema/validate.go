package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// Form status labels, checked in order: the first matching label wins.
const (
	FormStatusComplete       = "complete"
	FormStatusNearlyComplete = "nearly_complete"
	FormStatusPartial        = "partial"
	FormStatusIncomplete     = "incomplete"
)

// nearlyCompleteThreshold is the observed cutoff for "nearly_complete";
// it is a display heuristic, not business policy.
const nearlyCompleteThreshold = 3

// Validator computes completeness and structural-validity signals for a
// record against the catalogue's required-field set and conditional rules.
type Validator struct {
	cat *Catalogue
}

func NewValidator(cat *Catalogue) *Validator {
	return &Validator{cat: cat}
}

// IsPresent reports whether a resolved value counts as filled in: nil, the
// empty string, and an empty sequence do not. An empty mapping does — only
// scalars and sequences carry an emptiness notion here.
func IsPresent(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

// MissingRequired returns the required field paths that do not resolve to a
// present value, in catalogue declaration order. Callers must not depend on
// the ordering.
func (v *Validator) MissingRequired(rec map[string]any) []string {
	missing := make([]string, 0)
	for _, path := range v.cat.Required {
		val, ok := Get(rec, path)
		if !ok || !IsPresent(val) {
			missing = append(missing, path)
		}
	}
	return missing
}

// CompletionPercentage is the filled fraction of the required set, 1.0 when
// the set is empty.
func (v *Validator) CompletionPercentage(rec map[string]any) float64 {
	total := len(v.cat.Required)
	if total == 0 {
		return 1.0
	}
	return float64(total-len(v.MissingRequired(rec))) / float64(total)
}

// ConditionalViolations evaluates every conditional rule whose trigger value
// matches exactly, reporting each dependent path that is absent.
func (v *Validator) ConditionalViolations(rec map[string]any) []string {
	var violations []string
	for _, rule := range v.cat.Rules {
		val, ok := Get(rec, rule.TriggerPath)
		if !ok {
			continue
		}
		s, isStr := val.(string)
		if !isStr || s != rule.TriggerValue {
			continue
		}
		for _, dep := range rule.DependentPaths {
			depVal, depOK := Get(rec, dep)
			if !depOK || depVal == nil {
				violations = append(violations, fmt.Sprintf(
					"Field '%s' is required when '%s' equals '%s'",
					dep, rule.TriggerPath, rule.TriggerValue))
			}
		}
	}
	return violations
}

// IsValid reports whether the record has no missing required fields and no
// conditional violations.
func (v *Validator) IsValid(rec map[string]any) bool {
	return len(v.MissingRequired(rec)) == 0 && len(v.ConditionalViolations(rec)) == 0
}

// FormStatus classifies the record. The checks run in exactly this order
// and the first match wins.
func (v *Validator) FormStatus(rec map[string]any) string {
	missing := v.MissingRequired(rec)
	violations := v.ConditionalViolations(rec)
	switch {
	case len(missing) == 0 && len(violations) == 0:
		return FormStatusComplete
	case len(missing) <= nearlyCompleteThreshold && len(violations) == 0:
		return FormStatusNearlyComplete
	default:
		if info, ok := Get(rec, "patientInformation"); ok && IsPresent(info) {
			return FormStatusPartial
		}
		return FormStatusIncomplete
	}
}

// ValidateFieldValue applies the handful of per-field value checks surfaced
// by the field-update API. The empty string skips validation (clearing a
// field is always allowed).
func (v *Validator) ValidateFieldValue(path, value string) error {
	if value == "" {
		return nil
	}
	switch path {
	case "patientInformation.gender":
		switch value {
		case "Male", "Female", "Other", "M", "F":
			return nil
		}
		return fmt.Errorf("invalid gender value: %s", value)
	case "patientInformation.email":
		if !strings.Contains(value, "@") {
			return fmt.Errorf("invalid email format: %s", value)
		}
	case "patientInformation.patientInformationPhoneNumber":
		if !strings.ContainsFunc(value, unicode.IsDigit) {
			return fmt.Errorf("phone number must contain digits: %s", value)
		}
	}
	return nil
}
