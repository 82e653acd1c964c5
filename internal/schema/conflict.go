package schema

import (
	"fmt"
	"strings"
)

const conflictTemplate = `I've detected a potential conflict in the extracted data:

Field: %s
OCR extracted value: %v
Expected value based on other fields: %v

This discrepancy might be due to %s.

Which value would you prefer to use?`

// DetectConflicts compares freshly extracted data against an existing
// patient record and returns advisory messages for review. Conflicts never
// block a merge.
func DetectConflicts(extracted, existing map[string]any) []string {
	var conflicts []string
	if msg := nameConflict(extracted, existing); msg != "" {
		conflicts = append(conflicts, msg)
	}
	if msg := hospitalConflict(extracted, existing); msg != "" {
		conflicts = append(conflicts, msg)
	}
	return conflicts
}

func nameConflict(extracted, existing map[string]any) string {
	extractedName := patientName(extracted)
	existingName := patientName(existing)
	if len(existingName) == 0 {
		return ""
	}
	if namesMatch(extractedName, existingName) {
		return ""
	}
	return fmt.Sprintf(conflictTemplate,
		"patientInformation.patientName", extractedName, existingName,
		"the extracted name does not match the existing patient record")
}

func hospitalConflict(extracted, existing map[string]any) string {
	extractedHosp, ok1 := Get(extracted, "hospital.hospitalName")
	existingHosp, ok2 := Get(existing, "hospital.hospitalName")
	if !ok1 || !ok2 {
		return ""
	}
	a, _ := extractedHosp.(string)
	b, _ := existingHosp.(string)
	if a == "" || b == "" || normalizeName(a) == normalizeName(b) {
		return ""
	}
	return fmt.Sprintf(conflictTemplate,
		"hospital.hospitalName", a, b,
		"the extracted hospital does not match the existing patient record")
}

func patientName(rec map[string]any) map[string]any {
	v, ok := Get(rec, "patientInformation.patientName")
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

// namesMatch compares first and last names case-insensitively after
// trimming whitespace.
func namesMatch(a, b map[string]any) bool {
	return normalizeName(stringAt(a, "firstName")) == normalizeName(stringAt(b, "firstName")) &&
		normalizeName(stringAt(a, "lastName")) == normalizeName(stringAt(b, "lastName"))
}

func stringAt(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
