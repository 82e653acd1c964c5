package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate  = regexp.MustCompile(`\b\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}\b`)
	reLabel = regexp.MustCompile(`(?i)\b(patient|diagnosis|hospital|physician|doctor|sample|specimen|dob|gender|consent)\b\s*:`)
	rePhone = regexp.MustCompile(`\+?\d[\d\-()\s.]{6,}\d`)
)

func hasDatePattern(s string) bool  { return reDate.MatchString(s) }
func hasFormLabels(s string) bool   { return reLabel.MatchString(s) }
func hasPhonePattern(s string) bool { return rePhone.MatchString(s) }

// naive heuristic confidence based on decoded text characteristics. The
// vision API reports none, so we score the text for intake-form artifacts
// (labeled fields, date-ish, phone-ish) instead.
func heuristicConfidence(txt string) float64 {
	txtL := strings.ToLower(txt)
	score := 0.2 // base
	if hasFormLabels(txtL) {
		score += 0.3
	}
	if hasDatePattern(txtL) {
		score += 0.2
	}
	if hasPhonePattern(txtL) {
		score += 0.15
	}
	if len(txt) > 200 {
		score += 0.15
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
