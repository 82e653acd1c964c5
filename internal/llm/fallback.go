package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/4gd-ai/genesilico-ocr/internal/schema"
)

// Pattern matches carry a fixed confidence; looser patterns a lower one.
const (
	patternConfidence      = 0.8
	loosePatternConfidence = 0.7
)

var genderMap = map[string]string{
	"m": "Male", "male": "Male", "man": "Male",
	"f": "Female", "female": "Female", "woman": "Female",
}

type fieldPattern struct {
	path       string
	confidence float64
	patterns   []*regexp.Regexp
}

// Captures stay on one line (literal space, not \s) so a value never
// swallows the following label.
var fullNamePattern = regexp.MustCompile(`(?i)(?:Patient\s+Name|Name|Patient)\s*:\s*(?:Mrs\.|Mr\.|Ms\.|Dr\.)?\s*([A-Za-z \-']+)`)

var fallbackPatterns = []fieldPattern{
	{path: "patientInformation.gender", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Gender|Sex)\s*:\s*(Male|Female|Other|M|F)`,
		`(?i)Age/Gender\s*:\s*\d+\s*Years?/(M|F)`,
	)},
	{path: "patientInformation.dob", confidence: patternConfidence, patterns: compile(
		`(?i)(?:DOB|Date\s+of\s+Birth|Birth\s+Date)\s*:\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`,
		`(?i)(?:DOB|Date\s+of\s+Birth|Birth\s+Date)\s*:\s*(\d{4}[/\-.]\d{1,2}[/\-.]\d{1,2})`,
	)},
	{path: "patientInformation.age", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Age|Patient\s+Age)\s*:\s*(\d{1,3})\s*(?:years|yrs|yr|y)?`,
		`(?i)Age/Gender\s*:\s*(\d+)\s*Years?`,
	)},
	{path: "patientInformation.patientInformationPhoneNumber", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Phone|Tel|Telephone|Contact|Mobile|Cell|Phone\s+Number)\s*:\s*(\+?[0-9\-() .]{7,})`,
	)},
	{path: "patientInformation.email", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Email|E-mail)\s*:\s*([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`,
	)},
	{path: "clinicalSummary.primaryDiagnosis", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Diagnosis|Primary\s+Diagnosis|Clinical\s+Diagnosis|Provisional\s+Diagnosis)\s*:\s*([^\n\r]+)`,
	)},
	{path: "clinicalSummary.diagnosisDate", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Diagnosis\s+Date|Date\s+of\s+Diagnosis)\s*:\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`,
	)},
	{path: "clinicalSummary.Immunohistochemistry.er", confidence: patternConfidence, patterns: compile(
		`(?i)(?:ER|Estrogen\s+Receptor)\s*:\s*(\+|-|Positive|Negative|Pos|Neg|[0-9]+%)`,
	)},
	{path: "clinicalSummary.Immunohistochemistry.pr", confidence: patternConfidence, patterns: compile(
		`(?i)(?:PR|Progesterone\s+Receptor)\s*:\s*(\+|-|Positive|Negative|Pos|Neg|[0-9]+%)`,
	)},
	{path: "clinicalSummary.Immunohistochemistry.her2neu", confidence: patternConfidence, patterns: compile(
		`(?i)(?:HER2|HER2/neu|Her-2/neu)\s*:\s*(\++|-|Positive|Negative|Pos|Neg|[0-9]\+?)`,
	)},
	{path: "clinicalSummary.Immunohistochemistry.ki67", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Ki-?67)\s*:\s*([0-9]+%|[0-9]+)`,
	)},
	{path: "physician.physicianName", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Doctor|Dr\.|Physician|Oncologist|Treating\s+Doctor|Referring\s+Doctor|Attending\s+Physician|Ref\s+Doctor)\s*:\s*([A-Za-z .\-']+)`,
	)},
	{path: "physician.physicianEmail", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Doctor|Physician|Oncologist|Provider)(?:'s)?\s+Email\s*:\s*([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`,
	)},
	{path: "hospital.hospitalName", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Hospital|Facility|Medical\s+Center|Clinic|Institution)\s*:\s*([A-Za-z .\-'&,]+)`,
	)},
	{path: "Sample.0.sampleType", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Sample\s+Type|Specimen\s+Type|Type\s+of\s+Sample|Type\s+of\s+Specimen)\s*:\s*([^\n\r:]+)`,
	)},
	{path: "Sample.0.sampleID", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Sample\s+ID|Specimen\s+ID|Sample\s+Number|Specimen\s+Number|Case\s+Id)\s*:\s*([A-Za-z0-9\-/]+)`,
	)},
	{path: "Sample.0.sampleCollectionDate", confidence: patternConfidence, patterns: compile(
		`(?i)(?:Collection\s+Date|Date\s+of\s+Collection|Collected\s+On)\s*:\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`,
	)},
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// PatternExtractor is the offline extraction fallback: regex matching
// against the OCR text, used when no model is configured or the model
// returned nothing usable. Recall is deliberately narrow.
type PatternExtractor struct {
	log *slog.Logger
}

func NewPatternExtractor(logger *slog.Logger) *PatternExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PatternExtractor{log: logger}
}

func (p *PatternExtractor) ExtractFields(ctx context.Context, req ExtractRequest) (ExtractionResult, []byte, error) {
	res := ExtractionResult{
		Fields:           map[string]any{},
		ConfidenceScores: map[string]float64{},
	}

	p.extractName(req.OCRText, &res)

	for _, fp := range fallbackPatterns {
		for _, re := range fp.patterns {
			m := re.FindStringSubmatch(req.OCRText)
			if m == nil {
				continue
			}
			value := strings.TrimSpace(m[1])
			if value == "" || value == "-" {
				continue
			}
			if fp.path == "patientInformation.gender" {
				if g, ok := genderMap[strings.ToLower(value)]; ok {
					value = g
				}
			}
			schema.Set(res.Fields, toSetPath(fp.path), value)
			res.ConfidenceScores[fp.path] = fp.confidence
			break
		}
	}

	p.log.Info("llm.fallback.extracted",
		"document_id", req.DocumentID,
		"fields", len(res.ConfidenceScores),
	)

	raw, err := json.Marshal(res)
	if err != nil {
		return res, nil, err
	}
	return res, raw, nil
}

// extractName splits a "Patient Name: ..." match into first, middle, and
// last name parts. Two parts mean first and last; three or more peel off a
// middle name at lower confidence.
func (p *PatternExtractor) extractName(ocrText string, res *ExtractionResult) {
	m := fullNamePattern.FindStringSubmatch(ocrText)
	if m == nil {
		return
	}
	parts := strings.Fields(strings.TrimSpace(m[1]))
	if len(parts) < 2 {
		return
	}
	schema.Set(res.Fields, "patientInformation.patientName.firstName", parts[0])
	res.ConfidenceScores["patientInformation.patientName.firstName"] = patternConfidence
	if len(parts) == 2 {
		schema.Set(res.Fields, "patientInformation.patientName.lastName", parts[1])
		res.ConfidenceScores["patientInformation.patientName.lastName"] = patternConfidence
		return
	}
	schema.Set(res.Fields, "patientInformation.patientName.middleName", parts[1])
	res.ConfidenceScores["patientInformation.patientName.middleName"] = loosePatternConfidence
	schema.Set(res.Fields, "patientInformation.patientName.lastName", strings.Join(parts[2:], " "))
	res.ConfidenceScores["patientInformation.patientName.lastName"] = patternConfidence
}

// toSetPath rewrites numeric segments into bracket form so a write into an
// absent collection creates a sequence, not a "0" keyed mapping.
func toSetPath(path string) string {
	segs := strings.Split(path, ".")
	out := make([]string, 0, len(segs))
	for _, seg := range segs {
		if isDigits(seg) && len(out) > 0 {
			out[len(out)-1] = out[len(out)-1] + "[" + seg + "]"
			continue
		}
		out = append(out, seg)
	}
	return strings.Join(out, ".")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
