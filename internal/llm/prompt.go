package llm

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/4gd-ai/genesilico-ocr/internal/schema"
)

const maxOCRPromptChars = 12000
const maxSuggestionOCRChars = 5000

// BuildSystemPrompt composes the system message from the schema catalogue:
// section overview, field dictionary, required set, and strict-but-practical
// formatting rules for the extraction envelope.
func BuildSystemPrompt(cat *schema.Catalogue) string {
	paths := make([]string, 0, len(cat.Descriptions))
	for p := range cat.Descriptions {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var dict strings.Builder
	for _, p := range paths {
		dict.WriteString("- ")
		dict.WriteString(p)
		dict.WriteString(": ")
		dict.WriteString(cat.Descriptions[p])
		dict.WriteString("\n")
	}

	parts := []string{
		"You are a medical Test Requisition Form parser. Return ONLY JSON that matches the provided JSON Schema.",
		"The top-level keys are 'extracted_fields' (a nested TRF object) and 'confidence_scores' (a flat object mapping dotted field paths to numbers between 0 and 1).",
		"Schema overview:\n" + cat.Overview,
		"Field dictionary:\n" + dict.String(),
		"Required fields: " + strings.Join(cat.Required, ", ") + ".",
		"Use MM/DD/YYYY for dates.",
		"Gender must be exactly Male, Female, or Other.",
		"'Sample' and 'FamilyHistory.familyMember' must be JSON arrays of objects, never bare objects.",
		"Therapy and sample status fields (pastTherapy, currentTherapy, storedIn, sampleCollectionSite, currentStatusOfSample, diseaseStatusAtTheTimeOfTesting) must be JSON arrays of strings.",
		"Never output null. If a field is not present in the document, omit it.",
		"Never invent values. Every entry in 'confidence_scores' must correspond to a field you actually extracted.",
	}
	return strings.Join(parts, "\n\n")
}

// BuildUserPrompt packages the OCR text with the existing patient record,
// when one is known. OCR text is truncated; intake forms put the fields we
// care about on the first pages.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if len(req.PatientContext) > 0 {
		ctx, err := json.Marshal(req.PatientContext)
		if err == nil {
			b.WriteString("Existing patient record (reconcile against this, do not re-guess identity fields that match):\n")
			b.Write(ctx)
			b.WriteString("\n\n")
		}
	}
	b.WriteString("OCR text of the form:\n")
	ocr := strings.TrimSpace(req.OCRText)
	if len(ocr) > maxOCRPromptChars {
		b.WriteString(ocr[:maxOCRPromptChars])
		b.WriteString("\n...(truncated)")
	} else {
		b.WriteString(ocr)
	}
	return b.String()
}

// BuildSuggestionPrompt asks for a single field value in the fixed
// VALUE/CONFIDENCE/REASONING format that ParseSuggestion expects.
func BuildSuggestionPrompt(fieldPath, description, ocrText string) string {
	ocr := strings.TrimSpace(ocrText)
	if len(ocr) > maxSuggestionOCRChars {
		ocr = ocr[:maxSuggestionOCRChars]
	}
	var b strings.Builder
	b.WriteString("I need to extract the value for the field '")
	b.WriteString(fieldPath)
	b.WriteString("' (")
	b.WriteString(description)
	b.WriteString(") from the following OCR text:\n\n")
	b.WriteString(ocr)
	b.WriteString("\n\nBased on the text above, what is the most likely value for '")
	b.WriteString(fieldPath)
	b.WriteString("'?\n")
	b.WriteString("Please only respond with the extracted value or 'Not found' if you can't find it in the text.\n")
	b.WriteString("Also state your confidence level (0-100%) for the extracted value.\n")
	b.WriteString("Format your response as:\n")
	b.WriteString("VALUE: [extracted value]\n")
	b.WriteString("CONFIDENCE: [0-100]\n")
	b.WriteString("REASONING: [brief explanation]\n")
	return b.String()
}
