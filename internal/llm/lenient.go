package llm

import (
	"encoding/json"
	"fmt"
)

// ParseExtraction decodes an extraction envelope leniently: a strict parse
// first, then a retry on the first balanced JSON object found inside the
// content (models occasionally wrap the JSON in prose or code fences). The
// returned result always has non-nil maps; err is set when nothing usable
// could be decoded.
func ParseExtraction(content []byte) (ExtractionResult, error) {
	res := ExtractionResult{
		Fields:           map[string]any{},
		ConfidenceScores: map[string]float64{},
	}

	if err := json.Unmarshal(content, &res); err == nil {
		ensureEnvelope(&res)
		return res, nil
	}

	region, ok := firstJSONObject(content)
	if !ok {
		return res, fmt.Errorf("no JSON object found in model output")
	}
	if err := json.Unmarshal(region, &res); err != nil {
		return res, fmt.Errorf("decode extraction envelope: %w", err)
	}
	ensureEnvelope(&res)
	return res, nil
}

func ensureEnvelope(res *ExtractionResult) {
	if res.Fields == nil {
		res.Fields = map[string]any{}
	}
	if res.ConfidenceScores == nil {
		res.ConfidenceScores = map[string]float64{}
	}
}

// firstJSONObject scans for the first balanced top-level {...} region,
// skipping braces inside string literals.
func firstJSONObject(b []byte) ([]byte, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, c := range b {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return b[start : i+1], true
			}
		}
	}
	return nil, false
}
