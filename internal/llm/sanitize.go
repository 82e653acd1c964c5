package llm

import "encoding/json"

// SanitizeEnvelope repairs an envelope that fails strict validation so the
// document can still pass: a wrong-typed extracted_fields becomes an empty
// object, non-numeric confidence entries are dropped, values on a 0-100
// scale are rescaled to 0..1, and out-of-range values are clipped. Returns
// the cleaned document and the confidence keys that were dropped.
func SanitizeEnvelope(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	if _, isMap := m["extracted_fields"].(map[string]any); !isMap {
		m["extracted_fields"] = map[string]any{}
	}

	var dropped []string
	scores, isMap := m["confidence_scores"].(map[string]any)
	if !isMap {
		scores = map[string]any{}
	}
	cleaned := make(map[string]any, len(scores))
	for k, v := range scores {
		f, isNum := v.(float64)
		if !isNum || f < 0 {
			dropped = append(dropped, k)
			continue
		}
		if f > 1 {
			// Models sometimes answer on the 0-100 scale.
			if f <= 100 {
				f = f / 100
			} else {
				f = 1
			}
		}
		cleaned[k] = f
	}
	m["confidence_scores"] = cleaned

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, dropped, nil
}
