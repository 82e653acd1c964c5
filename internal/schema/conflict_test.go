package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordWithName(first, last string) map[string]any {
	return map[string]any{
		"patientInformation": map[string]any{
			"patientName": map[string]any{"firstName": first, "lastName": last},
		},
	}
}

func TestDetectConflicts(t *testing.T) {
	tests := []struct {
		name      string
		extracted map[string]any
		existing  map[string]any
		want      int
		contains  string
	}{
		{
			name:      "matching names produce no conflict",
			extracted: recordWithName("Asha", "Rao"),
			existing:  recordWithName("Asha", "Rao"),
			want:      0,
		},
		{
			name:      "comparison ignores case and whitespace",
			extracted: recordWithName("  ASHA ", "rao"),
			existing:  recordWithName("Asha", "Rao"),
			want:      0,
		},
		{
			name:      "differing names conflict",
			extracted: recordWithName("Meera", "Shah"),
			existing:  recordWithName("Asha", "Rao"),
			want:      1,
			contains:  "patientInformation.patientName",
		},
		{
			name:      "no existing name means no conflict",
			extracted: recordWithName("Meera", "Shah"),
			existing:  map[string]any{},
			want:      0,
		},
		{
			name:      "differing hospitals conflict",
			extracted: map[string]any{"hospital": map[string]any{"hospitalName": "City General"}},
			existing:  map[string]any{"hospital": map[string]any{"hospitalName": "St. Mary's"}},
			want:      1,
			contains:  "hospital.hospitalName",
		},
		{
			name:      "hospital absent on one side is fine",
			extracted: map[string]any{"hospital": map[string]any{"hospitalName": "City General"}},
			existing:  map[string]any{},
			want:      0,
		},
		{
			name: "name and hospital conflicts stack",
			extracted: map[string]any{
				"patientInformation": map[string]any{
					"patientName": map[string]any{"firstName": "Meera", "lastName": "Shah"},
				},
				"hospital": map[string]any{"hospitalName": "City General"},
			},
			existing: map[string]any{
				"patientInformation": map[string]any{
					"patientName": map[string]any{"firstName": "Asha", "lastName": "Rao"},
				},
				"hospital": map[string]any{"hospitalName": "St. Mary's"},
			},
			want: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflicts := DetectConflicts(tt.extracted, tt.existing)
			require.Len(t, conflicts, tt.want)
			if tt.contains != "" {
				assert.Contains(t, conflicts[0], tt.contains)
			}
		})
	}
}
