package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(DefaultCatalogue())

	tests := []struct {
		name     string
		rec      map[string]any
		validate func(t *testing.T, rec map[string]any)
	}{
		{
			name: "numeric keyed mapping becomes a sorted sequence",
			rec: map[string]any{
				"FamilyHistory": map[string]any{
					"familyMember": map[string]any{
						"2": map[string]any{"relationToPatient": "Aunt"},
						"0": map[string]any{"relationToPatient": "Mother"},
						"1": map[string]any{"relationToPatient": "Sister"},
					},
				},
			},
			validate: func(t *testing.T, rec map[string]any) {
				arr, ok := Get(rec, "FamilyHistory.familyMember")
				require.True(t, ok)
				members, isArr := arr.([]any)
				require.True(t, isArr)
				require.Len(t, members, 3)
				first, ok := Get(rec, "FamilyHistory.familyMember.0.relationToPatient")
				require.True(t, ok)
				assert.Equal(t, "Mother", first)
				last, ok := Get(rec, "FamilyHistory.familyMember.2.relationToPatient")
				require.True(t, ok)
				assert.Equal(t, "Aunt", last)
			},
		},
		{
			name: "stray string becomes a one element sequence",
			rec: map[string]any{
				"clinicalSummary": map[string]any{
					"Immunohistochemistry": map[string]any{
						"pastTherapy": "  Chemotherapy  ",
					},
				},
			},
			validate: func(t *testing.T, rec map[string]any) {
				v, ok := Get(rec, "clinicalSummary.Immunohistochemistry.pastTherapy")
				require.True(t, ok)
				assert.Equal(t, []any{"Chemotherapy"}, v)
			},
		},
		{
			name: "blank string becomes an empty sequence",
			rec: map[string]any{
				"clinicalSummary": map[string]any{
					"Immunohistochemistry": map[string]any{
						"currentTherapy": "   ",
					},
				},
			},
			validate: func(t *testing.T, rec map[string]any) {
				v, ok := Get(rec, "clinicalSummary.Immunohistochemistry.currentTherapy")
				require.True(t, ok)
				assert.Equal(t, []any{}, v)
			},
		},
		{
			name: "lone record object gets wrapped",
			rec: map[string]any{
				"FamilyHistory": map[string]any{
					"familyMember": map[string]any{"relationToPatient": "Mother"},
				},
			},
			validate: func(t *testing.T, rec map[string]any) {
				v, ok := Get(rec, "FamilyHistory.familyMember")
				require.True(t, ok)
				members, isArr := v.([]any)
				require.True(t, isArr)
				require.Len(t, members, 1)
			},
		},
		{
			name: "sample mapping is always wrapped",
			rec: map[string]any{
				"Sample": map[string]any{"sampleID": "S-1", "sampleType": "Blood"},
			},
			validate: func(t *testing.T, rec map[string]any) {
				arr, isArr := rec["Sample"].([]any)
				require.True(t, isArr)
				require.Len(t, arr, 1)
				got, ok := Get(rec, "Sample.0.sampleID")
				require.True(t, ok)
				assert.Equal(t, "S-1", got)
			},
		},
		{
			name: "wildcard paths repair every sample element",
			rec: map[string]any{
				"Sample": []any{
					map[string]any{"sampleID": "S-1", "storedIn": "EDTA tube"},
					map[string]any{"sampleID": "S-2", "storedIn": map[string]any{
						"0": "FFPE block",
						"1": "Slide",
					}},
				},
			},
			validate: func(t *testing.T, rec map[string]any) {
				v, ok := Get(rec, "Sample.0.storedIn")
				require.True(t, ok)
				assert.Equal(t, []any{"EDTA tube"}, v)
				v, ok = Get(rec, "Sample.1.storedIn")
				require.True(t, ok)
				assert.Equal(t, []any{"FFPE block", "Slide"}, v)
			},
		},
		{
			name: "well formed record passes through unchanged",
			rec: map[string]any{
				"Sample": []any{map[string]any{"sampleID": "S-1"}},
				"clinicalSummary": map[string]any{
					"Immunohistochemistry": map[string]any{
						"pastTherapy": []any{"Chemotherapy"},
					},
				},
			},
			validate: func(t *testing.T, rec map[string]any) {
				v, ok := Get(rec, "Sample")
				require.True(t, ok)
				assert.Equal(t, []any{map[string]any{"sampleID": "S-1"}}, v)
				v, ok = Get(rec, "clinicalSummary.Immunohistochemistry.pastTherapy")
				require.True(t, ok)
				assert.Equal(t, []any{"Chemotherapy"}, v)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n.Normalize(tt.rec)
			tt.validate(t, tt.rec)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer(DefaultCatalogue())
	rec := map[string]any{
		"Sample": map[string]any{"sampleID": "S-1"},
		"FamilyHistory": map[string]any{
			"familyMember": map[string]any{
				"1": map[string]any{"relationToPatient": "Sister"},
				"0": map[string]any{"relationToPatient": "Mother"},
			},
		},
		"clinicalSummary": map[string]any{
			"Immunohistochemistry": map[string]any{"pastTherapy": "Chemo"},
		},
	}

	n.Normalize(rec)
	once := DeepCopy(rec)
	n.Normalize(rec)
	assert.Equal(t, once, rec)
}
