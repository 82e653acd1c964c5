package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		dst      map[string]any
		src      map[string]any
		validate func(t *testing.T, dst map[string]any)
	}{
		{
			name: "keys absent from the source are never touched",
			dst: map[string]any{
				"patientID": "P-100",
				"patientInformation": map[string]any{
					"gender": "Female",
					"patientName": map[string]any{
						"firstName": "Asha",
						"lastName":  "Rao",
					},
				},
			},
			src: map[string]any{
				"patientInformation": map[string]any{
					"patientName": map[string]any{"middleName": "K"},
				},
			},
			validate: func(t *testing.T, dst map[string]any) {
				for path, want := range map[string]any{
					"patientID":                                  "P-100",
					"patientInformation.gender":                  "Female",
					"patientInformation.patientName.firstName":   "Asha",
					"patientInformation.patientName.lastName":    "Rao",
					"patientInformation.patientName.middleName":  "K",
				} {
					got, ok := Get(dst, path)
					require.True(t, ok, path)
					assert.Equal(t, want, got, path)
				}
			},
		},
		{
			name: "scalar last write wins",
			dst:  map[string]any{"clinicalSummary": map[string]any{"primaryDiagnosis": "Unknown"}},
			src:  map[string]any{"clinicalSummary": map[string]any{"primaryDiagnosis": "Breast carcinoma"}},
			validate: func(t *testing.T, dst map[string]any) {
				got, ok := Get(dst, "clinicalSummary.primaryDiagnosis")
				require.True(t, ok)
				assert.Equal(t, "Breast carcinoma", got)
			},
		},
		{
			name: "mapping replaces a scalar of the same key",
			dst:  map[string]any{"hospital": "City General"},
			src:  map[string]any{"hospital": map[string]any{"hospitalName": "City General"}},
			validate: func(t *testing.T, dst map[string]any) {
				got, ok := Get(dst, "hospital.hospitalName")
				require.True(t, ok)
				assert.Equal(t, "City General", got)
			},
		},
		{
			name: "short target sequence grows to cover the source",
			dst: map[string]any{
				"Sample": []any{map[string]any{"sampleID": "S-1", "sampleType": "Blood"}},
			},
			src: map[string]any{
				"Sample": []any{
					map[string]any{"sampleCollectionDate": "01/15/2026"},
					map[string]any{"sampleID": "S-2"},
				},
			},
			validate: func(t *testing.T, dst map[string]any) {
				arr, isArr := dst["Sample"].([]any)
				require.True(t, isArr)
				require.Len(t, arr, 2)

				// Element 0 merged field by field.
				got, ok := Get(dst, "Sample.0.sampleType")
				require.True(t, ok)
				assert.Equal(t, "Blood", got)
				got, ok = Get(dst, "Sample.0.sampleCollectionDate")
				require.True(t, ok)
				assert.Equal(t, "01/15/2026", got)

				got, ok = Get(dst, "Sample.1.sampleID")
				require.True(t, ok)
				assert.Equal(t, "S-2", got)
			},
		},
		{
			name: "scalar sequence elements overwrite positionally",
			dst: map[string]any{
				"clinicalSummary": map[string]any{
					"Immunohistochemistry": map[string]any{
						"pastTherapy": []any{"Chemotherapy", "Radiation"},
					},
				},
			},
			src: map[string]any{
				"clinicalSummary": map[string]any{
					"Immunohistochemistry": map[string]any{
						"pastTherapy": []any{"Hormone therapy"},
					},
				},
			},
			validate: func(t *testing.T, dst map[string]any) {
				v, ok := Get(dst, "clinicalSummary.Immunohistochemistry.pastTherapy")
				require.True(t, ok)
				assert.Equal(t, []any{"Hormone therapy", "Radiation"}, v)
			},
		},
		{
			name: "malformed sibling does not stop the merge",
			dst: map[string]any{
				"Sample": "not a sequence",
			},
			src: map[string]any{
				"Sample":    []any{map[string]any{"sampleID": "S-1"}},
				"patientID": "P-100",
			},
			validate: func(t *testing.T, dst map[string]any) {
				got, ok := Get(dst, "Sample.0.sampleID")
				require.True(t, ok)
				assert.Equal(t, "S-1", got)
				got, ok = Get(dst, "patientID")
				require.True(t, ok)
				assert.Equal(t, "P-100", got)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Merge(tt.dst, tt.src)
			tt.validate(t, tt.dst)
		})
	}
}

func TestDeepCopy(t *testing.T) {
	orig := map[string]any{
		"patientInformation": map[string]any{
			"patientName": map[string]any{"firstName": "Asha"},
		},
		"Sample": []any{map[string]any{"sampleID": "S-1"}},
	}

	clone, isMap := DeepCopy(orig).(map[string]any)
	require.True(t, isMap)
	assert.Equal(t, orig, clone)

	Set(clone, "patientInformation.patientName.firstName", "Meera")
	Set(clone, "Sample.0.sampleID", "S-9")

	got, ok := Get(orig, "patientInformation.patientName.firstName")
	require.True(t, ok)
	assert.Equal(t, "Asha", got)
	got, ok = Get(orig, "Sample.0.sampleID")
	require.True(t, ok)
	assert.Equal(t, "S-1", got)
}
