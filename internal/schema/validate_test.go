package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeRecord() map[string]any {
	return map[string]any{
		"patientID": "P-100",
		"patientInformation": map[string]any{
			"patientName": map[string]any{"firstName": "Asha", "lastName": "Rao"},
			"gender":      "Female",
			"dob":         "04/12/1975",
			"patientInformationPhoneNumber": "+91 9876543210",
		},
		"clinicalSummary": map[string]any{
			"primaryDiagnosis": "Breast carcinoma",
		},
	}
}

func TestIsPresent(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want bool
	}{
		{name: "nil is absent", val: nil, want: false},
		{name: "empty string is absent", val: "", want: false},
		{name: "empty sequence is absent", val: []any{}, want: false},
		{name: "empty mapping counts as present", val: map[string]any{}, want: true},
		{name: "non empty string", val: "x", want: true},
		{name: "non empty sequence", val: []any{"x"}, want: true},
		{name: "number", val: 42.0, want: true},
		{name: "false is present", val: false, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPresent(tt.val))
		})
	}
}

func TestMissingRequired(t *testing.T) {
	v := NewValidator(DefaultCatalogue())

	t.Run("complete record has no missing fields", func(t *testing.T) {
		assert.Empty(t, v.MissingRequired(completeRecord()))
	})

	t.Run("absent and empty values are both missing", func(t *testing.T) {
		rec := completeRecord()
		Set(rec, "patientInformation.gender", "")
		delete(rec, "clinicalSummary")

		missing := v.MissingRequired(rec)
		assert.ElementsMatch(t, []string{
			"patientInformation.gender",
			"clinicalSummary.primaryDiagnosis",
		}, missing)
	})
}

func TestCompletionPercentage(t *testing.T) {
	v := NewValidator(DefaultCatalogue())

	t.Run("complete record is 1.0", func(t *testing.T) {
		assert.InDelta(t, 1.0, v.CompletionPercentage(completeRecord()), 1e-9)
	})

	t.Run("five of seven filled", func(t *testing.T) {
		rec := completeRecord()
		delete(rec, "patientID")
		Set(rec, "patientInformation.dob", "")

		assert.InDelta(t, 5.0/7.0, v.CompletionPercentage(rec), 1e-9)
	})

	t.Run("empty required set is 1.0", func(t *testing.T) {
		empty := NewValidator(&Catalogue{})
		assert.InDelta(t, 1.0, empty.CompletionPercentage(map[string]any{}), 1e-9)
	})
}

func TestConditionalViolations(t *testing.T) {
	v := NewValidator(DefaultCatalogue())

	tests := []struct {
		name string
		rec  map[string]any
		want int
	}{
		{
			name: "trigger Yes with dependent present",
			rec: map[string]any{
				"FamilyHistory": map[string]any{
					"familyHistoryOfAnyCancer": "Yes",
					"familyMember":             []any{map[string]any{"relationToPatient": "Mother"}},
				},
			},
			want: 0,
		},
		{
			name: "trigger Yes with dependent absent",
			rec: map[string]any{
				"FamilyHistory": map[string]any{"familyHistoryOfAnyCancer": "Yes"},
			},
			want: 1,
		},
		{
			name: "trigger No never fires",
			rec: map[string]any{
				"FamilyHistory": map[string]any{"familyHistoryOfAnyCancer": "No"},
			},
			want: 0,
		},
		{
			name: "match is exact and case sensitive",
			rec: map[string]any{
				"FamilyHistory": map[string]any{"familyHistoryOfAnyCancer": "yes"},
			},
			want: 0,
		},
		{
			name: "prior treatment rule fires independently",
			rec: map[string]any{
				"clinicalSummary": map[string]any{
					"Immunohistochemistry": map[string]any{
						"hasPatientFailedPriorTreatment": "Yes",
					},
				},
				"FamilyHistory": map[string]any{"familyHistoryOfAnyCancer": "Yes"},
			},
			want: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := v.ConditionalViolations(tt.rec)
			assert.Len(t, violations, tt.want)
		})
	}
}

func TestFormStatus(t *testing.T) {
	v := NewValidator(DefaultCatalogue())

	t.Run("complete", func(t *testing.T) {
		assert.Equal(t, FormStatusComplete, v.FormStatus(completeRecord()))
	})

	t.Run("nearly complete at three missing", func(t *testing.T) {
		rec := completeRecord()
		delete(rec, "patientID")
		Set(rec, "patientInformation.dob", "")
		delete(rec, "clinicalSummary")

		require.Len(t, v.MissingRequired(rec), 3)
		assert.Equal(t, FormStatusNearlyComplete, v.FormStatus(rec))
	})

	t.Run("violation demotes a nearly complete record", func(t *testing.T) {
		rec := completeRecord()
		delete(rec, "patientID")
		Set(rec, "FamilyHistory.familyHistoryOfAnyCancer", "Yes")

		assert.Equal(t, FormStatusPartial, v.FormStatus(rec))
	})

	t.Run("partial when patient information exists", func(t *testing.T) {
		rec := map[string]any{
			"patientInformation": map[string]any{
				"patientName": map[string]any{"firstName": "Asha"},
			},
		}
		assert.Equal(t, FormStatusPartial, v.FormStatus(rec))
	})

	t.Run("incomplete when nothing useful exists", func(t *testing.T) {
		assert.Equal(t, FormStatusIncomplete, v.FormStatus(map[string]any{}))
	})
}

func TestIsValid(t *testing.T) {
	v := NewValidator(DefaultCatalogue())

	t.Run("complete record is valid", func(t *testing.T) {
		assert.True(t, v.IsValid(completeRecord()))
	})

	t.Run("missing required field invalidates", func(t *testing.T) {
		rec := completeRecord()
		delete(rec, "patientID")
		assert.False(t, v.IsValid(rec))
	})

	t.Run("conditional violation invalidates", func(t *testing.T) {
		rec := completeRecord()
		Set(rec, "FamilyHistory.familyHistoryOfAnyCancer", "Yes")
		assert.False(t, v.IsValid(rec))
	})
}

func TestValidateFieldValue(t *testing.T) {
	v := NewValidator(DefaultCatalogue())

	tests := []struct {
		name    string
		path    string
		value   string
		wantErr bool
	}{
		{name: "valid gender", path: "patientInformation.gender", value: "Female"},
		{name: "short form gender", path: "patientInformation.gender", value: "F"},
		{name: "invalid gender", path: "patientInformation.gender", value: "Unknown", wantErr: true},
		{name: "valid email", path: "patientInformation.email", value: "asha@example.org"},
		{name: "invalid email", path: "patientInformation.email", value: "not-an-email", wantErr: true},
		{name: "phone with digits", path: "patientInformation.patientInformationPhoneNumber", value: "+91 98765"},
		{name: "phone without digits", path: "patientInformation.patientInformationPhoneNumber", value: "unknown", wantErr: true},
		{name: "clearing any field is allowed", path: "patientInformation.gender", value: ""},
		{name: "unconstrained field accepts anything", path: "clinicalSummary.primaryDiagnosis", value: "anything at all"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateFieldValue(tt.path, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
