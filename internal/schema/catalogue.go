// Package schema implements the TRF record tree: dotted-path addressing,
// structural repair of LLM output, extraction merging, and the declarative
// required/conditional field rules that drive completeness reporting.
package schema

// ConditionalRule declares that DependentPaths must be present whenever the
// value at TriggerPath equals TriggerValue (exact, case-sensitive).
type ConditionalRule struct {
	TriggerPath    string
	TriggerValue   string
	DependentPaths []string
}

// ArrayField declares a schema path that must always resolve to a sequence.
// Paths may contain a "*" segment, which expands over every element of the
// sequence at that position. Records marks fields that hold collections of
// objects (a stray single object gets wrapped rather than passed through).
type ArrayField struct {
	Path    string
	Records bool
}

// Catalogue is the static TRF schema registry: field descriptions for
// prompts and user-facing messages, the required-field set, conditional
// requirement rules, and the declared array-typed fields. Loaded once at
// process start and never mutated.
type Catalogue struct {
	Overview     string
	Descriptions map[string]string
	Required     []string
	Rules        []ConditionalRule
	ArrayFields  []ArrayField
}

const trfOverview = `The Test Requisition Form (TRF) schema contains the following main sections:
- Patient Information: Basic details about the patient
- Clinical Summary: Medical diagnosis and related information
- Family History: Cancer history in the family
- Hospital Information: Details about the hospital
- Physician Information: Details about the treating physician
- Lab Information: Details about the laboratory
- Sample Information: Details about the collected samples
- Shipment Details: Information about sample shipment
- Consent: Patient consent information`

// DefaultCatalogue returns the TRF schema registry.
func DefaultCatalogue() *Catalogue {
	return &Catalogue{
		Overview: trfOverview,
		Descriptions: map[string]string{
			"patientID": "A unique identifier for the patient",
			"reportId":  "A unique identifier for the report",
			"limsID":    "Laboratory Information Management System ID",
			"orderID":   "A unique identifier for the order",

			"patientInformation.patientName.firstName":        "Patient's first name",
			"patientInformation.patientName.middleName":       "Patient's middle name (optional)",
			"patientInformation.patientName.lastName":         "Patient's last name",
			"patientInformation.gender":                       "Patient's gender (Male, Female, or Other)",
			"patientInformation.ethnicity":                    "Patient's ethnicity",
			"patientInformation.dob":                          "Patient's date of birth (MM/DD/YYYY)",
			"patientInformation.age":                          "Patient's age in years",
			"patientInformation.weight":                       "Patient's weight",
			"patientInformation.height":                       "Patient's height",
			"patientInformation.email":                        "Patient's email address",
			"patientInformation.patientInformationPhoneNumber": "Patient's phone number",
			"patientInformation.patientInformationAddress":    "Patient's complete address",
			"patientInformation.patientCountry":               "Patient's country of residence",
			"patientInformation.patientState":                 "Patient's state/province of residence",
			"patientInformation.patientCity":                  "Patient's city of residence",
			"patientInformation.patientPincode":               "Patient's postal/ZIP code",

			"clinicalSummary.primaryDiagnosis":              "Patient's primary diagnosis",
			"clinicalSummary.initialDiagnosisStage":         "Initial stage of diagnosis",
			"clinicalSummary.currentDiagnosis":              "Current diagnosis",
			"clinicalSummary.diagnosisDate":                 "Date of diagnosis (MM/DD/YYYY)",
			"clinicalSummary.Immunohistochemistry.er":       "Estrogen Receptor status (positive, negative, or percentage)",
			"clinicalSummary.Immunohistochemistry.pr":       "Progesterone Receptor status (positive, negative, or percentage)",
			"clinicalSummary.Immunohistochemistry.her2neu":  "HER2/neu status (positive, negative, or score)",
			"clinicalSummary.Immunohistochemistry.ki67":     "Ki-67 index (percentage)",

			"FamilyHistory.familyHistoryOfAnyCancer": "Whether the patient has a family history of cancer (Yes/No)",

			"physician.physicianName":        "Name of the treating physician",
			"physician.physicianSpecialty":   "Specialty of the physician",
			"physician.physicianPhoneNumber": "Physician's phone number",
			"physician.physicianEmail":       "Physician's email address",

			"hospital.hospitalName":    "Name of the hospital",
			"hospital.hospitalAddress": "Address of the hospital",

			"Sample.0.sampleType":           "Type of the biological sample (e.g., Blood, Tissue, Bone Marrow)",
			"Sample.0.sampleID":             "Unique identifier for the sample",
			"Sample.0.sampleCollectionDate": "Date when the sample was collected (MM/DD/YYYY)",
		},
		Required: []string{
			"patientID",
			"patientInformation.patientName.firstName",
			"patientInformation.patientName.lastName",
			"patientInformation.gender",
			"patientInformation.dob",
			"patientInformation.patientInformationPhoneNumber",
			"clinicalSummary.primaryDiagnosis",
		},
		Rules: []ConditionalRule{
			{
				TriggerPath:    "clinicalSummary.Immunohistochemistry.hasPatientFailedPriorTreatment",
				TriggerValue:   "Yes",
				DependentPaths: []string{"clinicalSummary.Immunohistochemistry.pastTherapy"},
			},
			{
				TriggerPath:    "FamilyHistory.familyHistoryOfAnyCancer",
				TriggerValue:   "Yes",
				DependentPaths: []string{"FamilyHistory.familyMember"},
			},
		},
		ArrayFields: []ArrayField{
			{Path: "Sample", Records: true},
			{Path: "FamilyHistory.familyMember", Records: true},
			{Path: "Sample.*.sampleCollectionSite"},
			{Path: "Sample.*.currentStatusOfSample"},
			{Path: "Sample.*.storedIn"},
			{Path: "clinicalSummary.Immunohistochemistry.diseaseStatusAtTheTimeOfTesting"},
			{Path: "clinicalSummary.Immunohistochemistry.pastTherapy"},
			{Path: "clinicalSummary.Immunohistochemistry.currentTherapy"},
		},
	}
}

// Describe returns the human-readable description for a field path, falling
// back to the path itself for fields the catalogue does not know.
func (c *Catalogue) Describe(path string) string {
	if d, ok := c.Descriptions[path]; ok {
		return d
	}
	return "Field " + path
}
