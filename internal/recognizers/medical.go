// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package recognizers

var commonDrugs = []string{
	"Metformin", "Lisinopril", "Amlodipine", "Metoprolol", "Atorvastatin",
	"Omeprazole", "Losartan", "Albuterol", "Gabapentin", "Hydrochlorothiazide",
	"Sertraline", "Simvastatin", "Montelukast", "Escitalopram", "Rosuvastatin",
	"Bupropion", "Furosemide", "Pantoprazole", "Duloxetine", "Prednisone",
	"Amoxicillin", "Azithromycin", "Ibuprofen", "Acetaminophen", "Aspirin",
	"Warfarin", "Clopidogrel", "Insulin", "Levothyroxine", "Fluoxetine",
}

// MedicalRecognizers returns clinical identifier rules.
func MedicalRecognizers() []*Recognizer {
	return []*Recognizer{
		{
			Name:       "Icd10Recognizer",
			EntityType: "ICD10_CODE",
			Patterns: []Pattern{
				{Name: "icd10", Regex: `\b[A-TV-Z]\d{2}(?:\.\d{1,4})?\b`, Score: 0.6},
			},
			Context: []string{"diagnosis", "icd", "code", "dx", "condition"},
		},
		{
			Name:       "MrnRecognizer",
			EntityType: "MEDICAL_RECORD_NUMBER",
			Patterns: []Pattern{
				{Name: "mrn_dashes", Regex: `\b\d{3}-\d{3}-\d{3}\b`, Score: 0.4},
				{Name: "mrn_plain", Regex: `\b\d{7,10}\b`, Score: 0.2},
			},
			Context: []string{"mrn", "medical record", "patient id", "chart"},
		},
		{
			Name:       "DrugNameRecognizer",
			EntityType: "DRUG_NAME",
			DenyList:   commonDrugs,
			Context:    []string{"taking", "prescribed", "medication", "drug", "dose", "mg", "daily"},
		},
		{
			Name:       "NpiRecognizer",
			EntityType: "NPI_NUMBER",
			Patterns: []Pattern{
				{Name: "npi", Regex: `\b\d{10}\b`, Score: 0.3},
			},
			Context: []string{"npi", "provider", "national provider", "prescriber"},
		},
		{
			Name:       "DeaRecognizer",
			EntityType: "DEA_NUMBER",
			Patterns: []Pattern{
				{Name: "dea", Regex: `\b[A-Z]{2}\d{7}\b`, Score: 0.6},
			},
			Context: []string{"dea", "prescriber", "controlled substance", "schedule"},
		},
		{
			Name:       "InsuranceIdRecognizer",
			EntityType: "INSURANCE_ID",
			Patterns: []Pattern{
				{Name: "insurance_alphanum", Regex: `\b[A-Z]{2,4}-?\d{6,12}\b`, Score: 0.4},
				{Name: "policy_number", Regex: `\bPOL-?\d{4}-?\d{5,10}\b`, Score: 0.7},
				{Name: "claim_number", Regex: `\bCLM-?\d{4}-?\d{5,10}\b`, Score: 0.7},
			},
			Context: []string{
				"insurance", "policy", "claim", "member", "subscriber",
				"group", "coverage", "id", "number",
			},
		},
	}
}
