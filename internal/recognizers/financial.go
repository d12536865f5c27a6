// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package recognizers

// FinancialRecognizers returns banking rules. Card numbers live with the core set.
func FinancialRecognizers() []*Recognizer {
	return []*Recognizer{
		{
			Name:       "IbanRecognizer",
			EntityType: "IBAN",
			Patterns: []Pattern{
				{Name: "iban", Regex: `\b[A-Z]{2}\d{2}\s?[\dA-Z]{4}\s?(?:[\dA-Z]{4}\s?){2,7}[\dA-Z]{1,4}\b`, Score: 0.8},
			},
			Context: []string{"iban", "account", "bank", "transfer"},
		},
		{
			Name:       "UsBankRoutingRecognizer",
			EntityType: "US_BANK_ROUTING",
			Patterns: []Pattern{
				{Name: "us_routing", Regex: `\b\d{9}\b`, Score: 0.3},
			},
			Context: []string{"routing", "aba", "bank", "transit"},
		},
		{
			// Deliberately loose; the entity validator rejects lower-case words.
			Name:       "SwiftCodeRecognizer",
			EntityType: "SWIFT_CODE",
			Patterns: []Pattern{
				{Name: "swift", Regex: `\b[A-Za-z]{6}[A-Za-z0-9]{2}(?:[A-Za-z0-9]{3})?\b`, Score: 0.4},
			},
			Context: []string{"swift", "bic", "bank"},
		},
	}
}
