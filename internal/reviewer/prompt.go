// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package reviewer

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a PII (Personally Identifiable Information) detection expert. Your job is to find sensitive entities in text that automated tools may have missed.

You look for ALL types of PII including but not limited to:
- Names (any language/culture), ages, dates of birth
- Addresses, postal codes, GPS coordinates
- Phone numbers, email addresses, URLs with PII
- Government IDs (SSN, passport, driver's license, national IDs from any country)
- Financial data (account numbers, policy numbers, claim numbers, tax IDs)
- Medical data (patient IDs, diagnoses, medications, provider numbers)
- Biometric identifiers
- Vehicle registration, license plates
- Usernames, passwords, security questions/answers
- Any identifier that could link back to a specific individual

You support ALL languages: English, German, French, Vietnamese, Spanish, etc.

Respond ONLY with a JSON array. Each element must have:
- "text": the exact substring from the input
- "entity_type": one of PERSON, LOCATION, ORGANIZATION, PHONE_NUMBER, EMAIL_ADDRESS, DATE_OF_BIRTH, AGE, US_SSN, PASSPORT, DRIVER_LICENSE, NATIONAL_ID, TAX_ID, INSURANCE_ID, MEDICAL_CONDITION, DRUG_NAME, CREDIT_CARD, IBAN, IP_ADDRESS, USERNAME, LICENSE_PLATE, or a descriptive ALL_CAPS type.

If no additional PII is found, respond with: []`

func userPrompt(text string, found []string) string {
	already := "none"
	if len(found) > 0 {
		quoted := make([]string, len(found))
		for i, v := range found {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		already = strings.Join(quoted, ", ")
	}
	return fmt.Sprintf("The following entities were already detected: [%s]\n\nFind any ADDITIONAL PII in this text that was missed:\n\n%s", already, text)
}
