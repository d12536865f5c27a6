// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ner

import "slices"

// DefaultLabels maps tagger labels to entity types. Only semantic types are
// listed; structured identifiers such as emails and phone numbers are left to
// the rule layer, whose patterns and validators are more precise.
var DefaultLabels = map[string]string{
	"person":            "PERSON",
	"organization":      "ORGANIZATION",
	"address":           "LOCATION",
	"date of birth":     "DATE_TIME",
	"medication":        "DRUG_NAME",
	"medical condition": "MEDICAL_CONDITION",
	"username":          "USERNAME",
}

// SupportedEntities returns the entity types the label table can produce.
func SupportedEntities(labels map[string]string) []string {
	seen := make(map[string]bool, len(labels))
	var out []string
	for _, t := range labels {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}
