// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package recognizers

import (
	"net/netip"
	"strings"

	"redact-mcp/internal/detector"
)

// CoreRecognizers returns the general-purpose PII rules.
func CoreRecognizers() []*Recognizer {
	return []*Recognizer{
		{
			Name:       "EmailRecognizer",
			EntityType: "EMAIL_ADDRESS",
			Patterns: []Pattern{
				{Name: "email", Regex: `\b[A-Za-z0-9!#$%&'*+/=?^_{|}~-]+(?:\.[A-Za-z0-9!#$%&'*+/=?^_{|}~-]+)*@[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?)+\b`, Score: 0.5},
			},
			Context: []string{"email", "mail", "contact", "address"},
		},
		{
			Name:       "PhoneRecognizer",
			EntityType: "PHONE_NUMBER",
			Patterns: []Pattern{
				{Name: "phone_us", Regex: `(?:\+?1[\s.-]?)?(?:\(\d{3}\)|\b\d{3})[\s.-]?\d{3}[\s.-]?\d{4}\b`, Score: 0.4},
				{Name: "phone_intl", Regex: `\+\d{1,3}[\s.-]?\(?\d{1,4}\)?(?:[\s.-]?\d{2,4}){2,4}\b`, Score: 0.4},
			},
			Context: []string{"phone", "mobile", "cell", "tel", "telephone", "call", "fax", "contact"},
		},
		{
			Name:       "UsSsnRecognizer",
			EntityType: "US_SSN",
			Patterns: []Pattern{
				{Name: "ssn_dashes", Regex: `\b\d{3}-\d{2}-\d{4}\b`, Score: 0.5},
				{Name: "ssn_spaces", Regex: `\b\d{3} \d{2} \d{4}\b`, Score: 0.5},
			},
			Context: []string{"ssn", "social", "security", "ssid"},
			Verify:  verifySSN,
		},
		{
			Name:       "UsItinRecognizer",
			EntityType: "US_ITIN",
			Patterns: []Pattern{
				{Name: "itin_dashes", Regex: `\b9\d{2}-(?:5\d|6[0-5]|7\d|8[0-8]|9[0-24-9])-\d{4}\b`, Score: 0.5},
				{Name: "itin_plain", Regex: `\b9\d{2}(?:5\d|6[0-5]|7\d|8[0-8]|9[0-24-9])\d{4}\b`, Score: 0.3},
			},
			Context: []string{"itin", "taxpayer", "tax"},
		},
		{
			Name:       "CreditCardRecognizer",
			EntityType: "CREDIT_CARD",
			Patterns: []Pattern{
				{Name: "credit_card", Regex: `\b(?:4\d{3}|5[0-5]\d{2}|6\d{3}|1\d{3}|3\d{3})[- ]?\d{3,4}[- ]?\d{3,4}[- ]?\d{3,5}\b`, Score: 0.3},
			},
			Context: []string{"credit", "card", "visa", "mastercard", "amex", "cc", "payment"},
			Verify:  verifyLuhn,
		},
		{
			Name:       "IpRecognizer",
			EntityType: "IP_ADDRESS",
			Patterns: []Pattern{
				{Name: "ipv4", Regex: `\b(?:(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\b`, Score: 0.6},
				{Name: "ipv6", Regex: `\b(?:[0-9A-Fa-f]{1,4}:){7}[0-9A-Fa-f]{1,4}\b`, Score: 0.6},
				{Name: "ipv6_compressed", Regex: `\b(?:[0-9A-Fa-f]{1,4}:){1,6}:[0-9A-Fa-f]{1,4}(?::[0-9A-Fa-f]{1,4})*\b`, Score: 0.6},
			},
			Context: []string{"ip", "address", "server", "host"},
			Verify:  verifyIP,
		},
		{
			Name:       "UrlRecognizer",
			EntityType: "URL",
			Patterns: []Pattern{
				{Name: "url_scheme", Regex: `\bhttps?://[^\s<>"']*[^\s<>"'.,;:!?)\]]`, Score: 0.6},
				{Name: "url_www", Regex: `\bwww\.[^\s<>"']*[^\s<>"'.,;:!?)\]]`, Score: 0.5},
			},
			Context: []string{"url", "website", "link", "site"},
		},
		{
			Name:       "DateRecognizer",
			EntityType: "DATE_TIME",
			Patterns: []Pattern{
				{Name: "date_iso", Regex: `\b\d{4}-(?:0[1-9]|1[0-2])-(?:0[1-9]|[12]\d|3[01])\b`, Score: 0.6},
				{Name: "date_slash", Regex: `\b(?:0?[1-9]|[12]\d|3[01])/(?:0?[1-9]|[12]\d|3[01])/(?:\d{4}|\d{2})\b`, Score: 0.6},
				{Name: "date_written", Regex: `\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.? \d{1,2}(?:st|nd|rd|th)?,? \d{4}\b`, Score: 0.6},
			},
			Context: []string{"date", "born", "birth", "dob", "birthday"},
		},
		{
			Name:       "UsPassportRecognizer",
			EntityType: "US_PASSPORT",
			Patterns: []Pattern{
				{Name: "passport_next_gen", Regex: `\b[A-Z]\d{8}\b`, Score: 0.1},
			},
			Context: []string{"passport", "travel", "document"},
		},
		{
			Name:       "CryptoRecognizer",
			EntityType: "CRYPTO",
			Patterns: []Pattern{
				{Name: "btc_address", Regex: `\b(?:bc1[a-z0-9]{25,59}|[13][a-km-zA-HJ-NP-Z1-9]{25,34})\b`, Score: 0.5},
			},
			Context: []string{"wallet", "btc", "bitcoin", "crypto"},
		},
		{
			Name:       "UkNhsRecognizer",
			EntityType: "UK_NHS",
			Patterns: []Pattern{
				{Name: "nhs", Regex: `\b\d{3}[- ]?\d{3}[- ]?\d{4}\b`, Score: 0.5},
			},
			Context: []string{"nhs", "national health", "health service"},
			Verify:  verifyNHS,
		},
	}
}

func onlyDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func verifySSN(value string, score float64) (float64, bool) {
	digits := onlyDigits(value)
	if len(digits) != 9 {
		return 0, false
	}
	area, group, serial := digits[:3], digits[3:5], digits[5:]
	if area == "000" || area == "666" || area[0] == '9' || group == "00" || serial == "0000" {
		return 0, false
	}
	if strings.Count(digits, digits[:1]) == len(digits) {
		return 0, false
	}
	return score, true
}

func verifyLuhn(value string, _ float64) (float64, bool) {
	digits := onlyDigits(value)
	nums := make([]int, len(digits))
	for i, r := range digits {
		nums[i] = int(r - '0')
	}
	if !detector.Luhn(nums) {
		return 0, false
	}
	return 1.0, true
}

func verifyIP(value string, score float64) (float64, bool) {
	if _, err := netip.ParseAddr(value); err != nil {
		return 0, false
	}
	return score, true
}

func verifyNHS(value string, score float64) (float64, bool) {
	digits := onlyDigits(value)
	if len(digits) != 10 {
		return 0, false
	}
	total := 0
	for i := 0; i < 9; i++ {
		total += int(digits[i]-'0') * (10 - i)
	}
	check := 11 - total%11
	if check == 11 {
		check = 0
	}
	if check == 10 || check != int(digits[9]-'0') {
		return 0, false
	}
	return score, true
}
