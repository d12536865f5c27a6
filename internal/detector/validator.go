// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"net/netip"
	"regexp"
	"strings"
)

// Check reports whether value has the expected shape for its entity type.
type Check func(value string) bool

// Validator applies stricter per-type shape checks after overlap resolution.
// Pattern rules for these types are intentionally loose; the validator
// removes what they over-match. Types without a check always pass.
type Validator struct {
	checks map[string]Check
}

var (
	swiftPattern = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}(?:[A-Z0-9]{3})?$`)
	ibanPattern  = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{11,30}$`)
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+'\-]+@[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)
)

// NewValidator returns a validator with the built-in checks registered.
func NewValidator() *Validator {
	v := &Validator{checks: make(map[string]Check)}
	v.Register("SWIFT_CODE", swiftPattern.MatchString)
	v.Register("IBAN", validIBAN)
	v.Register("EMAIL_ADDRESS", emailPattern.MatchString)
	v.Register("IP_ADDRESS", validIP)
	v.Register("US_SSN", validSSN)
	v.Register("PHONE_NUMBER", validPhone)
	v.Register("CREDIT_CARD", validCard)
	return v
}

// Register installs or replaces the check for entityType.
func (v *Validator) Register(entityType string, check Check) {
	v.checks[entityType] = check
}

// Valid reports whether value passes the check registered for entityType.
func (v *Validator) Valid(value, entityType string) bool {
	if v == nil {
		return true
	}
	check, ok := v.checks[entityType]
	if !ok {
		return true
	}
	return check(value)
}

// Filter keeps the spans whose covered text passes validation.
func (v *Validator) Filter(text string, spans []Span) []Span {
	kept := spans[:0:0]
	for _, s := range spans {
		if v.Valid(s.Text(text), s.Type) {
			kept = append(kept, s)
		}
	}
	return kept
}

func validIBAN(value string) bool {
	return ibanPattern.MatchString(strings.ReplaceAll(value, " ", ""))
}

func validIP(value string) bool {
	_, err := netip.ParseAddr(value)
	return err == nil
}

func validSSN(value string) bool {
	digits := 0
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-' || r == ' ':
		default:
			return false
		}
	}
	return digits == 9
}

func validPhone(value string) bool {
	digits := 0
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune("+-. ()", r):
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

func validCard(value string) bool {
	digits := make([]int, 0, 19)
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == '-' || r == ' ':
		default:
			return false
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	return Luhn(digits)
}

// Luhn reports whether the digit sequence carries a valid mod-10 check digit.
func Luhn(digits []int) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
