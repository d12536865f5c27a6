// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import "strings"

// Mask hides the middle of value. Values of four characters or fewer are
// hidden entirely; longer ones keep a quarter of their length (at least one
// character) visible at each end.
func Mask(value string) string {
	r := []rune(value)
	n := len(r)
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	visible := max(1, n/4)
	return string(r[:visible]) + strings.Repeat("*", n-2*visible) + string(r[n-visible:])
}
