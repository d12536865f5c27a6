// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"slices"
	"strings"
)

// ParseEntityTypes normalises entity type arguments. Each argument may hold
// a comma-separated list. An empty list or "all" selects every type and
// returns nil.
func ParseEntityTypes(args []string) []string {
	var result []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			t := strings.ToUpper(strings.TrimSpace(part))
			if t == "" {
				continue
			}
			if t == "ALL" {
				return nil
			}
			if !slices.Contains(result, t) {
				result = append(result, t)
			}
		}
	}
	return result
}
