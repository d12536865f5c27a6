// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package placeholder

import "strings"

// RemapFragments applies entities, recorded against text, to the formatted
// fragments that make up text (document runs, rich-text cell runs). A
// replacement lands in the fragment holding the entity's first byte; the
// rest of a value spanning several fragments is cut from the later ones.
//
// It reports false when the fragments do not concatenate to text; callers
// then fall back to CollapseFragments.
func RemapFragments(text string, fragments []string, entities []Entity) ([]string, bool) {
	if strings.Join(fragments, "") != text {
		return nil, false
	}

	out := make([]string, len(fragments))
	next := 0
	fragStart := 0
	for i, frag := range fragments {
		fragEnd := fragStart + len(frag)
		var b strings.Builder
		pos := fragStart

		for next < len(entities) && entities[next].Start < fragEnd {
			e := entities[next]
			if e.Start > pos {
				b.WriteString(text[pos:e.Start])
			}
			if e.Start >= fragStart {
				b.WriteString(e.Placeholder)
			}
			if e.End > fragEnd {
				// Continues into the following fragments.
				pos = fragEnd
				break
			}
			pos = e.End
			next++
		}
		if pos < fragEnd {
			b.WriteString(text[pos:fragEnd])
		}

		out[i] = b.String()
		fragStart = fragEnd
	}
	return out, true
}

// CollapseFragments puts text into the first fragment and empties the rest,
// keeping the first fragment's formatting for the whole unit.
func CollapseFragments(text string, n int) []string {
	if n == 0 {
		return nil
	}
	out := make([]string, n)
	out[0] = text
	return out
}

// RestoreFragments restores placeholders inside each fragment. It reports
// false when a placeholder straddles fragments, in which case callers restore
// the joined text and collapse it.
func RestoreFragments(fragments []string, mapping map[string]string) ([]string, int, bool) {
	joined := strings.Join(fragments, "")
	want, count := Restore(joined, mapping)
	if count == 0 {
		return fragments, 0, true
	}

	out := make([]string, len(fragments))
	for i, frag := range fragments {
		out[i], _ = Restore(frag, mapping)
	}
	if strings.Join(out, "") != want {
		return nil, count, false
	}
	return out, count, true
}
