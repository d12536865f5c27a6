// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// kernAsSpace is the TJ adjustment, in thousandths of an em, at or below
// which a gap is read as a word space.
const kernAsSpace = -250

type tokenKind int

const (
	tokOperator tokenKind = iota
	tokNumber
	tokName
	tokString
	tokArrayStart
	tokArrayEnd
	tokOther
)

type token struct {
	kind       tokenKind
	start, end int
	value      []byte // decoded bytes for strings, raw bytes otherwise
}

// lexer tokenizes a decoded page content stream.
type lexer struct {
	data []byte
	pos  int
}

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) next() (token, bool) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return token{}, false
	}

	start := l.pos
	c := l.data[l.pos]
	switch {
	case c == '(':
		return l.literal()
	case c == '<' && l.peek(1) == '<', c == '>' && l.peek(1) == '>':
		l.pos += 2
		return l.tok(tokOther, start), true
	case c == '<':
		return l.hex()
	case c == '[':
		l.pos++
		return l.tok(tokArrayStart, start), true
	case c == ']':
		l.pos++
		return l.tok(tokArrayEnd, start), true
	case c == '/':
		l.pos++
		l.regular()
		return l.tok(tokName, start), true
	case isDelimiter(c):
		l.pos++
		return l.tok(tokOther, start), true
	}

	l.regular()
	if _, err := strconv.ParseFloat(string(l.data[start:l.pos]), 64); err == nil {
		return l.tok(tokNumber, start), true
	}
	return l.tok(tokOperator, start), true
}

func (l *lexer) tok(kind tokenKind, start int) token {
	return token{kind: kind, start: start, end: l.pos, value: l.data[start:l.pos]}
}

func (l *lexer) peek(n int) byte {
	if l.pos+n < len(l.data) {
		return l.data[l.pos+n]
	}
	return 0
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		if !isWhitespace(c) {
			return
		}
		l.pos++
	}
}

func (l *lexer) regular() {
	for l.pos < len(l.data) && !isWhitespace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
}

func (l *lexer) literal() (token, bool) {
	start := l.pos
	l.pos++ // (
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return token{kind: tokString, start: start, end: l.pos, value: out}, true
			}
		case '\\':
			if l.pos >= len(l.data) {
				continue
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
					continue
				}
				out = append(out, e)
			}
			continue
		}
		out = append(out, c)
	}
	// Unterminated string: keep what was read.
	return token{kind: tokString, start: start, end: l.pos, value: out}, true
}

func (l *lexer) hex() (token, bool) {
	start := l.pos
	l.pos++ // <
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isWhitespace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++ // >
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return token{kind: tokString, start: start, end: l.pos, value: out}, true
}

// skipInlineImage moves past the binary data following an ID operator.
func (l *lexer) skipInlineImage() {
	if l.pos < len(l.data) {
		l.pos++ // single whitespace after ID
	}
	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] == 'E' && l.data[i+1] == 'I' &&
			(i == 0 || isWhitespace(l.data[i-1])) &&
			(i+2 == len(l.data) || isWhitespace(l.data[i+2])) {
			l.pos = i + 2
			return
		}
	}
	l.pos = len(l.data)
}

// textState is the part of the graphics state a text run is annotated with.
type textState struct {
	Font  string
	Size  float64
	Color string
}

// textRun is one text-showing operation. Start and End delimit the operand
// that is rewritten: the string of Tj, ' and ", or the array of TJ.
type textRun struct {
	Start, End int
	Op         string
	Text       []byte
	State      textState
}

// scanRuns lists the text runs of a content stream. state carries the text
// state across the streams of one page and is updated in place.
func scanRuns(data []byte, state *textState) []textRun {
	l := &lexer{data: data}
	var (
		runs     []textRun
		operands []token
		stack    []textState
	)

	for {
		tok, ok := l.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}

		switch op := string(tok.value); op {
		case "q":
			stack = append(stack, *state)
		case "Q":
			if n := len(stack); n > 0 {
				*state = stack[n-1]
				stack = stack[:n-1]
			}
		case "Tf":
			if n := len(operands); n >= 2 && operands[n-2].kind == tokName {
				state.Font = strings.TrimPrefix(string(operands[n-2].value), "/")
				state.Size, _ = strconv.ParseFloat(string(operands[n-1].value), 64)
			}
		case "rg", "g", "k", "sc", "scn":
			state.Color = colorOperands(operands, op)
		case "Tj", "'", "\"":
			if n := len(operands); n > 0 && operands[n-1].kind == tokString {
				s := operands[n-1]
				runs = append(runs, textRun{Start: s.start, End: s.end, Op: op, Text: s.value, State: *state})
			}
		case "TJ":
			if run, ok := arrayRun(operands); ok {
				run.State = *state
				runs = append(runs, run)
			}
		case "ID":
			l.skipInlineImage()
		}
		operands = operands[:0]
	}
	return runs
}

func colorOperands(operands []token, op string) string {
	parts := make([]string, 0, len(operands)+1)
	for _, o := range operands {
		if o.kind == tokNumber || o.kind == tokName {
			parts = append(parts, string(o.value))
		}
	}
	return strings.Join(append(parts, op), " ")
}

func arrayRun(operands []token) (textRun, bool) {
	open, end := -1, -1
	for i := len(operands) - 1; i >= 0; i-- {
		if operands[i].kind == tokArrayEnd && end < 0 {
			end = i
		}
		if operands[i].kind == tokArrayStart {
			open = i
			break
		}
	}
	if open < 0 || end < open {
		return textRun{}, false
	}

	var text []byte
	for _, el := range operands[open+1 : end] {
		switch el.kind {
		case tokString:
			text = append(text, el.value...)
		case tokNumber:
			if v, err := strconv.ParseFloat(string(el.value), 64); err == nil && v <= kernAsSpace {
				text = append(text, ' ')
			}
		}
	}
	return textRun{Start: operands[open].start, End: operands[end].end, Op: "TJ", Text: text}, true
}

// substitution replaces one value inside text runs. From and To are the
// single-byte encodings of Original and Replacement.
type substitution struct {
	Original    string
	Replacement string
	From, To    []byte
}

// hit is one replaced occurrence.
type hit struct {
	Run int
	Sub *substitution
}

type runMatch struct {
	pos int
	sub *substitution
}

// rewriteRuns replaces every occurrence of each substitution inside the
// runs of data. Longer values win over values they contain.
func rewriteRuns(data []byte, runs []textRun, subs []*substitution) ([]byte, []hit) {
	ordered := make([]*substitution, 0, len(subs))
	for _, s := range subs {
		if len(s.From) > 0 {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i].From) > len(ordered[j].From) })

	var (
		out  bytes.Buffer
		hits []hit
		last int
	)
	for ri, run := range runs {
		matches := findMatches(run.Text, ordered)
		if len(matches) == 0 {
			continue
		}

		var text []byte
		pos := 0
		for _, m := range matches {
			text = append(text, run.Text[pos:m.pos]...)
			text = append(text, m.sub.To...)
			pos = m.pos + len(m.sub.From)
			hits = append(hits, hit{Run: ri, Sub: m.sub})
		}
		text = append(text, run.Text[pos:]...)

		out.Write(data[last:run.Start])
		if run.Op == "TJ" {
			out.WriteByte('[')
			out.WriteString(encodeLiteral(text))
			out.WriteByte(']')
		} else {
			out.WriteString(encodeLiteral(text))
		}
		last = run.End
	}
	if hits == nil {
		return data, nil
	}
	out.Write(data[last:])
	return out.Bytes(), hits
}

func findMatches(text []byte, subs []*substitution) []runMatch {
	var matches []runMatch
	covered := make([]bool, len(text))
	for _, s := range subs {
		for from := 0; from < len(text); {
			i := bytes.Index(text[from:], s.From)
			if i < 0 {
				break
			}
			i += from
			end := i + len(s.From)
			free := true
			for k := i; k < end; k++ {
				if covered[k] {
					free = false
					break
				}
			}
			if free {
				for k := i; k < end; k++ {
					covered[k] = true
				}
				matches = append(matches, runMatch{pos: i, sub: s})
				from = end
				continue
			}
			from = i + 1
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })
	return matches
}

// encodeLiteral writes b as a PDF literal string.
func encodeLiteral(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, c := range b {
		switch {
		case c == '(' || c == ')' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&sb, "\\%03o", c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

// encodeLatin1 encodes s for simple single-byte fonts. It reports false when
// s holds a character outside Latin-1.
func encodeLatin1(s string) ([]byte, bool) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			return nil, false
		}
		out = append(out, byte(r))
	}
	return out, true
}
