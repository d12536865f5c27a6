// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdf

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Rect is a box in default user space, origin bottom-left.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// pageLayout is the extracted text of a page plus the glyphs it was set with.
type pageLayout struct {
	Number int
	Text   string

	glyphs []pdf.Text
	joined string
	starts []int // offset of each glyph in joined
}

// readLayout extracts the text and glyph geometry of every page.
func readLayout(path string) (pages []pageLayout, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		layout, err := readPage(p, i)
		if err != nil {
			return nil, err
		}
		pages = append(pages, layout)
	}
	return pages, nil
}

func readPage(p pdf.Page, number int) (layout pageLayout, err error) {
	// The reader panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: unreadable content: %v", number, r)
		}
	}()

	layout.Number = number
	rows, err := p.GetTextByRow()
	if err != nil {
		text, perr := p.GetPlainText(nil)
		if perr != nil {
			return layout, fmt.Errorf("page %d: %w", number, err)
		}
		layout.Text = text
	} else {
		layout.Text = rowsText(rows)
	}

	layout.glyphs = p.Content().Text
	var sb strings.Builder
	layout.starts = make([]int, len(layout.glyphs))
	for i, g := range layout.glyphs {
		layout.starts[i] = sb.Len()
		sb.WriteString(g.S)
	}
	layout.joined = sb.String()
	return layout, nil
}

// rowsText lays rows out top to bottom, inserting a space where the gap
// between two text blocks exceeds a fifth of the font size.
func rowsText(rows pdf.Rows) string {
	sorted := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			sorted = append(sorted, row)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position > sorted[j].Position })

	var buf strings.Builder
	for _, row := range sorted {
		texts := make([]pdf.Text, len(row.Content))
		copy(texts, row.Content)
		sort.SliceStable(texts, func(i, j int) bool { return texts[i].X < texts[j].X })

		for i, t := range texts {
			buf.WriteString(t.S)
			if i == len(texts)-1 {
				continue
			}
			size := t.FontSize
			if size <= 0 {
				size = 12
			}
			if texts[i+1].X-(t.X+t.W) > size*0.2 && !strings.HasSuffix(t.S, " ") {
				buf.WriteString(" ")
			}
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

// locate returns the box of the nth occurrence of value among the page's
// glyphs and the first glyph of that occurrence.
func (p *pageLayout) locate(value string, nth int) (Rect, pdf.Text, bool) {
	idx := -1
	from := 0
	for n := 0; n <= nth; n++ {
		i := strings.Index(p.joined[from:], value)
		if i < 0 {
			return Rect{}, pdf.Text{}, false
		}
		idx = from + i
		from = idx + len(value)
	}

	first := sort.Search(len(p.starts), func(i int) bool { return p.starts[i] > idx }) - 1
	if first < 0 {
		return Rect{}, pdf.Text{}, false
	}
	end := idx + len(value)

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := first; i < len(p.glyphs) && p.starts[i] < end; i++ {
		g := p.glyphs[i]
		size := g.FontSize
		if size <= 0 {
			size = 12
		}
		w := g.W
		if w <= 0 {
			w = 0.5 * size * float64(utf8.RuneCountInString(g.S))
		}
		minX = math.Min(minX, g.X)
		maxX = math.Max(maxX, g.X+w)
		minY = math.Min(minY, g.Y-0.25*size)
		maxY = math.Max(maxY, g.Y+size)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, p.glyphs[first], true
}
