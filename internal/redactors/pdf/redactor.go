// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pdf redacts PDF files by rewriting the text-showing operators of
// each page's content streams. Values are matched inside a single text run
// of a simple (single-byte) font; values split across runs or set in
// composite fonts are reported and left in place.
package pdf

import (
	"context"
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"

	"redact-mcp/internal/engine"
	"redact-mcp/internal/observability"
)

// Annotation records one value replaced on a page and where it was drawn.
type Annotation struct {
	Page        int     `json:"page"`
	Text        string  `json:"-"`
	Replacement string  `json:"replacement"`
	Font        string  `json:"font"`
	FontSize    float64 `json:"font_size"`
	Color       string  `json:"color"`
	Rect        *Rect   `json:"rect,omitempty"`
}

// PDFRedactor implements redaction for PDF files
type PDFRedactor struct {
	observer *observability.StandardObserver
}

// NewPDFRedactor creates a new PDFRedactor
func NewPDFRedactor(observer *observability.StandardObserver) *PDFRedactor {
	if observer == nil {
		observer = observability.NewNopObserver()
	}
	return &PDFRedactor{observer: observer}
}

// GetName returns the name of the redactor
func (pr *PDFRedactor) GetName() string {
	return "pdf_redactor"
}

// GetSupportedTypes returns the file types this redactor can handle
func (pr *PDFRedactor) GetSupportedTypes() []string {
	return []string{".pdf"}
}

// GetComponentName returns the component name for observability
func (pr *PDFRedactor) GetComponentName() string {
	return "pdf_redactor"
}

// RedactDocument redacts each page's extracted text as one unit, then
// replaces every occurrence of the detected values in that page's content
// streams. In blackbox mode the values are removed and opaque boxes are
// painted over where they were.
func (pr *PDFRedactor) RedactDocument(ctx context.Context, inputPath, outputPath string, doc *engine.DocumentSession) error {
	done := pr.observer.StartTiming(pr.GetComponentName(), "redact_document", inputPath)

	annotations, err := pr.redact(ctx, inputPath, outputPath, doc)
	if err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return err
	}
	done(true, map[string]interface{}{
		"entities":    doc.EntitiesFound(),
		"annotations": len(annotations),
	})
	return nil
}

func (pr *PDFRedactor) redact(ctx context.Context, inputPath, outputPath string, doc *engine.DocumentSession) ([]Annotation, error) {
	layouts, err := readLayout(inputPath)
	if err != nil {
		return nil, err
	}
	pdfCtx, err := api.ReadContextFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	blackbox := doc.Blackbox()
	var annotations []Annotation
	for i := range layouts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layout := &layouts[i]
		unit, err := doc.RedactUnit(ctx, layout.Text)
		if err != nil {
			return nil, err
		}
		if len(unit.Entities) == 0 {
			continue
		}

		subs := make(map[string]*substitution)
		for _, ent := range unit.Entities {
			original := layout.Text[ent.Start:ent.End]
			replacement := ent.Placeholder
			if blackbox {
				replacement = ""
			}
			pr.addSubstitution(subs, original, replacement, layout.Number)
		}

		pageAnnotations, err := pr.rewritePage(pdfCtx, layout, sortedSubs(subs), blackbox)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", layout.Number, err)
		}
		annotations = append(annotations, pageAnnotations...)
	}

	if err := api.WriteContextFile(pdfCtx, outputPath); err != nil {
		return nil, fmt.Errorf("failed to write redacted PDF: %w", err)
	}
	return annotations, nil
}

// UnredactDocument replaces every placeholder of mapping found in the
// content streams. Each replaced occurrence counts as one restoration.
func (pr *PDFRedactor) UnredactDocument(ctx context.Context, inputPath, outputPath string, mapping map[string]string) (int, error) {
	done := pr.observer.StartTiming(pr.GetComponentName(), "unredact_document", inputPath)

	restored, err := pr.unredact(ctx, inputPath, outputPath, mapping)
	if err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return 0, err
	}
	done(true, map[string]interface{}{"entities_restored": restored})
	return restored, nil
}

func (pr *PDFRedactor) unredact(ctx context.Context, inputPath, outputPath string, mapping map[string]string) (int, error) {
	pdfCtx, err := api.ReadContextFile(inputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF context: %w", err)
	}

	subs := make(map[string]*substitution, len(mapping))
	for ph, original := range mapping {
		pr.addSubstitution(subs, ph, original, 0)
	}
	ordered := sortedSubs(subs)

	restored := 0
	for page := 1; page <= pdfCtx.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		hits, err := rewriteStreams(pdfCtx, page, ordered, nil)
		if err != nil {
			return 0, fmt.Errorf("page %d: %w", page, err)
		}
		restored += len(hits)
	}

	if err := api.WriteContextFile(pdfCtx, outputPath); err != nil {
		return 0, fmt.Errorf("failed to write PDF: %w", err)
	}
	return restored, nil
}

func (pr *PDFRedactor) addSubstitution(subs map[string]*substitution, original, replacement string, page int) {
	if _, ok := subs[original]; ok {
		return
	}
	from, ok := encodeLatin1(original)
	to, ok2 := encodeLatin1(replacement)
	if !ok || !ok2 {
		pr.observer.Logger().Warn("value cannot be matched in a single-byte font",
			zap.Int("page", page), zap.Int("length", len(original)))
		return
	}
	subs[original] = &substitution{Original: original, Replacement: replacement, From: from, To: to}
}

func sortedSubs(subs map[string]*substitution) []*substitution {
	out := make([]*substitution, 0, len(subs))
	for _, s := range subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Original < out[j].Original })
	return out
}

// rewritePage rewrites one page and builds an annotation per replaced
// occurrence.
func (pr *PDFRedactor) rewritePage(pdfCtx *model.Context, layout *pageLayout, subs []*substitution, blackbox bool) ([]Annotation, error) {
	var runs []textRun
	hits, err := rewriteStreams(pdfCtx, layout.Number, subs, &runs)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int)
	annotations := make([]Annotation, 0, len(hits))
	var boxes []Rect
	for _, h := range hits {
		run := runs[h.Run]
		a := Annotation{
			Page:        layout.Number,
			Text:        h.Sub.Original,
			Replacement: h.Sub.Replacement,
			Font:        run.State.Font,
			FontSize:    run.State.Size,
			Color:       run.State.Color,
		}
		if rect, glyph, ok := layout.locate(h.Sub.Original, seen[h.Sub.Original]); ok {
			a.Rect = &rect
			if glyph.Font != "" {
				a.Font = glyph.Font
			}
			boxes = append(boxes, rect)
		}
		seen[h.Sub.Original]++
		annotations = append(annotations, a)

		pr.observer.Logger().Debug("pdf value replaced",
			zap.Int("page", a.Page),
			zap.String("replacement", a.Replacement),
			zap.String("font", a.Font),
			zap.Float64("font_size", a.FontSize),
			zap.Bool("located", a.Rect != nil))
	}

	if missing := countMissing(subs, hits); missing > 0 {
		pr.observer.Logger().Warn("detected values not found in page content streams",
			zap.Int("page", layout.Number), zap.Int("values", missing))
	}

	if blackbox && len(boxes) > 0 {
		if err := paintBoxes(pdfCtx, layout.Number, boxes); err != nil {
			return nil, err
		}
	}
	return annotations, nil
}

func countMissing(subs []*substitution, hits []hit) int {
	found := make(map[*substitution]bool, len(hits))
	for _, h := range hits {
		found[h.Sub] = true
	}
	return len(subs) - len(found)
}

// rewriteStreams applies subs to the content streams of a page. The runs
// scanned are appended to runs when it is not nil; hit indexes refer to it.
func rewriteStreams(pdfCtx *model.Context, page int, subs []*substitution, runs *[]textRun) ([]hit, error) {
	refs, err := contentRefs(pdfCtx, page)
	if err != nil {
		return nil, err
	}

	var (
		state   textState
		all     []textRun
		allHits []hit
	)
	for _, ref := range refs {
		entry, sd, err := streamEntry(pdfCtx, ref)
		if err != nil {
			return nil, err
		}
		streamRuns := scanRuns(sd.Content, &state)
		content, hits := rewriteRuns(sd.Content, streamRuns, subs)
		for _, h := range hits {
			h.Run += len(all)
			allHits = append(allHits, h)
		}
		all = append(all, streamRuns...)
		if hits == nil {
			continue
		}
		if err := storeStream(entry, sd, content); err != nil {
			return nil, err
		}
	}
	if runs != nil {
		*runs = all
	}
	return allHits, nil
}

// paintBoxes wraps the page content in a saved graphics state and paints
// opaque black rectangles in default user space after it.
func paintBoxes(pdfCtx *model.Context, page int, boxes []Rect) error {
	refs, err := contentRefs(pdfCtx, page)
	if err != nil || len(refs) == 0 {
		return err
	}

	firstEntry, first, err := streamEntry(pdfCtx, refs[0])
	if err != nil {
		return err
	}
	if err := storeStream(firstEntry, first, append([]byte("q\n"), first.Content...)); err != nil {
		return err
	}

	lastEntry, last, err := streamEntry(pdfCtx, refs[len(refs)-1])
	if err != nil {
		return err
	}
	content := append([]byte{}, last.Content...)
	content = append(content, "\nQ\nq 0 g\n"...)
	for _, b := range boxes {
		content = fmt.Appendf(content, "%.2f %.2f %.2f %.2f re f\n", b.X, b.Y, b.W, b.H)
	}
	content = append(content, "Q\n"...)
	return storeStream(lastEntry, last, content)
}

// contentRefs returns the content stream references of a page in order.
func contentRefs(pdfCtx *model.Context, page int) ([]types.IndirectRef, error) {
	d, _, _, err := pdfCtx.PageDict(page, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read page dict: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("page %d not found", page)
	}

	o, found := d.Find("Contents")
	if !found || o == nil {
		return nil, nil
	}

	var refs []types.IndirectRef
	switch obj := o.(type) {
	case types.IndirectRef:
		deref, err := pdfCtx.Dereference(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve page contents: %w", err)
		}
		if arr, ok := deref.(types.Array); ok {
			refs = appendRefs(refs, arr)
		} else {
			refs = append(refs, obj)
		}
	case types.Array:
		refs = appendRefs(refs, obj)
	}
	return refs, nil
}

func appendRefs(refs []types.IndirectRef, arr types.Array) []types.IndirectRef {
	for _, el := range arr {
		if ir, ok := el.(types.IndirectRef); ok {
			refs = append(refs, ir)
		}
	}
	return refs
}

func streamEntry(pdfCtx *model.Context, ref types.IndirectRef) (*model.XRefTableEntry, types.StreamDict, error) {
	entry, ok := pdfCtx.FindTableEntryForIndRef(&ref)
	if !ok || entry == nil {
		return nil, types.StreamDict{}, fmt.Errorf("content stream %s not found", ref)
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return nil, types.StreamDict{}, fmt.Errorf("object %s is not a stream", ref)
	}
	if err := sd.Decode(); err != nil {
		return nil, types.StreamDict{}, fmt.Errorf("failed to decode content stream %s: %w", ref, err)
	}
	return entry, sd, nil
}

func storeStream(entry *model.XRefTableEntry, sd types.StreamDict, content []byte) error {
	sd.Content = content
	if err := sd.Encode(); err != nil {
		return fmt.Errorf("failed to encode content stream: %w", err)
	}
	entry.Object = sd
	return nil
}
