// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package office redacts Word and Excel documents. Word packages are edited
// in place at the XML level so that run formatting survives; workbooks go
// through excelize.
package office

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"redact-mcp/internal/engine"
	"redact-mcp/internal/observability"
	"redact-mcp/internal/placeholder"
)

// wordTextPart matches the package parts that carry paragraphs.
var wordTextPart = regexp.MustCompile(`^word/(document|header\d*|footer\d*|footnotes|endnotes)\.xml$`)

// DocxRedactor redacts Word documents paragraph by paragraph, including
// table cells, headers and footers.
type DocxRedactor struct {
	observer *observability.StandardObserver
}

// NewDocxRedactor creates a new DocxRedactor
func NewDocxRedactor(observer *observability.StandardObserver) *DocxRedactor {
	if observer == nil {
		observer = observability.NewNopObserver()
	}
	return &DocxRedactor{observer: observer}
}

// GetName returns the name of the redactor
func (r *DocxRedactor) GetName() string {
	return "docx_redactor"
}

// GetSupportedTypes returns the file types this redactor can handle
func (r *DocxRedactor) GetSupportedTypes() []string {
	return []string{".docx"}
}

// GetComponentName returns the component name for observability
func (r *DocxRedactor) GetComponentName() string {
	return "docx_redactor"
}

// paragraphEdit receives the w:t texts of one paragraph and returns their
// replacements, or nil to leave the paragraph untouched.
type paragraphEdit func(fragments []string) ([]string, error)

// RedactDocument redacts every paragraph of inputPath as one unit.
func (r *DocxRedactor) RedactDocument(ctx context.Context, inputPath, outputPath string, doc *engine.DocumentSession) error {
	done := r.observer.StartTiming(r.GetComponentName(), "redact_document", inputPath)

	collapsed := 0
	err := r.rewrite(ctx, inputPath, outputPath, func(fragments []string) ([]string, error) {
		text := strings.Join(fragments, "")
		unit, err := doc.RedactUnit(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(unit.Entities) == 0 {
			return nil, nil
		}
		if remapped, ok := placeholder.RemapFragments(text, fragments, unit.Entities); ok {
			return remapped, nil
		}
		collapsed++
		return placeholder.CollapseFragments(unit.Text, len(fragments)), nil
	})
	if err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return err
	}
	done(true, map[string]interface{}{
		"entities":             doc.EntitiesFound(),
		"collapsed_paragraphs": collapsed,
	})
	return nil
}

// UnredactDocument restores placeholders run by run. A paragraph where a
// placeholder straddles runs is restored whole into its first run.
func (r *DocxRedactor) UnredactDocument(ctx context.Context, inputPath, outputPath string, mapping map[string]string) (int, error) {
	done := r.observer.StartTiming(r.GetComponentName(), "unredact_document", inputPath)

	restored := 0
	err := r.rewrite(ctx, inputPath, outputPath, func(fragments []string) ([]string, error) {
		out, n, ok := placeholder.RestoreFragments(fragments, mapping)
		restored += n
		if n == 0 {
			return nil, nil
		}
		if ok {
			return out, nil
		}
		text, _ := placeholder.Restore(strings.Join(fragments, ""), mapping)
		return placeholder.CollapseFragments(text, len(fragments)), nil
	})
	if err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return 0, err
	}
	done(true, map[string]interface{}{"entities_restored": restored})
	return restored, nil
}

func (r *DocxRedactor) rewrite(ctx context.Context, inputPath, outputPath string, edit paragraphEdit) error {
	pkg, err := readZip(inputPath)
	if err != nil {
		return err
	}
	if _, ok := pkg.files["word/document.xml"]; !ok {
		return fmt.Errorf("%s is not a Word document: word/document.xml missing", inputPath)
	}

	for _, name := range textParts(pkg.names()) {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, changed, err := editPart(pkg.files[name], edit)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if changed {
			pkg.files[name] = content
		}
	}
	return pkg.write(outputPath)
}

// textParts orders the paragraph-bearing parts: the body first, then the
// rest by name.
func textParts(names []string) []string {
	var parts []string
	for _, name := range names {
		if wordTextPart.MatchString(name) {
			parts = append(parts, name)
		}
	}
	sort.SliceStable(parts, func(i, j int) bool {
		bi, bj := parts[i] == "word/document.xml", parts[j] == "word/document.xml"
		if bi != bj {
			return bi
		}
		return parts[i] < parts[j]
	})
	return parts
}

func editPart(content []byte, edit paragraphEdit) ([]byte, bool, error) {
	xmlDoc := etree.NewDocument()
	if err := xmlDoc.ReadFromBytes(content); err != nil {
		return nil, false, fmt.Errorf("parse XML: %w", err)
	}

	changed := false
	for _, p := range xmlDoc.FindElements("//w:p") {
		runs := paragraphText(p)
		if len(runs) == 0 {
			continue
		}
		fragments := make([]string, len(runs))
		for i, t := range runs {
			fragments[i] = t.Text()
		}

		replaced, err := edit(fragments)
		if err != nil {
			return nil, false, err
		}
		if replaced == nil {
			continue
		}
		for i, t := range runs {
			if replaced[i] == fragments[i] {
				continue
			}
			t.SetText(replaced[i])
			t.CreateAttr("xml:space", "preserve")
			changed = true
		}
	}
	if !changed {
		return content, false, nil
	}

	out, err := xmlDoc.WriteToBytes()
	if err != nil {
		return nil, false, fmt.Errorf("serialize XML: %w", err)
	}
	return out, true, nil
}

// paragraphText returns the w:t elements owned by p. Text of paragraphs
// nested in p (text boxes) belongs to those paragraphs.
func paragraphText(p *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, t := range p.FindElements(".//w:t") {
		if owningParagraph(t) == p {
			out = append(out, t)
		}
	}
	return out
}

func owningParagraph(e *etree.Element) *etree.Element {
	for parent := e.Parent(); parent != nil; parent = parent.Parent() {
		if parent.Space == "w" && parent.Tag == "p" {
			return parent
		}
	}
	return nil
}
