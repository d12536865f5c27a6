// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package office

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"redact-mcp/internal/engine"
	"redact-mcp/internal/observability"
	"redact-mcp/internal/placeholder"
)

// XlsxRedactor redacts Excel workbooks. Every string cell is a unit;
// numbers, dates, booleans and formulas are left alone.
type XlsxRedactor struct {
	observer *observability.StandardObserver
}

// NewXlsxRedactor creates a new XlsxRedactor
func NewXlsxRedactor(observer *observability.StandardObserver) *XlsxRedactor {
	if observer == nil {
		observer = observability.NewNopObserver()
	}
	return &XlsxRedactor{observer: observer}
}

// GetName returns the name of the redactor
func (r *XlsxRedactor) GetName() string {
	return "xlsx_redactor"
}

// GetSupportedTypes returns the file types this redactor can handle
func (r *XlsxRedactor) GetSupportedTypes() []string {
	return []string{".xlsx"}
}

// GetComponentName returns the component name for observability
func (r *XlsxRedactor) GetComponentName() string {
	return "xlsx_redactor"
}

// stringCell is a string cell of a worksheet. Runs holds its rich-text runs
// when it has more than one.
type stringCell struct {
	Sheet string
	Name  string
	Value string
	Runs  []excelize.RichTextRun
}

// RedactDocument redacts every string cell of inputPath.
func (r *XlsxRedactor) RedactDocument(ctx context.Context, inputPath, outputPath string, doc *engine.DocumentSession) error {
	done := r.observer.StartTiming(r.GetComponentName(), "redact_document", inputPath)

	err := r.rewrite(ctx, inputPath, outputPath, func(f *excelize.File, c stringCell) error {
		unit, err := doc.RedactUnit(ctx, c.Value)
		if err != nil || len(unit.Entities) == 0 {
			return err
		}
		if c.Runs != nil {
			if remapped, ok := placeholder.RemapFragments(c.Value, runTexts(c.Runs), unit.Entities); ok {
				return f.SetCellRichText(c.Sheet, c.Name, withTexts(c.Runs, remapped))
			}
		}
		return f.SetCellStr(c.Sheet, c.Name, unit.Text)
	})
	if err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return err
	}
	done(true, map[string]interface{}{"entities": doc.EntitiesFound()})
	return nil
}

// UnredactDocument restores placeholders in every string cell.
func (r *XlsxRedactor) UnredactDocument(ctx context.Context, inputPath, outputPath string, mapping map[string]string) (int, error) {
	done := r.observer.StartTiming(r.GetComponentName(), "unredact_document", inputPath)

	restored := 0
	err := r.rewrite(ctx, inputPath, outputPath, func(f *excelize.File, c stringCell) error {
		if c.Runs != nil {
			out, n, ok := placeholder.RestoreFragments(runTexts(c.Runs), mapping)
			if n == 0 {
				return nil
			}
			restored += n
			if ok {
				return f.SetCellRichText(c.Sheet, c.Name, withTexts(c.Runs, out))
			}
			text, _ := placeholder.Restore(c.Value, mapping)
			return f.SetCellStr(c.Sheet, c.Name, text)
		}

		text, n := placeholder.Restore(c.Value, mapping)
		if n == 0 {
			return nil
		}
		restored += n
		return f.SetCellStr(c.Sheet, c.Name, text)
	})
	if err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return 0, err
	}
	done(true, map[string]interface{}{"entities_restored": restored})
	return restored, nil
}

func (r *XlsxRedactor) rewrite(ctx context.Context, inputPath, outputPath string, edit func(*excelize.File, stringCell) error) error {
	f, err := excelize.OpenFile(inputPath)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	cells, err := stringCells(f)
	if err != nil {
		return err
	}
	for _, c := range cells {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := edit(f, c); err != nil {
			return fmt.Errorf("%s!%s: %w", c.Sheet, c.Name, err)
		}
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// stringCells lists the string cells of every sheet, row by row.
func stringCells(f *excelize.File) ([]stringCell, error) {
	var cells []stringCell
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for ri, row := range rows {
			for ci, formatted := range row {
				if formatted == "" {
					continue
				}
				name, err := excelize.CoordinatesToCellName(ci+1, ri+1)
				if err != nil {
					return nil, err
				}
				c, ok, err := readStringCell(f, sheet, name)
				if err != nil {
					return nil, fmt.Errorf("%s!%s: %w", sheet, name, err)
				}
				if ok {
					cells = append(cells, c)
				}
			}
		}
	}
	return cells, nil
}

func readStringCell(f *excelize.File, sheet, name string) (stringCell, bool, error) {
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return stringCell{}, false, err
	}
	if typ != excelize.CellTypeSharedString && typ != excelize.CellTypeInlineString {
		return stringCell{}, false, nil
	}
	if formula, _ := f.GetCellFormula(sheet, name); formula != "" {
		return stringCell{}, false, nil
	}

	value, err := f.GetCellValue(sheet, name, excelize.Options{RawCellValue: true})
	if err != nil {
		return stringCell{}, false, err
	}
	c := stringCell{Sheet: sheet, Name: name, Value: value}

	runs, err := f.GetCellRichText(sheet, name)
	if err != nil {
		return stringCell{}, false, err
	}
	if styledRuns(runs) {
		c.Runs = runs
	}
	return c, true, nil
}

// styledRuns reports whether runs carry formatting that SetCellStr would
// lose. A plain string reads back as one run without a font.
func styledRuns(runs []excelize.RichTextRun) bool {
	return len(runs) > 1 || (len(runs) == 1 && runs[0].Font != nil)
}

func runTexts(runs []excelize.RichTextRun) []string {
	out := make([]string, len(runs))
	for i, run := range runs {
		out[i] = run.Text
	}
	return out
}

// withTexts copies runs with new texts, dropping runs left empty.
func withTexts(runs []excelize.RichTextRun, texts []string) []excelize.RichTextRun {
	out := make([]excelize.RichTextRun, 0, len(runs))
	for i, run := range runs {
		if texts[i] == "" {
			continue
		}
		run.Text = texts[i]
		out = append(out, run)
	}
	if len(out) == 0 {
		out = append(out, excelize.RichTextRun{Font: runs[0].Font})
	}
	return out
}
