// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"redact-mcp/internal/engine"
	"redact-mcp/internal/redactors"
)

// printer renders command results. Colors are used only on a terminal.
type printer struct {
	w      io.Writer
	colors map[string]*color.Color
}

func newPrinter(w io.Writer, noColor bool) *printer {
	p := &printer{
		w: w,
		colors: map[string]*color.Color{
			"header":      color.New(color.FgBlue, color.Bold),
			"placeholder": color.New(color.FgCyan),
			"entity":      color.New(color.FgYellow),
			"path":        color.New(color.FgGreen),
			"muted":       color.New(color.FgWhite, color.Faint),
		},
	}

	enabled := !noColor
	if f, ok := w.(*os.File); !ok || !isTerminal(f) {
		enabled = false
	}
	for _, c := range p.colors {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) plain(s string) {
	fmt.Fprintln(p.w, s)
}

func (p *printer) field(name, value string) {
	p.colors["header"].Fprintf(p.w, "%s: ", name)
	fmt.Fprintln(p.w, value)
}

func (p *printer) list(title string, items []string) {
	p.colors["header"].Fprintln(p.w, title+":")
	if len(items) == 0 {
		p.colors["muted"].Fprintln(p.w, "  (none)")
		return
	}
	for _, item := range items {
		fmt.Fprintf(p.w, "  %s\n", item)
	}
}

func (p *printer) redaction(res engine.RedactResult, mapping map[string]string) {
	fmt.Fprintln(p.w, strings.TrimRight(res.RedactedText, "\n"))
	fmt.Fprintln(p.w)
	p.field("Session", res.SessionID)
	p.field("Entities found", fmt.Sprint(res.EntitiesFound))
	p.mapping(mapping)
}

func (p *printer) fileRedaction(res *redactors.RedactFileResult, mapping map[string]string) {
	p.colors["header"].Fprint(p.w, "Redacted file: ")
	p.colors["path"].Fprintln(p.w, res.RedactedFilePath)
	if res.SessionID != "" {
		p.field("Session", res.SessionID)
	}
	p.field("Entities found", fmt.Sprint(res.EntitiesFound))
	p.mapping(mapping)
}

func (p *printer) mapping(mapping map[string]string) {
	if len(mapping) == 0 {
		return
	}
	placeholders := make([]string, 0, len(mapping))
	for ph := range mapping {
		placeholders = append(placeholders, ph)
	}
	slices.Sort(placeholders)

	fmt.Fprintln(p.w)
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	p.colors["header"].Fprintln(tw, "  PLACEHOLDER\tORIGINAL")
	for _, ph := range placeholders {
		fmt.Fprintf(tw, "  %s\t%s\n", p.colors["placeholder"].Sprint(ph), mapping[ph])
	}
	_ = tw.Flush()
}

func (p *printer) analysis(res engine.AnalyzeResult) {
	if len(res.Entities) == 0 {
		p.colors["muted"].Fprintln(p.w, "No personal data found.")
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	p.colors["header"].Fprintln(tw, "TYPE\tSTART\tEND\tSCORE\tTEXT")
	for _, e := range res.Entities {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%s\n", p.colors["entity"].Sprint(e.Type), e.Start, e.End, e.Score, e.Text)
	}
	_ = tw.Flush()
}
