// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redact-mcp/internal/engine"
)

// buildPDF returns a minimal PDF with one Helvetica page per content stream.
func buildPDF(pages ...string) []byte {
	var objs []string
	var kids bytes.Buffer
	for i := range pages {
		fmt.Fprintf(&kids, "%d 0 R ", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, content := range pages {
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func textPage(line string) string {
	return fmt.Sprintf("BT /F1 12 Tf 0 0 1 rg 72 720 Td (%s) Tj ET", line)
}

func writePDF(t *testing.T, dir, name string, pages ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buildPDF(pages...), 0600))
	return path
}

func pageContent(t *testing.T, path string, page int) string {
	t.Helper()
	pdfCtx, err := api.ReadContextFile(path)
	require.NoError(t, err)
	refs, err := contentRefs(pdfCtx, page)
	require.NoError(t, err)

	var out bytes.Buffer
	for _, ref := range refs {
		_, sd, err := streamEntry(pdfCtx, ref)
		require.NoError(t, err)
		out.Write(sd.Content)
	}
	return out.String()
}

func TestPDFRedactor_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := writePDF(t, dir, "report.pdf",
		textPage("Contact john@example.com"),
		textPage("Reach ann@corp.io"))

	e, err := engine.New()
	require.NoError(t, err)
	r := NewPDFRedactor(nil)
	doc := e.NewDocumentSession(nil, true)
	out := filepath.Join(dir, "report_redacted.pdf")
	require.NoError(t, r.RedactDocument(context.Background(), in, out, doc))

	page1 := pageContent(t, out, 1)
	assert.Contains(t, page1, "(Contact [EMAIL_ADDRESS_1]) Tj")
	assert.NotContains(t, page1, "john@example.com")
	assert.Contains(t, pageContent(t, out, 2), "(Reach [EMAIL_ADDRESS_2]) Tj")
	assert.Equal(t, 2, doc.EntitiesFound())

	mapping := e.Mappings(doc.SessionID())
	assert.Equal(t, map[string]string{
		"[EMAIL_ADDRESS_1]": "john@example.com",
		"[EMAIL_ADDRESS_2]": "ann@corp.io",
	}, mapping)

	back := filepath.Join(dir, "report_redacted_unredacted.pdf")
	n, err := r.UnredactDocument(context.Background(), out, back, mapping)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, pageContent(t, back, 1), "(Contact john@example.com) Tj")
	assert.Contains(t, pageContent(t, back, 2), "(Reach ann@corp.io) Tj")
}

func TestPDFRedactor_Annotations(t *testing.T) {
	dir := t.TempDir()
	in := writePDF(t, dir, "one.pdf", textPage("Contact john@example.com"))

	e, err := engine.New()
	require.NoError(t, err)
	annotations, err := NewPDFRedactor(nil).redact(context.Background(), in,
		filepath.Join(dir, "one_redacted.pdf"), e.NewDocumentSession(nil, true))
	require.NoError(t, err)

	require.Len(t, annotations, 1)
	a := annotations[0]
	assert.Equal(t, 1, a.Page)
	assert.Equal(t, "john@example.com", a.Text)
	assert.Equal(t, "[EMAIL_ADDRESS_1]", a.Replacement)
	assert.Equal(t, 12.0, a.FontSize)
	assert.Equal(t, "0 0 1 rg", a.Color)
	assert.NotEmpty(t, a.Font)
	require.NotNil(t, a.Rect)
	assert.Greater(t, a.Rect.W, 0.0)
	assert.Greater(t, a.Rect.H, 0.0)
}

func TestPDFRedactor_Blackbox(t *testing.T) {
	dir := t.TempDir()
	in := writePDF(t, dir, "memo.pdf", textPage("Contact john@example.com"))

	e, err := engine.New()
	require.NoError(t, err)
	doc := e.NewDocumentSession(nil, false)
	out := filepath.Join(dir, "memo_redacted.pdf")
	require.NoError(t, NewPDFRedactor(nil).RedactDocument(context.Background(), in, out, doc))

	content := pageContent(t, out, 1)
	assert.NotContains(t, content, "john@example.com")
	assert.Contains(t, content, "(Contact ) Tj")
	assert.Contains(t, content, " re f")
	assert.Empty(t, doc.SessionID())
}

func TestPDFRedactor_NoEntitiesCopiesPages(t *testing.T) {
	dir := t.TempDir()
	in := writePDF(t, dir, "clean.pdf", textPage("Quarterly numbers"))

	e, err := engine.New()
	require.NoError(t, err)
	out := filepath.Join(dir, "clean_redacted.pdf")
	require.NoError(t, NewPDFRedactor(nil).RedactDocument(context.Background(), in, out, e.NewDocumentSession(nil, true)))
	assert.Contains(t, pageContent(t, out, 1), "(Quarterly numbers) Tj")
}

func TestPDFRedactor_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(in, []byte("not a pdf"), 0600))

	e, err := engine.New()
	require.NoError(t, err)
	err = NewPDFRedactor(nil).RedactDocument(context.Background(), in, filepath.Join(dir, "out.pdf"), e.NewDocumentSession(nil, true))
	assert.Error(t, err)
}
