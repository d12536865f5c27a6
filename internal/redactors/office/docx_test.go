// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package office

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redact-mcp/internal/engine"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func writeDocx(t *testing.T, path string, parts map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	names := []string{"[Content_Types].xml", "word/document.xml"}
	for name := range parts {
		if name != "word/document.xml" {
			names = append(names, name)
		}
	}
	parts["[Content_Types].xml"] = `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(parts[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func body(paragraphs string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:document ` + wordNS + `><w:body>` + paragraphs + `</w:body></w:document>`
}

// partRuns returns the w:t texts of each paragraph of a part.
func partRuns(t *testing.T, path, part string) [][]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != part {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)

		doc := etree.NewDocument()
		require.NoError(t, doc.ReadFromBytes(data))
		var out [][]string
		for _, p := range doc.FindElements("//w:p") {
			var texts []string
			for _, el := range paragraphText(p) {
				texts = append(texts, el.Text())
			}
			out = append(out, texts)
		}
		return out
	}
	t.Fatalf("part %s not found", part)
	return nil
}

func TestDocxRedactor_CrossRunAndHeaders(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "letter.docx")
	writeDocx(t, in, map[string]string{
		"word/document.xml": body(
			`<w:p><w:r><w:t xml:space="preserve">Contact john@exa</w:t></w:r><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">mple.com today</w:t></w:r></w:p>` +
				`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>server 10.1.2.3</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
				`<w:p><w:r><w:t>Nothing here</w:t></w:r></w:p>`),
		"word/header1.xml": `<?xml version="1.0" encoding="UTF-8"?><w:hdr ` + wordNS + `><w:p><w:r><w:t>From ann@corp.io</w:t></w:r></w:p></w:hdr>`,
	})

	e, err := engine.New()
	require.NoError(t, err)
	r := NewDocxRedactor(nil)
	doc := e.NewDocumentSession(nil, true)
	out := filepath.Join(dir, "letter_redacted.docx")
	require.NoError(t, r.RedactDocument(context.Background(), in, out, doc))

	assert.Equal(t, [][]string{
		{"Contact [EMAIL_ADDRESS_1]", " today"},
		{"server [IP_ADDRESS_1]"},
		{"Nothing here"},
	}, partRuns(t, out, "word/document.xml"))
	// The header's email would also be [EMAIL_ADDRESS_1] on its own.
	assert.Equal(t, [][]string{{"From [EMAIL_ADDRESS_2]"}}, partRuns(t, out, "word/header1.xml"))
	assert.Equal(t, 3, doc.EntitiesFound())

	mapping := e.Mappings(doc.SessionID())
	assert.Equal(t, "john@example.com", mapping["[EMAIL_ADDRESS_1]"])
	assert.Equal(t, "ann@corp.io", mapping["[EMAIL_ADDRESS_2]"])

	back := filepath.Join(dir, "letter_redacted_unredacted.docx")
	n, err := r.UnredactDocument(context.Background(), out, back, mapping)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, [][]string{
		{"Contact john@example.com", " today"},
		{"server 10.1.2.3"},
		{"Nothing here"},
	}, partRuns(t, back, "word/document.xml"))
	assert.Equal(t, [][]string{{"From ann@corp.io"}}, partRuns(t, back, "word/header1.xml"))
}

func TestDocxRedactor_UnredactStraddlingPlaceholder(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "edited.docx")
	// An editor split the placeholder across runs.
	writeDocx(t, in, map[string]string{
		"word/document.xml": body(`<w:p><w:r><w:t>Mail [EMAIL_</w:t></w:r><w:r><w:t>ADDRESS_1] now</w:t></w:r></w:p>`),
	})

	out := filepath.Join(dir, "edited_unredacted.docx")
	n, err := NewDocxRedactor(nil).UnredactDocument(context.Background(), in, out,
		map[string]string{"[EMAIL_ADDRESS_1]": "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, [][]string{{"Mail a@b.com now", ""}}, partRuns(t, out, "word/document.xml"))
}

func TestDocxRedactor_Blackbox(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "memo.docx")
	writeDocx(t, in, map[string]string{
		"word/document.xml": body(`<w:p><w:r><w:t>Reach zoe@mail.de</w:t></w:r></w:p>`),
	})

	e, err := engine.New()
	require.NoError(t, err)
	doc := e.NewDocumentSession(nil, false)
	out := filepath.Join(dir, "memo_redacted.docx")
	require.NoError(t, NewDocxRedactor(nil).RedactDocument(context.Background(), in, out, doc))

	assert.Equal(t, [][]string{{"Reach " + strings.Repeat(engine.BlackboxRune, 11)}}, partRuns(t, out, "word/document.xml"))
	assert.Empty(t, doc.SessionID())
}

func TestDocxRedactor_NotAWordDocument(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "fake.docx")
	require.NoError(t, os.WriteFile(in, []byte("plain text"), 0600))

	e, err := engine.New()
	require.NoError(t, err)
	err = NewDocxRedactor(nil).RedactDocument(context.Background(), in, filepath.Join(dir, "out.docx"), e.NewDocumentSession(nil, true))
	assert.Error(t, err)
}

func TestTextParts(t *testing.T) {
	got := textParts([]string{
		"[Content_Types].xml", "word/footer1.xml", "word/styles.xml",
		"word/header2.xml", "word/document.xml", "word/header1.xml", "docProps/core.xml",
	})
	assert.Equal(t, []string{"word/document.xml", "word/footer1.xml", "word/header1.xml", "word/header2.xml"}, got)
}
