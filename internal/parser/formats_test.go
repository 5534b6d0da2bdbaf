package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// writePDF builds a minimal PDF with one page per content stream.
func writePDF(t *testing.T, path string, contents ...string) {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(contents))
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(contents)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, content := range contents {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestExtract_PDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	writePDF(t, path,
		"BT /F1 12 Tf 72 720 Td (Hello PDF) Tj T* (second line) Tj ET",
		"",
		"BT /F1 12 Tf 72 720 Td (last page) Tj ET",
	)

	pages, err := (&Extractor{}).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "Hello PDF\nsecond line", pages[0].Text)
	assert.Equal(t, 1, pages[1].Number)
	assert.Empty(t, strings.TrimSpace(pages[1].Text), "a page without text stays empty")
	assert.Equal(t, "last page", pages[2].Text)
}

func TestExtract_NotAPDF(t *testing.T) {
	path := writeFile(t, "fake.pdf", "this is plain text with a pdf extension")
	_, err := (&Extractor{}).Extract(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open pdf")
}

func TestExtract_DOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "letter.docx")
	writeZip(t, path, map[string]string{
		"word/document.xml": `<w:document><w:body>` +
			`<w:p><w:r><w:t>مرحبا</w:t></w:r><w:r><w:t xml:space="preserve">بكم</w:t></w:r></w:p>` +
			`<w:p><w:r><w:t>Q&amp;A</w:t></w:r></w:p>` +
			`</w:body></w:document>`,
		"word/_rels/document.xml.rels": `<Relationships></Relationships>`,
	})

	pages, err := (&Extractor{}).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 0, pages[0].Number)
	assert.Equal(t, "مرحبا بكم \nQ&A", pages[0].Text)
}

func TestExtract_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.xlsx")

	f := xlsx.NewFile()
	for _, sheetName := range []string{"People", "Cities"} {
		sheet, err := f.AddSheet(sheetName)
		require.NoError(t, err)
		row := sheet.AddRow()
		row.AddCell().SetString("name")
		row.AddCell().SetString(strings.ToLower(sheetName))
	}
	require.NoError(t, f.Save(path))

	pages, err := (&Extractor{}).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "## Sheet: People\nname\tpeople\t\n", pages[0].Text)
	assert.Equal(t, 1, pages[1].Number)
	assert.Equal(t, "## Sheet: Cities\nname\tcities\t\n", pages[1].Text)
}

func TestExtract_XLSM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.xlsm")

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "item"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "cost"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "كتب"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 120))
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notes", "A1", "approved"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	pages, err := (&Extractor{}).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "## Sheet: Sheet1\nitem\tcost\t\nكتب\t120\t\n", pages[0].Text)
	assert.Equal(t, "## Sheet: Notes\napproved\t\n", pages[1].Text)
}

func TestSupportedExtensionsAreExtracted(t *testing.T) {
	dir := t.TempDir()
	for _, ext := range SupportedExtensions() {
		_, err := (&Extractor{}).Extract(context.Background(), filepath.Join(dir, "missing"+ext))
		require.Error(t, err, ext)
		assert.NotContains(t, err.Error(), "unsupported file format", ext)
	}

	_, err := (&Extractor{}).Extract(context.Background(), filepath.Join(dir, "missing.odt"))
	assert.ErrorContains(t, err, "unsupported file format")
}

func TestUnescapeXML(t *testing.T) {
	assert.Equal(t, `<a & "b">`, unescapeXML("&lt;a &amp; &quot;b&quot;&gt;"))
	assert.Equal(t, "اب", unescapeXML("&#1575;&#x628;"))
	assert.Equal(t, "it's", unescapeXML("it&apos;s"))
}
