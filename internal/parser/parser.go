package parser

import (
	"archive/zip"
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"docqa/internal/models"
	"docqa/internal/ocr"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// Extractor turns a document file into page texts. OCR and Rasterizer are
// optional; without them scanned pages stay empty.
type Extractor struct {
	OCR        ocr.Engine
	Rasterizer ocr.Rasterizer
	ImageDir   string
}

var (
	slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	docxRunRe   = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>|</w:p>`)
	pptxRunRe   = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>|</a:p>`)
)

// SupportedExtensions lists the file types Extract understands.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".pptx", ".xlsx", ".xlsm", ".xltx", ".txt", ".md"}
}

// Extract returns the pages of the document at filePath in order. A page
// that yields no text is kept as an empty page.
func (e *Extractor) Extract(ctx context.Context, filePath string) ([]models.Page, error) {
	var (
		pages []models.Page
		err   error
	)

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		pages, err = parsePDF(filePath)
	case ".docx":
		pages, err = parseDOCX(filePath)
	case ".pptx":
		pages, err = parsePPTX(filePath)
	case ".xlsx":
		pages, err = parseXLSX(filePath)
	case ".xlsm", ".xltx":
		pages, err = parseExcelize(filePath)
	case ".txt":
		pages, err = parseText(filePath)
	case ".md":
		pages, err = parseMarkdown(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case ext == ".pdf":
		e.rasterizeEmptyPages(ctx, filePath, pages)
	case (ext == ".docx" || ext == ".pptx") && e.OCR != nil:
		if err := attachOfficeImages(filePath, e.ImageDir, pages); err != nil {
			log.Warn().Err(err).Str("file", filePath).Msg("Error extracting embedded images")
		}
	}
	e.ocrPages(ctx, pages)
	return pages, nil
}

func (e *Extractor) rasterizeEmptyPages(ctx context.Context, filePath string, pages []models.Page) {
	if e.Rasterizer == nil || e.OCR == nil {
		return
	}
	for i := range pages {
		if strings.TrimSpace(pages[i].Text) != "" {
			continue
		}
		images, err := e.Rasterizer.RasterizePage(ctx, filePath, pages[i].Number, e.ImageDir)
		if err != nil {
			log.Warn().Err(err).Int("page", pages[i].Number).Msg("Error rasterizing page")
			continue
		}
		pages[i].Images = append(pages[i].Images, images...)
	}
}

// ocrPages appends the recognized text of every page image to its page.
func (e *Extractor) ocrPages(ctx context.Context, pages []models.Page) {
	if e.OCR == nil {
		return
	}
	for i := range pages {
		for _, img := range pages[i].Images {
			text := strings.TrimSpace(e.OCR.ExtractText(ctx, img))
			if text == "" {
				continue
			}
			if pages[i].Text != "" {
				pages[i].Text += "\n"
			}
			pages[i].Text += text
		}
	}
}

func parsePDF(filePath string) ([]models.Page, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]models.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		pages = append(pages, models.Page{Number: i - 1, Text: pdfPageText(reader, i)})
	}
	return pages, nil
}

// pdfPageText never fails the document: a broken page is logged and left empty.
func pdfPageText(reader *pdf.Reader, i int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Int("page", i).Msg("Error extracting page text")
			text = ""
		}
	}()

	page := reader.Page(i)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		log.Warn().Err(err).Int("page", i).Msg("Error extracting page text")
		return ""
	}
	return text
}

func parseDOCX(filePath string) ([]models.Page, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	// DOCX has no page numbers
	content := r.Editable().GetContent()
	return []models.Page{{Number: 0, Text: extractTextFromXML(content, docxRunRe)}}, nil
}

func parsePPTX(filePath string) ([]models.Page, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pptx: %w", err)
	}
	defer f.Close()

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range f.File {
		m := slideNameRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		rc, err := file.Open()
		if err != nil {
			log.Warn().Err(err).Str("slide", file.Name).Msg("Error opening slide")
			slides = append(slides, slide{num: num})
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			log.Warn().Err(err).Str("slide", file.Name).Msg("Error reading slide")
			slides = append(slides, slide{num: num})
			continue
		}
		slides = append(slides, slide{num: num, text: extractTextFromXML(string(data), pptxRunRe)})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	pages := make([]models.Page, len(slides))
	for i, s := range slides {
		pages[i] = models.Page{Number: i, Text: s.text}
	}
	return pages, nil
}

// each sheet is a page
func parseXLSX(filePath string) ([]models.Page, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}

	pages := make([]models.Page, 0, len(f.Sheets))
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, models.Page{Number: sheetNum, Text: text.String()})
	}
	return pages, nil
}

func parseExcelize(filePath string) ([]models.Page, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var pages []models.Page
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			log.Warn().Err(err).Str("sheet", sheetName).Msg("Error reading sheet")
			pages = append(pages, models.Page{Number: sheetNum})
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, models.Page{Number: sheetNum, Text: text.String()})
	}
	return pages, nil
}

// parseText splits plain text on form feeds, the page break pdftotext emits.
func parseText(filePath string) ([]models.Page, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return SplitPages(string(data)), nil
}

// SplitPages turns form-feed separated text into pages.
func SplitPages(content string) []models.Page {
	parts := strings.Split(content, "\f")
	pages := make([]models.Page, len(parts))
	for i, p := range parts {
		pages[i] = models.Page{Number: i, Text: p}
	}
	return pages
}

func extractTextFromXML(xmlContent string, runRe *regexp.Regexp) string {
	var text strings.Builder
	for _, m := range runRe.FindAllStringSubmatch(xmlContent, -1) {
		if m[1] == "" && strings.HasPrefix(m[0], "</") {
			text.WriteString("\n")
			continue
		}
		text.WriteString(unescapeXML(m[1]))
		text.WriteString(" ")
	}
	return strings.TrimSpace(text.String())
}

// unescapeXML resolves named and numeric character references.
func unescapeXML(s string) string {
	return html.UnescapeString(s)
}
