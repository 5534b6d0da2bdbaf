// Package ocr wraps the tesseract and pdftoppm command line tools.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Engine recognizes the text of an image. Implementations never fail:
// unreadable images yield an empty string.
type Engine interface {
	ExtractText(ctx context.Context, imagePath string) string
}

// Rasterizer renders a single PDF page (0-based) to images in outDir.
type Rasterizer interface {
	RasterizePage(ctx context.Context, pdfPath string, page int, outDir string) ([]string, error)
}

type Tesseract struct {
	Binary   string
	Language string
}

func NewTesseract(binary, language string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "ara"
	}
	return &Tesseract{Binary: binary, Language: language}
}

// Available reports whether the tesseract binary is on PATH.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.Binary)
	return err == nil
}

func (t *Tesseract) ExtractText(ctx context.Context, imagePath string) string {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Binary, imagePath, "stdout", "-l", t.Language)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Error().Err(err).Str("image", imagePath).Str("stderr", stderr.String()).Msg("Error extracting text from image")
		return ""
	}
	return stdout.String()
}

type PdfToPPM struct {
	Binary string
	DPI    int
}

func NewPdfToPPM() *PdfToPPM {
	return &PdfToPPM{Binary: "pdftoppm", DPI: 300}
}

// Available reports whether pdftoppm is on PATH.
func (p *PdfToPPM) Available() bool {
	_, err := exec.LookPath(p.Binary)
	return err == nil
}

func (p *PdfToPPM) RasterizePage(ctx context.Context, pdfPath string, page int, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}

	n := strconv.Itoa(page + 1)
	prefix := filepath.Join(outDir, fmt.Sprintf("Image-%d", page))
	cmd := exec.CommandContext(ctx, p.Binary, "-png", "-r", strconv.Itoa(p.DPI), "-f", n, "-l", n, pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to rasterize page %d: %v: %s", page, err, out)
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return nil, err
	}
	sort.Strings(images)
	return images, nil
}
