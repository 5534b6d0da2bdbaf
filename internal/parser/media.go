package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"docqa/internal/models"

	"github.com/rs/zerolog/log"
)

var (
	relationshipRe = regexp.MustCompile(`<Relationship\s[^>]*>`)
	relTargetRe    = regexp.MustCompile(`Target="([^"]+)"`)
	relTypeRe      = regexp.MustCompile(`Type="([^"]+)"`)
)

// formats tesseract can read
var ocrImageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".bmp": true, ".gif": true,
}

// attachOfficeImages copies the pictures embedded in a docx or pptx into
// outDir and adds them to the page showing them: the slide that references
// them, or the single page of a docx.
func attachOfficeImages(filePath, outDir string, pages []models.Page) error {
	if len(pages) == 0 {
		return nil
	}

	f, err := zip.OpenReader(filePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	files := make(map[string]*zip.File, len(f.File))
	for _, file := range f.File {
		files[file.Name] = file
	}

	prefix := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".docx":
		var media []string
		for name := range files {
			if strings.HasPrefix(name, "word/media/") && ocrImageExts[strings.ToLower(path.Ext(name))] {
				media = append(media, name)
			}
		}
		sort.Strings(media)
		for _, name := range media {
			if out, err := copyZipFile(files[name], outDir, prefix+"-"+path.Base(name)); err == nil {
				pages[0].Images = append(pages[0].Images, out)
			} else {
				log.Warn().Err(err).Str("image", name).Msg("Error extracting image")
			}
		}
	case ".pptx":
		for i, num := range slideNumbers(files) {
			if i >= len(pages) {
				break
			}
			for _, name := range slideImages(files, num) {
				out, err := copyZipFile(files[name], outDir, fmt.Sprintf("%s-s%d-%s", prefix, num, path.Base(name)))
				if err != nil {
					log.Warn().Err(err).Str("image", name).Msg("Error extracting image")
					continue
				}
				pages[i].Images = append(pages[i].Images, out)
			}
		}
	}
	return nil
}

func slideNumbers(files map[string]*zip.File) []int {
	var nums []int
	for name := range files {
		if m := slideNameRe.FindStringSubmatch(name); m != nil {
			n, _ := strconv.Atoi(m[1])
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}

// slideImages resolves the image relationships of one slide to archive paths.
func slideImages(files map[string]*zip.File, num int) []string {
	rels, ok := files[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", num)]
	if !ok {
		return nil
	}
	data, err := readZipFile(rels)
	if err != nil {
		log.Warn().Err(err).Int("slide", num).Msg("Error reading slide relationships")
		return nil
	}

	var images []string
	for _, rel := range relationshipRe.FindAllString(string(data), -1) {
		typ := relTypeRe.FindStringSubmatch(rel)
		target := relTargetRe.FindStringSubmatch(rel)
		if typ == nil || target == nil || !strings.HasSuffix(typ[1], "/image") {
			continue
		}
		name := path.Clean(path.Join("ppt/slides", target[1]))
		if _, ok := files[name]; ok && ocrImageExts[strings.ToLower(path.Ext(name))] {
			images = append(images, name)
		}
	}
	return images
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func copyZipFile(file *zip.File, outDir, name string) (string, error) {
	data, err := readZipFile(file)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(outDir, name)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", err
	}
	return out, nil
}
