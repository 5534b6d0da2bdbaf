package parser

import (
	"fmt"
	"strings"

	"docqa/internal/config"
	"docqa/internal/models"
	"docqa/internal/normalizer"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	defaultChunkSize    = 1200 // runes
	defaultChunkOverlap = 40   // runes
)

// Chunker splits normalized page text into overlapping page-tagged chunks.
type Chunker struct {
	ChunkSize    int
	ChunkOverlap int
	Strategy     string
	Normalize    normalizer.Options
}

// NewChunker builds a chunker from the rag section of the config.
func NewChunker(cfg *config.RAGConfig) *Chunker {
	c := &Chunker{
		ChunkSize:    defaultChunkSize,
		ChunkOverlap: defaultChunkOverlap,
		Strategy:     config.ChunkerWindow,
	}
	if cfg == nil {
		return c
	}
	if cfg.ChunkSize > 0 {
		c.ChunkSize = cfg.ChunkSize
	}
	if cfg.ChunkOverlap >= 0 && cfg.ChunkOverlap < c.ChunkSize {
		c.ChunkOverlap = cfg.ChunkOverlap
	}
	if cfg.Chunker != "" {
		c.Strategy = cfg.Chunker
	}
	c.Normalize.RemoveStopwords = cfg.RemoveStopwords
	return c
}

// ChunkPages normalizes every page and returns all chunks in document order.
// source prefixes the chunk ids.
func (c *Chunker) ChunkPages(source string, pages []models.Page) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for _, page := range pages {
		content := normalizer.NormalizeWith(page.Text, c.Normalize)
		if strings.TrimSpace(content) == "" {
			log.Debug().Int("page", page.Number).Msg("Skipping empty page")
			continue
		}

		pieces, err := c.split(content)
		if err != nil {
			return nil, fmt.Errorf("failed to split page %d: %w", page.Number, err)
		}
		for i, piece := range pieces {
			chunks = append(chunks, models.Chunk{
				ID:         fmt.Sprintf("%s-p%d-c%d", source, page.Number, i+1),
				Content:    piece,
				PageNumber: page.Number,
				ChunkID:    i + 1,
				Source:     source,
			})
		}
	}
	return chunks, nil
}

func (c *Chunker) split(content string) ([]string, error) {
	if c.Strategy == config.ChunkerRecursive {
		splitter := textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(c.ChunkSize),
			textsplitter.WithChunkOverlap(c.ChunkOverlap),
		)
		return splitter.SplitText(content)
	}
	return chunkContent(content, c.ChunkSize, c.ChunkOverlap), nil
}

// chunk content into windows of maxChars runes where each window repeats the
// last overlapChars runes of the previous one
func chunkContent(content string, maxChars, overlapChars int) []string {
	// Handle edge cases
	if maxChars <= 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}
	if len(content) == 0 {
		return nil
	}

	runes := []rune(content)
	contentLen := len(runes)
	if contentLen <= maxChars {
		return []string{content}
	}

	var chunks []string
	start := 0
	for {
		end := min(start+maxChars, contentLen)

		// prefer to end on a space within the last 10% of the window
		if end < contentLen {
			lookBack := maxChars / 10
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '.' {
					if i+1-overlapChars > start {
						end = i + 1
					}
					break
				}
			}
		}

		chunks = append(chunks, string(runes[start:end]))
		if end >= contentLen {
			break
		}
		start = end - overlapChars
	}

	return chunks
}

// MergeChunks rebuilds the text of consecutive chunks of one page by dropping
// the overlapping prefix of every chunk but the first.
func MergeChunks(chunks []string, overlapChars int) string {
	var content strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			runes := []rune(chunk)
			if len(runes) > overlapChars {
				chunk = string(runes[overlapChars:])
			} else {
				chunk = ""
			}
		}
		content.WriteString(chunk)
	}
	return content.String()
}
