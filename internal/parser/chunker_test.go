package parser

import (
	"strings"
	"testing"

	"docqa/internal/config"
	"docqa/internal/models"
	"docqa/internal/normalizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkContent_Coverage(t *testing.T) {
	words := strings.Fields(strings.Repeat("القاهرة عاصمة مصر وتقع على ضفاف نهر النيل. ", 120))
	content := strings.Join(words, " ")

	tests := []struct {
		name          string
		size, overlap int
	}{
		{"defaults", 1200, 40},
		{"small windows", 100, 10},
		{"no overlap", 250, 0},
		{"large overlap", 60, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunkContent(content, tt.size, tt.overlap)
			require.NotEmpty(t, chunks)
			for _, c := range chunks {
				assert.LessOrEqual(t, len([]rune(c)), tt.size)
			}
			assert.Equal(t, content, MergeChunks(chunks, tt.overlap))
		})
	}
}

func TestChunkContent_Overlap(t *testing.T) {
	content := strings.Repeat("x", 250)
	chunks := chunkContent(content, 100, 20)
	require.Len(t, chunks, 3)
	assert.Equal(t, chunks[0][80:], chunks[1][:20])
	assert.Equal(t, chunks[1][80:], chunks[2][:20])
}

func TestChunkContent_EdgeCases(t *testing.T) {
	assert.Nil(t, chunkContent("", 100, 10))
	assert.Nil(t, chunkContent("abc", 0, 10))
	assert.Equal(t, []string{"short"}, chunkContent("short", 100, 10))
}

func TestChunkPages(t *testing.T) {
	pages := []models.Page{
		{Number: 0, Text: strings.Repeat("الصفحة الأولى تتحدث عن الزراعة. ", 30)},
		{Number: 1, Text: ""},
		{Number: 2, Text: "   \n\t "},
		{Number: 3, Text: strings.Repeat("the capital is Cairo. ", 40)},
	}
	chunker := NewChunker(&config.RAGConfig{ChunkSize: 200, ChunkOverlap: 20, Chunker: config.ChunkerWindow})

	chunks, err := chunker.ChunkPages("doc", pages)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	last := -1
	byPage := map[int][]string{}
	for _, c := range chunks {
		assert.GreaterOrEqual(t, c.PageNumber, last, "page metadata must not decrease")
		last = c.PageNumber
		assert.NotEqual(t, 1, c.PageNumber)
		assert.NotEqual(t, 2, c.PageNumber)
		assert.Equal(t, "doc", c.Source)
		byPage[c.PageNumber] = append(byPage[c.PageNumber], c.Content)
	}
	assert.Equal(t, "doc-p0-c1", chunks[0].ID)
	assert.Equal(t, 1, chunks[0].ChunkID)

	for _, p := range []int{0, 3} {
		assert.Equal(t, normalizer.Normalize(pages[p].Text), MergeChunks(byPage[p], 20))
	}
}

func TestChunkPages_Recursive(t *testing.T) {
	pages := []models.Page{{Number: 0, Text: strings.Repeat("word ", 500)}}
	chunker := NewChunker(&config.RAGConfig{ChunkSize: 200, ChunkOverlap: 20, Chunker: config.ChunkerRecursive})

	chunks, err := chunker.ChunkPages("doc", pages)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Content)), 200)
		assert.Equal(t, 0, c.PageNumber)
	}
}

func TestNewChunker_Defaults(t *testing.T) {
	c := NewChunker(nil)
	assert.Equal(t, 1200, c.ChunkSize)
	assert.Equal(t, 40, c.ChunkOverlap)
	assert.Equal(t, config.ChunkerWindow, c.Strategy)
}

func TestNewChunker_ZeroOverlap(t *testing.T) {
	c := NewChunker(&config.RAGConfig{ChunkSize: 100, ChunkOverlap: 0})
	assert.Equal(t, 0, c.ChunkOverlap)

	chunks, err := c.ChunkPages("doc", []models.Page{{Number: 0, Text: strings.Repeat("x", 250)}})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("x", 250), chunks[0].Content+chunks[1].Content+chunks[2].Content)
}
