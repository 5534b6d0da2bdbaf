package rag

import (
	"context"
	"errors"
	"fmt"

	"docqa/internal/embedding"
	"docqa/internal/helper"
	"docqa/internal/models"
	"docqa/internal/parser"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
)

// IndexStore persists chunk vectors per named collection and answers
// nearest-neighbour queries. Count and Query return models.ErrIndexNotFound
// for a collection that does not exist.
type IndexStore interface {
	Count(ctx context.Context, name string) (int, error)
	Replace(ctx context.Context, name string, chunks []models.Chunk, vectors [][]float32) error
	Query(ctx context.Context, name string, vector []float32, k int) ([]models.Match, error)
	Delete(ctx context.Context, name string) error
}

// PageExtractor turns a document file into page texts.
type PageExtractor interface {
	Extract(ctx context.Context, filePath string) ([]models.Page, error)
}

// Document is an uploaded file.
type Document struct {
	Name string
	Path string
}

// BuildResult is everything BuildIndex learned about a document.
type BuildResult struct {
	Handle     models.IndexHandle
	Hash       string
	Pages      []models.Page
	Chunks     []models.Chunk
	TotalPages int
}

type Indexer struct {
	extractor PageExtractor
	chunker   *parser.Chunker
	embedder  embeddings.Embedder
	store     IndexStore
}

func NewIndexer(extractor PageExtractor, chunker *parser.Chunker, embedder embeddings.Embedder, store IndexStore) *Indexer {
	return &Indexer{extractor: extractor, chunker: chunker, embedder: embedder, store: store}
}

// CollectionName derives the index name from the document content hash.
func CollectionName(hash string) string {
	return "doc-" + hash
}

// BuildIndex extracts, chunks and embeds a document and stores its index.
// An existing index for the same content is reused unless rebuild is set.
// A failed build leaves no index behind.
func (ix *Indexer) BuildIndex(ctx context.Context, doc Document, rebuild bool) (*BuildResult, error) {
	hash, err := helper.HashFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash document: %w", err)
	}
	name := CollectionName(hash)

	pages, err := ix.extractor.Extract(ctx, doc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}

	chunks, err := ix.chunker.ChunkPages(hash, pages)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, models.ErrEmptyDocument
	}

	result := &BuildResult{
		Handle:     models.IndexHandle{Name: name, Chunks: len(chunks)},
		Hash:       hash,
		Pages:      pages,
		Chunks:     chunks,
		TotalPages: len(pages),
	}

	if !rebuild {
		count, err := ix.store.Count(ctx, name)
		switch {
		case err == nil && count == len(chunks):
			log.Info().Str("document", doc.Name).Str("index", name).Msg("Reusing existing index")
			result.Handle.Reused = true
			return result, nil
		case err != nil && !errors.Is(err, models.ErrIndexNotFound):
			return nil, fmt.Errorf("failed to inspect index: %w", err)
		}
	}

	vectors, err := embedding.EmbedChunks(ctx, ix.embedder, chunks)
	if err != nil {
		if derr := ix.store.Delete(ctx, name); derr != nil {
			log.Error().Err(derr).Str("index", name).Msg("Error removing stale index")
		}
		return nil, err
	}

	if err := ix.store.Replace(ctx, name, chunks, vectors); err != nil {
		return nil, fmt.Errorf("failed to persist index: %w", err)
	}

	log.Info().Str("document", doc.Name).Str("index", name).Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Built index")
	return result, nil
}
