package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"docqa/internal/models"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// metadata keys stored with every chunk
const (
	metaPage    = "page"
	metaChunkID = "chunk_id"
	metaSource  = "source"
)

// VectorDBManager encapsulates the chromem-go database operations. Every
// document gets its own collection.
type VectorDBManager struct {
	db            *chromem.DB
	dbPath        string
	compress      bool
	encryptionKey string
}

// NewVectorDBManager initializes a new vector database manager
func NewVectorDBManager(dbPath string, inMemory, compress bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:            db,
		dbPath:        dbPath,
		compress:      compress,
		encryptionKey: encryptionKey,
	}, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return c, nil
}

// Count returns the number of chunks stored for a collection.
func (m *VectorDBManager) Count(_ context.Context, collectionName string) (int, error) {
	c := m.db.GetCollection(collectionName, nil)
	if c == nil {
		return 0, models.ErrIndexNotFound
	}
	return c.Count(), nil
}

// Replace drops the collection and stores chunks with their embeddings in a
// fresh one. On failure the collection is removed again.
func (m *VectorDBManager) Replace(ctx context.Context, collectionName string, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	if err := m.Delete(ctx, collectionName); err != nil {
		return err
	}
	c, err := m.GetOrCreateCollection(collectionName)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Content,
			Metadata:  createMetadata(chunk),
			Embedding: vectors[i],
		}
	}

	log.Info().Str("collection", collectionName).Msgf("Adding %d documents to vector database", len(docs))
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		if derr := m.Delete(ctx, collectionName); derr != nil {
			log.Error().Err(derr).Str("collection", collectionName).Msg("Error removing partial collection")
		}
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Query returns the k most similar chunks, most similar first.
func (m *VectorDBManager) Query(ctx context.Context, collectionName string, vector []float32, k int) ([]models.Match, error) {
	c := m.db.GetCollection(collectionName, nil)
	if c == nil {
		return nil, models.ErrIndexNotFound
	}

	k = min(k, c.Count())
	if k <= 0 {
		return nil, nil
	}

	results, err := c.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	matches := make([]models.Match, 0, len(results))
	for _, r := range results {
		match, err := toMatch(r)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Delete removes a collection. Deleting a missing collection is not an error.
func (m *VectorDBManager) Delete(_ context.Context, collectionName string) error {
	if m.db.GetCollection(collectionName, nil) == nil {
		return nil
	}
	if err := m.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// Export writes a collection to a single, optionally encrypted, file.
func (m *VectorDBManager) Export(_ context.Context, collectionName, filePath string) error {
	if filePath == "" {
		return errors.New("export path is required")
	}
	if m.db.GetCollection(collectionName, nil) == nil {
		return models.ErrIndexNotFound
	}

	log.Debug().Str("collection", collectionName).Str("file", filePath).Bool("compress", m.compress).Msg("Exporting collection")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, collectionName); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads collections previously written by Export.
func (m *VectorDBManager) Import(_ context.Context, filePath string, collectionNames ...string) error {
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, collectionNames...); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	return nil
}

func createMetadata(chunk models.Chunk) map[string]string {
	return map[string]string{
		metaPage:    strconv.Itoa(chunk.PageNumber),
		metaChunkID: strconv.Itoa(chunk.ChunkID),
		metaSource:  chunk.Source,
	}
}

func toMatch(r chromem.Result) (models.Match, error) {
	page, err := strconv.Atoi(r.Metadata[metaPage])
	if err != nil {
		return models.Match{}, fmt.Errorf("malformed page metadata on %s: %w", r.ID, err)
	}
	chunkID, _ := strconv.Atoi(r.Metadata[metaChunkID])
	return models.Match{
		Content:    r.Content,
		PageNumber: page,
		ChunkID:    chunkID,
		Score:      r.Similarity,
	}, nil
}
