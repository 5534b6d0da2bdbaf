package db

import (
	"context"
	"database/sql"
	"fmt"

	"docqa/internal/config"
	"docqa/internal/models"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// Document is one chunk row. Collection groups the chunks of one document.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string          `bun:"id,pk"`
	Collection    string          `bun:"collection,notnull"`
	Content       string          `bun:"content,notnull"`
	PageNumber    int             `bun:"page_number,notnull"`
	ChunkID       int             `bun:"chunk_id,notnull"`
	Source        string          `bun:"source"`
	Embedding     pgvector.Vector `bun:"embedding,notnull"`
	Similarity    float32         `bun:"similarity,scanonly"`
}

func ConnectDB(dbConfig *config.DatabaseConfig) (*sql.DB, error) {
	if dbConfig.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(dbConfig.URL)}
	if dbConfig.Password != "" {
		opts = append(opts, pgdriver.WithPassword(dbConfig.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// Store keeps chunk vectors in a pgvector table. It satisfies the same
// contract as the chromem index.
type Store struct {
	db         *bun.DB
	vectorSize int
}

func NewStore(db *bun.DB, vectorSize int) *Store {
	return &Store{db: db, vectorSize: vectorSize}
}

// InitDB creates the extension, table and index if they are missing.
func (s *Store) InitDB(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id text PRIMARY KEY,
			collection text NOT NULL,
			content text NOT NULL,
			page_number integer NOT NULL,
			chunk_id integer NOT NULL,
			source text,
			embedding vector(%d) NOT NULL
		)`, s.vectorSize),
		"CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection)",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}
	return nil
}

// DropDocuments removes the documents table.
func (s *Store) DropDocuments(ctx context.Context) error {
	_, err := s.db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx)
	return err
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	n, err := s.db.NewSelect().
		Model((*Document)(nil)).
		Where("collection = ?", collection).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	if n == 0 {
		return 0, models.ErrIndexNotFound
	}
	return n, nil
}

// Replace deletes and rewrites the collection in one transaction.
func (s *Store) Replace(ctx context.Context, collection string, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	docs := make([]Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = Document{
			ID:         chunk.ID,
			Collection: collection,
			Content:    chunk.Content,
			PageNumber: chunk.PageNumber,
			ChunkID:    chunk.ChunkID,
			Source:     chunk.Source,
			Embedding:  pgvector.NewVector(vectors[i]),
		}
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*Document)(nil)).Where("collection = ?", collection).Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear collection: %w", err)
		}
		if len(docs) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&docs).Exec(ctx); err != nil {
			return fmt.Errorf("failed to store documents: %w", err)
		}
		return nil
	})
}

// Query orders the collection by cosine distance to vector.
func (s *Store) Query(ctx context.Context, collection string, vector []float32, k int) ([]models.Match, error) {
	if _, err := s.Count(ctx, collection); err != nil {
		return nil, err
	}

	var docs []Document
	query := pgvector.NewVector(vector)
	err := s.db.NewSelect().
		Model(&docs).
		Column("id", "content", "page_number", "chunk_id").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", query).
		Where("collection = ?", collection).
		OrderExpr("embedding <=> ?", query).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	matches := make([]models.Match, len(docs))
	for i, d := range docs {
		matches[i] = models.Match{
			Content:    d.Content,
			PageNumber: d.PageNumber,
			ChunkID:    d.ChunkID,
			Score:      d.Similarity,
		}
	}
	return matches, nil
}

func (s *Store) Delete(ctx context.Context, collection string) error {
	_, err := s.db.NewDelete().Model((*Document)(nil)).Where("collection = ?", collection).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
