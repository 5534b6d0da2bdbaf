package rag

import (
	"context"
	"fmt"

	"docqa/internal/embedding"
	"docqa/internal/models"

	"github.com/tmc/langchaingo/embeddings"
)

const DefaultTopK = 9

type Retriever struct {
	embedder embeddings.Embedder
	store    IndexStore
}

func NewRetriever(embedder embeddings.Embedder, store IndexStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns up to k chunks of the index most similar to query, most
// similar first. No results is an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, index, query string, k int) ([]models.Match, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if embedding.IsZero(vector) {
		// still surface a missing index
		if _, err := r.store.Count(ctx, index); err != nil {
			return nil, err
		}
		return []models.Match{}, nil
	}

	matches, err := r.store.Query(ctx, index, vector, k)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []models.Match{}
	}
	return matches, nil
}
