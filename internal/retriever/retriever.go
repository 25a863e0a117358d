// Package retriever turns a question into ranked passages.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

const (
	DefaultK      = 5
	DefaultFetchK = 15
)

// QueryEmbedder embeds a single query.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the read side of the index used for retrieval.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k, fetchK int) ([]domain.ScoredPassage, error)
}

// Retriever embeds a query and searches the index with it.
type Retriever struct {
	embedder QueryEmbedder
	index    Searcher
	k        int
	fetchK   int
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithK sets how many passages are returned.
func WithK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.k = k
		}
	}
}

// WithFetchK sets the candidate pool size.
func WithFetchK(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.fetchK = n
		}
	}
}

func New(embedder QueryEmbedder, index Searcher, opts ...Option) *Retriever {
	r := &Retriever{
		embedder: embedder,
		index:    index,
		k:        DefaultK,
		fetchK:   DefaultFetchK,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to k passages for query, most relevant first. No
// relevance threshold is applied. An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.ScoredPassage, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidQuery)
	}

	vector, err := r.embedder.EmbedQuery(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	passages, err := r.index.Search(ctx, vector, r.k, max(r.fetchK, r.k))
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return passages, nil
}
