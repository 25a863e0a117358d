package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
const DefaultBatchSize = 100

// Provider is an external embedding model. One call embeds one batch.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Embedder is the gateway in front of a Provider. It validates inputs,
// batches requests and guarantees one vector per input, in input order.
type Embedder struct {
	provider  Provider
	batchSize int
}

// NewEmbedder creates an Embedder. If batchSize is 0, DefaultBatchSize is used.
func NewEmbedder(provider Provider, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Embedder{
		provider:  provider,
		batchSize: batchSize,
	}
}

// Embed returns exactly len(texts) vectors. Every text must be non-empty after
// trimming; the first empty one fails the call with *domain.InvalidChunkError
// before any request is made.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, &domain.InvalidChunkError{Index: i}
		}
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		vectors, err := e.provider.Embed(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %s batch %d-%d: %w", domain.ErrEmbeddingService, e.provider.Name(), i, end, err)
		}
		if len(vectors) != end-i {
			return nil, fmt.Errorf("%w: %s batch %d-%d returned %d vectors",
				domain.ErrEmbeddingService, e.provider.Name(), i, end, len(vectors))
		}
		all = append(all, vectors...)
	}
	return all, nil
}

// EmbedQuery embeds a single query text.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
