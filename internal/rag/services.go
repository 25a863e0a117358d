// Package rag answers questions against the constitution index: it owns the
// shared service connections and the per-request answer pipeline.
package rag

import (
	"context"
	"errors"
	"time"

	"github.com/vidhikguru/nyaya-rag/internal/embedding"
	"github.com/vidhikguru/nyaya-rag/internal/llm"
	"github.com/vidhikguru/nyaya-rag/internal/storage"
)

// Dialers create the external clients. Each runs at most once per
// successful initialisation.
type Dialers struct {
	Embedding func(ctx context.Context) (embedding.Provider, error)
	Store     func(ctx context.Context) (storage.Store, error)
	Generator func(ctx context.Context) (llm.Generator, error)

	// BatchSize is passed to every Embedder handed out.
	BatchSize int

	// InitTimeout bounds each dial. Zero means DefaultInitTimeout.
	InitTimeout time.Duration
}

// Services is the process-wide service context. It is safe for concurrent
// use; nothing is dialed until first needed.
type Services struct {
	provider  *Lazy[embedding.Provider]
	store     *Lazy[storage.Store]
	generator *Lazy[llm.Generator]
	batchSize int
}

func NewServices(d Dialers) *Services {
	s := &Services{
		provider:  NewLazy("embedding provider", d.Embedding, nil),
		store:     NewLazy("index store", d.Store, func(s storage.Store) error { return s.Close() }),
		generator: NewLazy("generator", d.Generator, nil),
		batchSize: d.BatchSize,
	}
	if d.InitTimeout > 0 {
		s.provider.timeout = d.InitTimeout
		s.store.timeout = d.InitTimeout
		s.generator.timeout = d.InitTimeout
	}
	return s
}

// Embedder returns the embedding gateway over the shared provider.
func (s *Services) Embedder(ctx context.Context) (*embedding.Embedder, error) {
	p, err := s.provider.Get(ctx)
	if err != nil {
		return nil, err
	}
	return embedding.NewEmbedder(p, s.batchSize), nil
}

func (s *Services) Store(ctx context.Context) (storage.Store, error) {
	return s.store.Get(ctx)
}

func (s *Services) Generator(ctx context.Context) (llm.Generator, error) {
	return s.generator.Get(ctx)
}

// Close is the shutdown hook. It releases whatever was dialed.
func (s *Services) Close() error {
	return errors.Join(
		s.store.Close(),
		s.provider.Close(),
		s.generator.Close(),
	)
}
