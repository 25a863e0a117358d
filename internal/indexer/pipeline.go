// Package indexer rebuilds the vector index from the corpus.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vidhikguru/nyaya-rag/internal/chunker"
	"github.com/vidhikguru/nyaya-rag/internal/corpus"
	"github.com/vidhikguru/nyaya-rag/internal/domain"
	"github.com/vidhikguru/nyaya-rag/internal/embedding"
	"github.com/vidhikguru/nyaya-rag/internal/storage"
)

// IndexResult contains statistics about an indexing operation.
type IndexResult struct {
	Parts           int           `json:"parts"`
	Articles        int           `json:"articles"`
	SkippedArticles int           `json:"skippedArticles"`
	Chunks          int           `json:"chunks"`
	CorpusVersion   string        `json:"corpusVersion,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// Status reports the indexer state for diagnostics.
type Status struct {
	Running    bool
	Halted     bool
	LastRun    time.Time
	LastResult *IndexResult
	LastError  string
}

// Dependencies hands out the shared clients a reindex needs.
type Dependencies interface {
	Embedder(ctx context.Context) (*embedding.Embedder, error)
	Store(ctx context.Context) (storage.Store, error)
}

// Indexer orchestrates Load → Split → Embed → ReplaceAll. Only one reindex
// runs at a time; queries keep reading the previous index until the store
// swaps it.
type Indexer struct {
	source  corpus.Source
	chunker *chunker.Chunker
	deps    Dependencies
	logger  *slog.Logger

	onIndexed []func([]corpus.Part)

	run     sync.Mutex
	running atomic.Bool

	mu      sync.Mutex
	halted  error
	lastRun time.Time
	last    *IndexResult
	lastErr error
}

// Option configures an Indexer.
type Option func(*Indexer)

// OnIndexed registers fn to receive the corpus after every successful reindex.
func OnIndexed(fn func([]corpus.Part)) Option {
	return func(i *Indexer) { i.onIndexed = append(i.onIndexed, fn) }
}

// New creates an indexer. If logger is nil, slog.Default() is used.
func New(source corpus.Source, c *chunker.Chunker, deps Dependencies, logger *slog.Logger, opts ...Option) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Indexer{
		source:  source,
		chunker: c,
		deps:    deps,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Reindex rebuilds the whole index. A concurrent call fails fast with
// domain.ErrReindexInProgress. Once the store reports
// domain.ErrIndexCorrupted every later call is refused.
func (i *Indexer) Reindex(ctx context.Context) (*IndexResult, error) {
	if !i.run.TryLock() {
		return nil, fmt.Errorf("%w: %s", domain.ErrReindexInProgress, i.source.Describe())
	}
	defer i.run.Unlock()

	i.running.Store(true)
	defer i.running.Store(false)

	if halted := i.haltedErr(); halted != nil {
		i.logger.Error("Reindex refused, index is corrupted", "error", halted)
		return nil, fmt.Errorf("reindex halted: %w", halted)
	}

	start := time.Now()
	result, parts, err := i.reindex(ctx)

	i.mu.Lock()
	i.lastRun = start
	i.lastErr = err
	if err == nil {
		result.Duration = time.Since(start)
		i.last = result
	}
	if errors.Is(err, domain.ErrIndexCorrupted) {
		i.halted = err
	}
	i.mu.Unlock()

	if err != nil {
		if errors.Is(err, domain.ErrIndexCorrupted) {
			i.logger.Error("Index corrupted, halting reindex", "source", i.source.Describe(), "error", err)
		} else {
			i.logger.Warn("Reindex failed, previous index still serving", "source", i.source.Describe(), "error", err)
		}
		return nil, err
	}

	for _, fn := range i.onIndexed {
		fn(parts)
	}

	i.logger.Info("Indexing complete",
		"source", i.source.Describe(),
		"version", result.CorpusVersion,
		"parts", result.Parts,
		"articles", result.Articles,
		"skipped", result.SkippedArticles,
		"chunks", result.Chunks,
		"duration", result.Duration,
	)
	return result, nil
}

func (i *Indexer) reindex(ctx context.Context) (*IndexResult, []corpus.Part, error) {
	result := &IndexResult{}

	// 1. Corpus version, if the source has one
	if v, ok := i.source.(corpus.Versioner); ok {
		version, err := v.Version(ctx)
		if err != nil {
			i.logger.Warn("Failed to resolve corpus version", "error", err)
		}
		result.CorpusVersion = version
	}
	i.logger.Info("Starting indexing", "source", i.source.Describe(), "version", result.CorpusVersion)

	// 2. Load
	parts, err := i.source.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load corpus: %w", err)
	}

	// 3. Split
	passages, stats := i.chunker.Split(parts)
	result.Parts = stats.Parts
	result.Articles = stats.Articles
	result.SkippedArticles = stats.SkippedArticles
	result.Chunks = stats.Chunks
	if len(passages) == 0 {
		return nil, nil, fmt.Errorf("%w: corpus produced no passages", domain.ErrCorpusLoad)
	}
	i.logger.Info("Corpus split", "parts", stats.Parts, "chunks", stats.Chunks)

	// 4. Embed
	embedder, err := i.deps.Embedder(ctx)
	if err != nil {
		return nil, nil, err
	}
	vectors, err := embedder.Embed(ctx, domain.Contents(passages))
	if err != nil {
		return nil, nil, fmt.Errorf("embed passages: %w", err)
	}

	records := make([]domain.Record, len(passages))
	for n, p := range passages {
		records[n] = domain.Record{Passage: p, Embedding: vectors[n]}
	}

	// 5. Swap
	store, err := i.deps.Store(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := store.ReplaceAll(ctx, records); err != nil {
		return nil, nil, fmt.Errorf("replace index: %w", err)
	}

	return result, parts, nil
}

func (i *Indexer) haltedErr() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.halted
}

// Status returns the last outcome.
func (i *Indexer) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	s := Status{
		Running:    i.running.Load(),
		Halted:     i.halted != nil,
		LastRun:    i.lastRun,
		LastResult: i.last,
	}
	if i.lastErr != nil {
		s.LastError = i.lastErr.Error()
	}
	return s
}
