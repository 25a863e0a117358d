package indexer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhikguru/nyaya-rag/internal/chunker"
	"github.com/vidhikguru/nyaya-rag/internal/corpus"
	"github.com/vidhikguru/nyaya-rag/internal/domain"
	"github.com/vidhikguru/nyaya-rag/internal/embedding"
	"github.com/vidhikguru/nyaya-rag/internal/storage"
)

type staticSource struct {
	parts   []corpus.Part
	err     error
	version string
}

func (s *staticSource) Load(context.Context) ([]corpus.Part, error) { return s.parts, s.err }
func (s *staticSource) Describe() string                            { return "static" }
func (s *staticSource) Version(context.Context) (string, error)     { return s.version, nil }

// lengthProvider embeds text as [len, 1]. If gate is set, Embed waits on it.
type lengthProvider struct {
	gate    chan struct{}
	entered chan struct{}
	err     error
}

func (p *lengthProvider) Name() string { return "length" }

func (p *lengthProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type deps struct {
	provider embedding.Provider
	store    storage.Store
}

func (d deps) Embedder(context.Context) (*embedding.Embedder, error) {
	return embedding.NewEmbedder(d.provider, 2), nil
}

func (d deps) Store(context.Context) (storage.Store, error) { return d.store, nil }

// corruptingStore fails every write with the given error.
type corruptingStore struct {
	storage.Store
	err    error
	writes int
}

func (c *corruptingStore) ReplaceAll(context.Context, []domain.Record) error {
	c.writes++
	return c.err
}

func constitution() []corpus.Part {
	return []corpus.Part{
		{
			PartNo: "III",
			Name:   "Fundamental Rights",
			Articles: []corpus.Article{
				{ArtNo: "14", Name: "Equality before law", ArtDesc: "The State shall not deny to any person equality before the law."},
				{ArtNo: "15", Name: "Empty", ArtDesc: "   "},
				{ArtNo: "21", Name: "Protection of life", ArtDesc: corpus.Body(strings.Repeat("No person shall be deprived of his life. ", 40))},
			},
		},
		{
			PartNo: "IV",
			Name:   "Directive Principles of State Policy",
			Articles: []corpus.Article{
				{ArtNo: "37", Name: "Application", ArtDesc: "The provisions contained in this Part shall not be enforceable by any court."},
			},
		},
	}
}

func TestReindexPopulatesStore(t *testing.T) {
	store := storage.NewMemoryStore()
	var indexed []corpus.Part

	idx := New(&staticSource{parts: constitution(), version: "abc123"}, chunker.New(),
		deps{provider: &lengthProvider{}, store: store}, nil,
		OnIndexed(func(p []corpus.Part) { indexed = p }))

	result, err := idx.Reindex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Parts)
	assert.Equal(t, 4, result.Articles)
	assert.Equal(t, 1, result.SkippedArticles)
	assert.Greater(t, result.Chunks, 3)
	assert.Equal(t, "abc123", result.CorpusVersion)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.Chunks, n)
	assert.Len(t, indexed, 2)

	status := idx.Status()
	assert.False(t, status.Running)
	assert.False(t, status.Halted)
	assert.Equal(t, result, status.LastResult)
	assert.Empty(t, status.LastError)
}

func TestReindexRejectsConcurrentRun(t *testing.T) {
	provider := &lengthProvider{gate: make(chan struct{}), entered: make(chan struct{}, 16)}
	idx := New(&staticSource{parts: constitution()}, chunker.New(),
		deps{provider: provider, store: storage.NewMemoryStore()}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := idx.Reindex(context.Background())
		assert.NoError(t, err)
	}()

	<-provider.entered
	assert.True(t, idx.Status().Running)

	_, err := idx.Reindex(context.Background())
	assert.ErrorIs(t, err, domain.ErrReindexInProgress)

	close(provider.gate)
	wg.Wait()

	_, err = idx.Reindex(context.Background())
	assert.NoError(t, err)
}

func TestReindexFailureKeepsPreviousIndex(t *testing.T) {
	store := storage.NewMemoryStore()
	provider := &lengthProvider{}
	idx := New(&staticSource{parts: constitution()}, chunker.New(),
		deps{provider: provider, store: store}, nil)

	first, err := idx.Reindex(context.Background())
	require.NoError(t, err)

	provider.err = errors.New("upstream 500")
	_, err = idx.Reindex(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingService)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, n)

	status := idx.Status()
	assert.Equal(t, first, status.LastResult)
	assert.Contains(t, status.LastError, "upstream 500")
	assert.False(t, status.Halted)
}

func TestReindexHaltsAfterCorruption(t *testing.T) {
	store := &corruptingStore{
		Store: storage.NewMemoryStore(),
		err:   errors.Join(domain.ErrIndexCorrupted, errors.New("alias switch lost")),
	}
	idx := New(&staticSource{parts: constitution()}, chunker.New(),
		deps{provider: &lengthProvider{}, store: store}, nil)

	_, err := idx.Reindex(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexCorrupted)

	_, err = idx.Reindex(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexCorrupted)
	assert.Equal(t, 1, store.writes, "no write may follow corruption")
	assert.True(t, idx.Status().Halted)
}

func TestReindexCorpusErrors(t *testing.T) {
	t.Run("load failure", func(t *testing.T) {
		idx := New(&staticSource{err: domain.ErrCorpusLoad}, chunker.New(),
			deps{provider: &lengthProvider{}, store: storage.NewMemoryStore()}, nil)
		_, err := idx.Reindex(context.Background())
		assert.ErrorIs(t, err, domain.ErrCorpusLoad)
	})

	t.Run("nothing to index", func(t *testing.T) {
		parts := []corpus.Part{{PartNo: "I", Articles: []corpus.Article{{ArtNo: "1", ArtDesc: ""}}}}
		idx := New(&staticSource{parts: parts}, chunker.New(),
			deps{provider: &lengthProvider{}, store: storage.NewMemoryStore()}, nil)
		_, err := idx.Reindex(context.Background())
		assert.ErrorIs(t, err, domain.ErrCorpusLoad)
	})
}
