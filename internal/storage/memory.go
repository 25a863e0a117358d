package storage

import (
	"context"
	"math"
	"sort"
	"sync/atomic"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// snapshot is an immutable generation of the in-memory index.
type snapshot struct {
	records []domain.Record
	norms   []float64
}

// MemoryStore keeps the index in process memory. Writers build a complete
// snapshot and publish it with a single pointer swap, so readers never lock.
type MemoryStore struct {
	current atomic.Pointer[snapshot]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) ReplaceAll(ctx context.Context, records []domain.Record) error {
	if _, err := validateRecords(records); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domainErr(domain.ErrIndexWrite, "%v", err)
	}

	snap := &snapshot{
		records: make([]domain.Record, len(records)),
		norms:   make([]float64, len(records)),
	}
	for i, r := range records {
		vec := make([]float32, len(r.Embedding))
		copy(vec, r.Embedding)
		snap.records[i] = domain.Record{Passage: r.Passage, Embedding: vec}
		snap.norms[i] = norm(vec)
	}

	m.current.Store(snap)
	return nil
}

func (m *MemoryStore) Search(_ context.Context, vector []float32, k, fetchK int) ([]domain.ScoredPassage, error) {
	k, fetchK = clampFetch(k, fetchK)
	snap := m.current.Load()
	if snap == nil || k == 0 {
		return []domain.ScoredPassage{}, nil
	}

	qn := norm(vector)
	scored := make([]domain.ScoredPassage, 0, len(snap.records))
	for i, r := range snap.records {
		if len(r.Embedding) != len(vector) {
			return nil, domainErr(ErrDimensionMismatch, "query has %d dimensions, index has %d", len(vector), len(r.Embedding))
		}
		scored = append(scored, domain.ScoredPassage{
			Passage: r.Passage,
			Score:   cosine(vector, r.Embedding, qn, snap.norms[i]),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > fetchK {
		scored = scored[:fetchK]
	}
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (m *MemoryStore) LexicalSearch(_ context.Context, query string, limit int) ([]domain.Passage, error) {
	snap := m.current.Load()
	out := []domain.Passage{}
	if snap == nil || query == "" || limit <= 0 {
		return out, nil
	}

	re := literalMatcher(query)
	for _, r := range snap.records {
		if re.MatchString(r.Content) {
			out = append(out, r.Passage)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) Count(context.Context) (int, error) {
	snap := m.current.Load()
	if snap == nil {
		return 0, nil
	}
	return len(snap.records), nil
}

func (m *MemoryStore) Health(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
