// Package storage persists embedded passages and answers similarity and
// lexical queries over them.
package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// Store is the vector index. Implementations must make ReplaceAll atomic as
// observed by Search and LexicalSearch: a concurrent reader sees either the
// complete old record set or the complete new one.
type Store interface {
	// ReplaceAll swaps the whole index for records. An empty record set is
	// rejected with domain.ErrIndexWrite.
	ReplaceAll(ctx context.Context, records []domain.Record) error

	// Search returns up to k passages ranked by cosine similarity, drawn from
	// fetchK candidates. Ties keep storage order. An empty index yields an
	// empty result.
	Search(ctx context.Context, vector []float32, k, fetchK int) ([]domain.ScoredPassage, error)

	// LexicalSearch returns up to limit passages whose content contains query,
	// compared case-insensitively, in storage order.
	LexicalSearch(ctx context.Context, query string, limit int) ([]domain.Passage, error)

	Count(ctx context.Context) (int, error)
	Health(ctx context.Context) error
	Close() error
}

// Payload keys shared by the backends.
const (
	fieldContent     = "content"
	fieldPartNo      = "partNo"
	fieldPartName    = "partName"
	fieldArticleNo   = "articleNo"
	fieldArticleName = "articleName"
	fieldSeq         = "seq"
)

// clampFetch normalises the candidate pool so that fetchK >= k >= 0.
func clampFetch(k, fetchK int) (int, int) {
	if k < 0 {
		k = 0
	}
	if fetchK < k {
		fetchK = k
	}
	return k, fetchK
}

// literalMatcher compiles query as a case-insensitive literal pattern.
func literalMatcher(query string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
}

func validateRecords(records []domain.Record) (int, error) {
	if len(records) == 0 {
		return 0, domainErr(domain.ErrIndexWrite, "empty record set")
	}
	dim := len(records[0].Embedding)
	if dim == 0 {
		return 0, domainErr(domain.ErrIndexWrite, "record 0 has no embedding")
	}
	for i, r := range records {
		if len(r.Embedding) != dim {
			return 0, fmt.Errorf("%w: %w: record %d has %d dimensions, expected %d",
				domain.ErrIndexWrite, ErrDimensionMismatch, i, len(r.Embedding), dim)
		}
	}
	return dim, nil
}
