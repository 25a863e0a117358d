// Package chunker flattens the corpus into passages and splits long article
// bodies into bounded, overlapping chunks for embedding.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/vidhikguru/nyaya-rag/internal/corpus"
	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// DefaultChunkSize is the default maximum chunk length in characters.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default overlap between adjacent chunks.
const DefaultChunkOverlap = 200

// defaultSeparators are tried in order; "" means a hard character cut.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Stats summarises one Split call.
type Stats struct {
	Parts           int
	Articles        int
	SkippedArticles int
	Chunks          int
}

// Chunker splits text recursively: on paragraphs first, then lines, then
// words, then characters, merging the pieces back into windows of at most
// size characters that overlap by up to overlap characters.
type Chunker struct {
	size       int
	overlap    int
	separators []string
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 1 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:       DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: defaultSeparators,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Size returns the maximum chunk size.
func (c *Chunker) Size() int { return c.size }

// Split turns every non-empty article into one or more passages carrying the
// article's metadata.
func (c *Chunker) Split(parts []corpus.Part) ([]domain.Passage, Stats) {
	var passages []domain.Passage
	stats := Stats{Parts: len(parts)}

	for _, part := range parts {
		for _, article := range part.Articles {
			stats.Articles++

			body := strings.TrimSpace(string(article.ArtDesc))
			if body == "" {
				stats.SkippedArticles++
				continue
			}

			meta := domain.Metadata{
				PartNo:      corpus.OrUnknown(string(part.PartNo)),
				PartName:    corpus.OrUnknown(part.Name),
				ArticleNo:   corpus.OrUnknown(string(article.ArtNo)),
				ArticleName: corpus.OrUnknown(article.Name),
			}
			for _, text := range c.SplitText(body) {
				if strings.TrimSpace(text) == "" {
					continue
				}
				passages = append(passages, domain.Passage{Content: text, Metadata: meta})
			}
		}
	}

	stats.Chunks = len(passages)
	return passages, stats
}

// SplitText splits a single text into chunks.
func (c *Chunker) SplitText(text string) []string {
	return c.split(text, c.separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeep(text, separator) {
		if runeLen(piece) < c.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, hardCut(piece, c.size)...)
		} else {
			final = append(final, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.merge(good)...)
	}
	return final
}

// merge packs pieces into windows of at most c.size characters, carrying up
// to c.overlap characters of trailing pieces into the next window.
func (c *Chunker) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > c.size && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.overlap || (total+n > c.size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeep splits text on sep, keeping sep at the start of each following
// piece so that joining the pieces restores the text.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	raw := strings.Split(text, sep)
	out := make([]string, 0, len(raw))
	for i, s := range raw {
		if i > 0 {
			s = sep + s
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func hardCut(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
