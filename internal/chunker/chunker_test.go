package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/vidhikguru/nyaya-rag/internal/corpus"
)

func longArticle(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		if i > 0 && i%7 == 0 {
			b.WriteString("\n\n")
		} else if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "Clause %d guarantees the protection numbered %d to every citizen.", i, i*3)
	}
	return b.String()
}

// assertCovers checks that chunks appear in order inside text and that the
// only text not covered by any chunk is whitespace.
func assertCovers(t *testing.T, text string, chunks []string) {
	t.Helper()
	prevStart, prevEnd := 0, 0
	for i, chunk := range chunks {
		idx := strings.Index(text[prevStart:], chunk)
		if idx < 0 {
			t.Fatalf("chunk %d is not an in-order substring of the text: %q", i, chunk)
		}
		start := prevStart + idx
		if start > prevEnd && strings.TrimSpace(text[prevEnd:start]) != "" {
			t.Fatalf("gap before chunk %d: %q", i, text[prevEnd:start])
		}
		if i == 0 && strings.TrimSpace(text[:start]) != "" {
			t.Fatalf("text before first chunk dropped: %q", text[:start])
		}
		prevStart = start
		prevEnd = max(prevEnd, start+len(chunk))
	}
	if strings.TrimSpace(text[prevEnd:]) != "" {
		t.Fatalf("tail dropped: %q", text[prevEnd:])
	}
}

func TestSplitText_BoundsAndCoverage(t *testing.T) {
	text := longArticle(80)
	c := New()
	chunks := c.SplitText(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n := utf8.RuneCountInString(chunk); n > DefaultChunkSize {
			t.Errorf("chunk %d has %d characters, max %d", i, n, DefaultChunkSize)
		}
		if strings.TrimSpace(chunk) != chunk || chunk == "" {
			t.Errorf("chunk %d is not trimmed/non-empty: %q", i, chunk)
		}
	}
	assertCovers(t, text, chunks)
}

func TestSplitText_Overlap(t *testing.T) {
	text := strings.ReplaceAll(longArticle(5), "\n\n", " ")
	c := New(WithChunkSize(120), WithOverlap(40))
	chunks := c.SplitText(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		last := prevWords[len(prevWords)-1]
		if !strings.Contains(chunks[i], last) {
			t.Errorf("chunk %d does not overlap the end of chunk %d (%q)", i, i-1, last)
		}
	}
}

func TestSplitText_HardCutWithoutSeparators(t *testing.T) {
	text := strings.Repeat("अनुच्छेद", 40) // 320 runes, no spaces
	c := New(WithChunkSize(100), WithOverlap(10))
	chunks := c.SplitText(text)

	if len(chunks) < 4 {
		t.Fatalf("expected at least 4 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n := utf8.RuneCountInString(chunk); n > 100 {
			t.Errorf("chunk %d has %d runes", i, n)
		}
		if !utf8.ValidString(chunk) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
	}
}

func TestSplitText_ShortTextSingleChunk(t *testing.T) {
	text := "The State shall not deny to any person equality before the law."
	chunks := New().SplitText(text)
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("expected the text unchanged as a single chunk, got %q", chunks)
	}
}

func TestNew_ClampsOverlap(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(150))
	if c.overlap != 25 {
		t.Errorf("expected overlap clamped to 25, got %d", c.overlap)
	}
}

func TestSplit_MetadataAndSkips(t *testing.T) {
	parts := []corpus.Part{
		{
			PartNo: "III",
			Name:   "Fundamental Rights",
			Articles: []corpus.Article{
				{ArtNo: "14", Name: "Equality before law", ArtDesc: "The State shall not deny to any person equality before the law."},
				{ArtNo: "15", Name: "Empty", ArtDesc: "   \n\t "},
				{ArtNo: "21", Name: "Long", ArtDesc: corpus.Body(longArticle(40))},
			},
		},
		{
			Name:     "",
			Articles: []corpus.Article{{ArtDesc: "Orphan text."}},
		},
	}

	passages, stats := New().Split(parts)

	if stats.Articles != 4 || stats.SkippedArticles != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Chunks != len(passages) {
		t.Errorf("stats.Chunks=%d, passages=%d", stats.Chunks, len(passages))
	}

	if passages[0].Metadata.ArticleNo != "14" || passages[0].Metadata.PartName != "Fundamental Rights" {
		t.Errorf("unexpected metadata on first passage: %+v", passages[0].Metadata)
	}

	long := 0
	for _, p := range passages {
		if p.Metadata.ArticleNo == "15" {
			t.Errorf("empty article 15 was indexed")
		}
		if p.Metadata.ArticleNo == "21" {
			long++
			if p.Metadata.ArticleName != "Long" || p.Metadata.PartNo != "III" {
				t.Errorf("metadata missing on split chunk: %+v", p.Metadata)
			}
		}
	}
	if long < 2 {
		t.Errorf("expected article 21 split into several chunks, got %d", long)
	}

	last := passages[len(passages)-1]
	if last.Metadata.PartNo != corpus.Unknown || last.Metadata.ArticleName != corpus.Unknown {
		t.Errorf("expected Unknown placeholders, got %+v", last.Metadata)
	}
}
