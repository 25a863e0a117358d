// Package corpus loads the hierarchical constitution text (Parts → Articles)
// from its sources and serves it for browsing.
package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// Unknown is substituted for missing identifiers and names in chunk metadata.
const Unknown = "Unknown"

// Ident is a part or article number. The source data mixes JSON strings and
// numbers, so both decode to the same string form.
type Ident string

func (i *Ident) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*i = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = Ident(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("identifier must be a string or number: %s", b)
		}
		*i = Ident(n.String())
	}
	return nil
}

// Matches compares identifiers the way a URL segment would be typed by a user.
func (i Ident) Matches(s string) bool {
	a, b := strings.TrimSpace(string(i)), strings.TrimSpace(s)
	if strings.EqualFold(a, b) {
		return true
	}
	// "05" and "5" name the same part.
	x, errX := strconv.Atoi(a)
	y, errY := strconv.Atoi(b)
	return errX == nil && errY == nil && x == y
}

// Body is an article body. Non-string values decode to the empty body, which
// the chunker skips.
type Body string

func (t *Body) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*t = ""
		return nil
	}
	*t = Body(s)
	return nil
}

// Article is a single constitutional article.
type Article struct {
	ArtNo   Ident  `json:"ArtNo" bson:"ArtNo"`
	Name    string `json:"Name" bson:"Name"`
	ArtDesc Body   `json:"ArtDesc" bson:"ArtDesc"`
}

// Part groups articles.
type Part struct {
	PartNo   Ident     `json:"PartNo" bson:"PartNo"`
	Name     string    `json:"Name" bson:"Name"`
	Articles []Article `json:"Articles" bson:"Articles"`
}

// Source provides the full corpus.
type Source interface {
	Load(ctx context.Context) ([]Part, error)
	Describe() string
}

// Versioner is implemented by sources that can identify the corpus revision.
type Versioner interface {
	Version(ctx context.Context) (string, error)
}

// Parse decodes the corpus JSON: an array of parts. Parts whose Articles field
// is missing or not an array are kept without articles. Any other structural
// problem fails the whole load.
func Parse(r io.Reader) ([]Part, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode parts: %v", domain.ErrCorpusLoad, err)
	}

	parts := make([]Part, 0, len(raw))
	for i, msg := range raw {
		var p struct {
			PartNo   Ident           `json:"PartNo"`
			Name     string          `json:"Name"`
			Articles json.RawMessage `json:"Articles"`
		}
		if err := json.Unmarshal(msg, &p); err != nil {
			return nil, fmt.Errorf("%w: part %d: %v", domain.ErrCorpusLoad, i, err)
		}

		part := Part{PartNo: p.PartNo, Name: p.Name}
		if articles := bytes.TrimSpace(p.Articles); len(articles) > 0 && articles[0] == '[' {
			if err := json.Unmarshal(articles, &part.Articles); err != nil {
				return nil, fmt.Errorf("%w: part %d articles: %v", domain.ErrCorpusLoad, i, err)
			}
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// OrUnknown returns s, or Unknown when s is blank.
func OrUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}
