package corpus

import (
	"context"
	"fmt"
	"sync"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// ArticleRef is an article without its body.
type ArticleRef struct {
	ArtNo Ident  `json:"ArtNo"`
	Name  string `json:"Name"`
}

// PartSummary is a part with article references only, for navigation.
type PartSummary struct {
	PartNo   Ident        `json:"PartNo"`
	Name     string       `json:"Name"`
	Articles []ArticleRef `json:"Articles"`
}

// Catalog serves the corpus for browsing. It loads from its source on first
// use and can be refreshed after a reindex.
type Catalog struct {
	source Source

	mu     sync.RWMutex
	parts  []Part
	loaded bool
}

// NewCatalog creates a catalog backed by source.
func NewCatalog(source Source) *Catalog {
	return &Catalog{source: source}
}

// Set replaces the catalog contents without touching the source.
func (c *Catalog) Set(parts []Part) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parts = parts
	c.loaded = true
}

// Refresh reloads the catalog from its source.
func (c *Catalog) Refresh(ctx context.Context) error {
	parts, err := c.source.Load(ctx)
	if err != nil {
		return err
	}
	c.Set(parts)
	return nil
}

func (c *Catalog) all(ctx context.Context) ([]Part, error) {
	c.mu.RLock()
	if c.loaded {
		parts := c.parts
		c.mu.RUnlock()
		return parts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		parts, err := c.source.Load(ctx)
		if err != nil {
			return nil, err
		}
		c.parts = parts
		c.loaded = true
	}
	return c.parts, nil
}

// Summaries lists every part with its article numbers and names.
func (c *Catalog) Summaries(ctx context.Context) ([]PartSummary, error) {
	parts, err := c.all(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]PartSummary, len(parts))
	for i, p := range parts {
		refs := make([]ArticleRef, len(p.Articles))
		for j, a := range p.Articles {
			refs[j] = ArticleRef{ArtNo: a.ArtNo, Name: a.Name}
		}
		out[i] = PartSummary{PartNo: p.PartNo, Name: p.Name, Articles: refs}
	}
	return out, nil
}

// Part returns the part numbered partNo.
func (c *Catalog) Part(ctx context.Context, partNo string) (*Part, error) {
	parts, err := c.all(ctx)
	if err != nil {
		return nil, err
	}
	for i := range parts {
		if parts[i].PartNo.Matches(partNo) {
			return &parts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: part %s", domain.ErrNotFound, partNo)
}

// Article returns the article artNo inside part partNo.
func (c *Catalog) Article(ctx context.Context, partNo, artNo string) (*Part, *Article, error) {
	part, err := c.Part(ctx, partNo)
	if err != nil {
		return nil, nil, err
	}
	for i := range part.Articles {
		if part.Articles[i].ArtNo.Matches(artNo) {
			return part, &part.Articles[i], nil
		}
	}
	return nil, nil, fmt.Errorf("%w: article %s in part %s", domain.ErrNotFound, artNo, partNo)
}
