// Package mcp exposes the constitution assistant as MCP tools.
package mcp

import (
	"time"

	"github.com/vidhikguru/nyaya-rag/internal/corpus"
	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// AskInput defines the input parameters for the ask_constitution tool.
type AskInput struct {
	Query   string        `json:"query" jsonschema:"the question about the Constitution of India"`
	History []domain.Turn `json:"history,omitempty" jsonschema:"earlier conversation turns, oldest first"`
}

// AskOutput contains the generated answer.
type AskOutput struct {
	Answer         string            `json:"answer"`
	SourcePath     domain.SourcePath `json:"source_path"`
	DocumentsFound int               `json:"documents_found"`
	// Sections lists the section titles of the answer, for clients that
	// render an outline.
	Sections []string    `json:"sections"`
	Sources  []SourceRef `json:"sources"`
}

// SourceRef cites one passage the answer was grounded on.
type SourceRef struct {
	PartNo      string `json:"part_no"`
	PartName    string `json:"part_name"`
	ArticleNo   string `json:"article_no"`
	ArticleName string `json:"article_name"`
}

// ListPartsInput defines the input parameters for the list_parts tool (none required).
type ListPartsInput struct{}

// ListPartsOutput contains every part with its article references.
type ListPartsOutput struct {
	Parts []corpus.PartSummary `json:"parts"`
	Count int                  `json:"count"`
}

// GetArticleInput defines the input parameters for the get_article tool.
type GetArticleInput struct {
	PartNo    string `json:"part_no" jsonschema:"the part number, e.g. III"`
	ArticleNo string `json:"article_no" jsonschema:"the article number, e.g. 21A"`
}

// GetArticleOutput contains the article text.
type GetArticleOutput struct {
	Found       bool   `json:"found"`
	PartNo      string `json:"part_no"`
	PartName    string `json:"part_name,omitempty"`
	ArticleNo   string `json:"article_no"`
	ArticleName string `json:"article_name,omitempty"`
	Text        string `json:"text,omitempty"`
}

// StatusInput defines the input parameters for the get_index_status tool (none required).
type StatusInput struct{}

// StatusOutput contains index status information.
type StatusOutput struct {
	Passages   int        `json:"passages"`
	Reindexing bool       `json:"reindexing"`
	Halted     bool       `json:"halted"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	Parts      int        `json:"parts,omitempty"`
	Articles   int        `json:"articles,omitempty"`
	Skipped    int        `json:"skipped_articles,omitempty"`
	Version    string     `json:"corpus_version,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	// StoreError is set when the passage count could not be read.
	StoreError string `json:"store_error,omitempty"`
}
