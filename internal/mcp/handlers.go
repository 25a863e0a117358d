package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vidhikguru/nyaya-rag/internal/corpus"
	"github.com/vidhikguru/nyaya-rag/internal/domain"
	"github.com/vidhikguru/nyaya-rag/internal/markdown"
	"github.com/vidhikguru/nyaya-rag/internal/rag"
)

// makeAskHandler creates the ask_constitution tool handler.
func makeAskHandler(answerer Answerer, renderer *markdown.Renderer, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		ans, err := answerer.Answer(ctx, rag.Query{Text: input.Query, History: input.History})
		if err != nil {
			logger.Warn("ask_constitution failed", "error", err)
			return nil, AskOutput{}, fmt.Errorf("ask failed: %w", err)
		}

		sections := renderer.Headings(ans.Text)
		if sections == nil {
			sections = []string{}
		}
		return nil, AskOutput{
			Answer:         ans.Text,
			SourcePath:     ans.SourcePath,
			DocumentsFound: ans.DocumentsFound,
			Sections:       sections,
			Sources:        citations(ans.Sources),
		}, nil
	}
}

// citations lists each cited article once, in first-seen order.
func citations(passages []domain.Passage) []SourceRef {
	out := make([]SourceRef, 0, len(passages))
	seen := make(map[SourceRef]bool, len(passages))
	for _, p := range passages {
		ref := SourceRef{
			PartNo:      p.Metadata.PartNo,
			PartName:    p.Metadata.PartName,
			ArticleNo:   p.Metadata.ArticleNo,
			ArticleName: p.Metadata.ArticleName,
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

// makeListPartsHandler creates the list_parts tool handler.
func makeListPartsHandler(catalog Catalog) func(
	context.Context, *mcp.CallToolRequest, ListPartsInput,
) (*mcp.CallToolResult, ListPartsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListPartsInput) (
		*mcp.CallToolResult, ListPartsOutput, error,
	) {
		parts, err := catalog.Summaries(ctx)
		if err != nil {
			return nil, ListPartsOutput{}, fmt.Errorf("failed to list parts: %w", err)
		}
		if parts == nil {
			parts = []corpus.PartSummary{}
		}
		return nil, ListPartsOutput{Parts: parts, Count: len(parts)}, nil
	}
}

// makeGetArticleHandler creates the get_article tool handler. A missing
// article is a normal result with Found=false, not a tool error.
func makeGetArticleHandler(catalog Catalog) func(
	context.Context, *mcp.CallToolRequest, GetArticleInput,
) (*mcp.CallToolResult, GetArticleOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetArticleInput) (
		*mcp.CallToolResult, GetArticleOutput, error,
	) {
		part, article, err := catalog.Article(ctx, input.PartNo, input.ArticleNo)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, GetArticleOutput{
					Found:     false,
					PartNo:    input.PartNo,
					ArticleNo: input.ArticleNo,
				}, nil
			}
			return nil, GetArticleOutput{}, fmt.Errorf("failed to fetch article: %w", err)
		}

		return nil, GetArticleOutput{
			Found:       true,
			PartNo:      string(part.PartNo),
			PartName:    part.Name,
			ArticleNo:   string(article.ArtNo),
			ArticleName: article.Name,
			Text:        string(article.ArtDesc),
		}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler. An
// unreachable store is reported in the output rather than failing the call.
func makeStatusHandler(reporter StatusReporter, passages PassageCounter) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		var out StatusOutput

		if passages != nil {
			n, err := passages.Count(ctx)
			if err != nil {
				out.StoreError = err.Error()
			}
			out.Passages = n
		}

		if reporter != nil {
			st := reporter.Status()
			out.Reindexing = st.Running
			out.Halted = st.Halted
			out.LastError = st.LastError
			if !st.LastRun.IsZero() {
				lastRun := st.LastRun
				out.LastRun = &lastRun
			}
			if r := st.LastResult; r != nil {
				out.Parts = r.Parts
				out.Articles = r.Articles
				out.Skipped = r.SkippedArticles
				out.Version = r.CorpusVersion
			}
		}

		return nil, out, nil
	}
}
