package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vidhikguru/nyaya-rag/internal/corpus"
	"github.com/vidhikguru/nyaya-rag/internal/indexer"
	"github.com/vidhikguru/nyaya-rag/internal/markdown"
	"github.com/vidhikguru/nyaya-rag/internal/rag"
)

// Answerer answers one question.
type Answerer interface {
	Answer(ctx context.Context, q rag.Query) (*rag.Answer, error)
}

// Catalog serves the corpus for browsing.
type Catalog interface {
	Summaries(ctx context.Context) ([]corpus.PartSummary, error)
	Article(ctx context.Context, partNo, artNo string) (*corpus.Part, *corpus.Article, error)
}

// StatusReporter reports the indexer state.
type StatusReporter interface {
	Status() indexer.Status
}

// PassageCounter reports how many passages are indexed.
type PassageCounter interface {
	Count(ctx context.Context) (int, error)
}

// PassageCounterFunc adapts a function to PassageCounter.
type PassageCounterFunc func(ctx context.Context) (int, error)

func (f PassageCounterFunc) Count(ctx context.Context) (int, error) { return f(ctx) }

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Answerer Answerer
	Catalog  Catalog
	Indexer  StatusReporter
	Passages PassageCounter
	Renderer *markdown.Renderer
	Logger   *slog.Logger
	Version  string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = markdown.NewRenderer()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "nyaya-constitution-server",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_constitution",
		Description: "Answer a question about the Constitution of India, grounded on the indexed articles. Returns the answer in markdown with its section titles and cited articles.",
	}, makeAskHandler(cfg.Answerer, renderer, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_parts",
		Description: "List every part of the Constitution with its article numbers and names.",
	}, makeListPartsHandler(cfg.Catalog))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_article",
		Description: "Retrieve the full text of one article by part number and article number.",
	}, makeGetArticleHandler(cfg.Catalog))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current status of the constitution index: passage count, last reindex and whether a reindex is running.",
	}, makeStatusHandler(cfg.Indexer, cfg.Passages))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
