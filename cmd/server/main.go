// Package main provides the HTTP and MCP entry point for the constitution assistant.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vidhikguru/nyaya-rag/internal/api"
	"github.com/vidhikguru/nyaya-rag/internal/chunker"
	"github.com/vidhikguru/nyaya-rag/internal/config"
	"github.com/vidhikguru/nyaya-rag/internal/corpus"
	"github.com/vidhikguru/nyaya-rag/internal/indexer"
	mcpserver "github.com/vidhikguru/nyaya-rag/internal/mcp"
	"github.com/vidhikguru/nyaya-rag/internal/rag"
)

// shutdownTimeout bounds how long in-flight requests may drain.
const shutdownTimeout = 30 * time.Second

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if err := run(); err != nil {
		log.Printf("server error: %v", err)
		os.Exit(1)
	}
}

// run owns every shared connection. It returns only after the HTTP server
// has drained, so the deferred services.Close never races a live request.
func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := slog.Default()

	// Nothing external is dialed here; the first request connects.
	services := rag.NewServices(rag.DialersFromConfig(cfg, logger))
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("Closing services", "error", err)
		}
	}()

	source, closeSource, err := rag.DialCorpus(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open corpus source: %w", err)
	}
	defer closeSource()

	catalog := corpus.NewCatalog(source)
	idx := indexer.New(source,
		chunker.New(
			chunker.WithChunkSize(cfg.Chunker.ChunkSize),
			chunker.WithOverlap(cfg.Chunker.ChunkOverlap),
		),
		services, logger,
		indexer.OnIndexed(catalog.Set),
	)
	pipeline := rag.NewPipeline(services, rag.SettingsFromConfig(cfg), logger)

	// The in-process store starts empty, so build it before taking traffic.
	if cfg.Store.Backend == "memory" {
		result, err := idx.Reindex(ctx)
		if err != nil {
			return fmt.Errorf("initial indexing failed: %w", err)
		}
		logger.Info("Initial index built", "chunks", result.Chunks, "duration", result.Duration)
	}

	server := mcpserver.NewServer(&mcpserver.Config{
		Answerer: pipeline,
		Catalog:  catalog,
		Indexer:  idx,
		Passages: mcpserver.PassageCounterFunc(func(ctx context.Context) (int, error) {
			store, err := services.Store(ctx)
			if err != nil {
				return 0, err
			}
			return store.Count(ctx)
		}),
		Logger: logger,
	})

	mux := http.NewServeMux()
	api.NewHandler(api.Config{
		Answerer:  pipeline,
		Reindexer: idx,
		Catalog:   catalog,
		Health: api.HealthCheckerFunc(func(ctx context.Context) error {
			store, err := services.Store(ctx)
			if err != nil {
				return err
			}
			return store.Health(ctx)
		}),
		Logger: logger,
	}).Register(mux)
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	addr := "0.0.0.0:" + cfg.Server.Port
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Server.HTTPMode {
		logger.Info("Starting HTTP server", "addr", addr, "corpus", source.Describe(), "store", cfg.Store.Backend)
		return serve(ctx, httpServer, ln, shutdownTimeout)
	}

	// Stdio mode: MCP over stdin/stdout, with the HTTP API in the background
	// for local testing. Either side ending stops the other.
	httpCtx, stopHTTP := context.WithCancel(ctx)
	httpDone := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", addr)
		httpDone <- serve(httpCtx, httpServer, ln, shutdownTimeout)
	}()

	logger.Info("Starting Nyaya MCP server (stdio mode)")
	runErr := server.Run(ctx)
	stopHTTP()
	if err := <-httpDone; err != nil {
		logger.Error("HTTP server error", "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("MCP server: %w", runErr)
	}
	return nil
}

// serve runs srv on ln until ctx is done, then shuts it down and waits for
// in-flight requests to finish or for drain to elapse.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, drain time.Duration) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-serveErr
	return err
}
