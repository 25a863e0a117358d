// Package main provides the CLI for indexing the constitution corpus.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vidhikguru/nyaya-rag/internal/chunker"
	"github.com/vidhikguru/nyaya-rag/internal/config"
	"github.com/vidhikguru/nyaya-rag/internal/corpus"
	"github.com/vidhikguru/nyaya-rag/internal/indexer"
	"github.com/vidhikguru/nyaya-rag/internal/rag"
)

var rootCmd = &cobra.Command{
	Use:   "nyaya-sync",
	Short: "Constitution corpus indexing tool",
	Long:  "CLI tool for building the constitution passage index and seeding the corpus store",
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Re-index the whole corpus",
	Long: `Rebuilds the passage index from the configured corpus source.

This command:
1. Loads the corpus (file, GitHub or MongoDB)
2. Splits every article into overlapping passages
3. Generates embeddings for all passages
4. Replaces the index contents in one step

Queries keep reading the previous index until the replacement completes.

Environment variables:
  CONFIG_PATH     YAML configuration file (default: config.yaml)
  CORPUS_SOURCE   file | github | mongo
  STORE_BACKEND   qdrant | postgres
  QDRANT_HOST     Qdrant hostname (default: localhost)
  QDRANT_PORT     Qdrant gRPC port (default: 6334)
  DATABASE_URL    PostgreSQL connection string (postgres backend)
  OPENAI_API_KEY  OpenAI API key for embeddings
  MONGODB_URI     MongoDB connection string (mongo source)`,
	RunE: runSync,
}

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upload the corpus JSON into MongoDB",
	Long: `Replaces the MongoDB corpus collection with the parts in a JSON file.

The file must be an array of parts, each with PartNo, Name and Articles.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "corpus JSON file (default: corpus.path from config)")
	rootCmd.AddCommand(syncCmd, seedCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	start := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("Failed to load configuration: %w", err)
	}
	if cfg.Store.Backend == "memory" {
		return errors.New("sync needs a persistent store backend (qdrant or postgres)")
	}

	fmt.Println("Starting sync...")
	fmt.Println()

	services := rag.NewServices(rag.DialersFromConfig(cfg, slog.Default()))
	defer services.Close()

	fmt.Printf("Connecting to %s store...\n", cfg.Store.Backend)
	store, err := services.Store(ctx)
	if err != nil {
		return fmt.Errorf("Failed to connect to store: %w", err)
	}
	if err := store.Health(ctx); err != nil {
		return fmt.Errorf("Store health check failed: %w", err)
	}
	fmt.Println("Store healthy")

	source, closeSource, err := rag.DialCorpus(ctx, cfg)
	if err != nil {
		return fmt.Errorf("Failed to open corpus source: %w", err)
	}
	defer closeSource()

	fmt.Println()
	fmt.Printf("Indexing corpus from %s...\n", source.Describe())
	idx := indexer.New(source,
		chunker.New(
			chunker.WithChunkSize(cfg.Chunker.ChunkSize),
			chunker.WithOverlap(cfg.Chunker.ChunkOverlap),
		),
		services, slog.Default(),
	)

	result, err := idx.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("Indexing failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Sync complete!")
	fmt.Printf("  Parts: %d\n", result.Parts)
	fmt.Printf("  Articles: %d (%d skipped, empty body)\n", result.Articles, result.SkippedArticles)
	fmt.Printf("  Passages: %d\n", result.Chunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))
	if result.CorpusVersion != "" {
		fmt.Printf("  Corpus version: %s\n", result.CorpusVersion)
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Read()
	if err != nil {
		return fmt.Errorf("Failed to load configuration: %w", err)
	}
	if cfg.Corpus.MongoURI == "" {
		return errors.New("MONGODB_URI environment variable is not set")
	}

	path := seedFile
	if path == "" {
		path = cfg.Corpus.Path
	}
	parts, err := corpus.NewFileSource(path).Load(ctx)
	if err != nil {
		return fmt.Errorf("Failed to read %s: %w", path, err)
	}
	fmt.Printf("Read %d parts from %s\n", len(parts), path)

	mongo, err := corpus.NewMongoSource(ctx, cfg.Corpus.MongoURI, cfg.Corpus.MongoDatabase, cfg.Corpus.MongoCollection)
	if err != nil {
		return fmt.Errorf("Failed to connect to MongoDB: %w", err)
	}
	defer mongo.Close()

	if err := mongo.Replace(ctx, parts); err != nil {
		return fmt.Errorf("Failed to seed %s: %w", mongo.Describe(), err)
	}

	n, err := mongo.Count(ctx)
	if err != nil {
		return fmt.Errorf("Failed to count seeded parts: %w", err)
	}
	fmt.Printf("Seeded %d parts into %s\n", n, mongo.Describe())
	return nil
}
