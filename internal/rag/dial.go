package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ollama/ollama/api"

	"github.com/vidhikguru/nyaya-rag/internal/config"
	"github.com/vidhikguru/nyaya-rag/internal/corpus"
	"github.com/vidhikguru/nyaya-rag/internal/embedding"
	"github.com/vidhikguru/nyaya-rag/internal/github"
	"github.com/vidhikguru/nyaya-rag/internal/llm"
	"github.com/vidhikguru/nyaya-rag/internal/storage"
)

// DialersFromConfig builds the production dialers for cfg.
func DialersFromConfig(cfg *config.Config, logger *slog.Logger) Dialers {
	return Dialers{
		Embedding:   func(ctx context.Context) (embedding.Provider, error) { return dialEmbedding(cfg) },
		Store:       func(ctx context.Context) (storage.Store, error) { return dialStore(ctx, cfg, logger) },
		Generator:   func(ctx context.Context) (llm.Generator, error) { return dialGenerator(cfg) },
		BatchSize:   cfg.Embedding.BatchSize,
		InitTimeout: cfg.Retrieval.ConnectTimeout(),
	}
}

// SettingsFromConfig derives the pipeline settings from cfg. The retrieval
// stage covers both the query embedding and the vector search.
func SettingsFromConfig(cfg *config.Config) Settings {
	r := cfg.Retrieval
	return Settings{
		K:                 r.K,
		FetchK:            r.FetchK,
		LexicalLimit:      r.LexicalLimit,
		HistoryTurns:      r.HistoryTurns,
		RetrievalTimeout:  cfg.Embedding.Timeout() + r.SearchTimeout(),
		FallbackTimeout:   r.SearchTimeout(),
		GenerationTimeout: cfg.Generation.Timeout(),
	}
}

// DialCorpus opens the configured corpus source. The returned close function
// is never nil.
func DialCorpus(ctx context.Context, cfg *config.Config) (corpus.Source, func() error, error) {
	noop := func() error { return nil }
	c := cfg.Corpus
	switch c.Source {
	case "github":
		client, err := github.NewClient(c.GitHubToken)
		if err != nil {
			return nil, noop, fmt.Errorf("github client: %w", err)
		}
		fetcher := github.NewFetcher(client, c.GitHubOwner, c.GitHubRepo, c.GitHubRef)
		return corpus.NewGitHubSource(fetcher, c.GitHubOwner, c.GitHubRepo, c.Path), noop, nil
	case "mongo":
		src, err := corpus.NewMongoSource(ctx, c.MongoURI, c.MongoDatabase, c.MongoCollection)
		if err != nil {
			return nil, noop, err
		}
		return src, src.Close, nil
	default:
		return corpus.NewFileSource(c.Path), noop, nil
	}
}

func dialEmbedding(cfg *config.Config) (embedding.Provider, error) {
	switch cfg.Embedding.Provider {
	case "ollama":
		client, err := ollamaClient(cfg)
		if err != nil {
			return nil, err
		}
		return embedding.NewOllamaProvider(client, cfg.Embedding.Model), nil
	default:
		client, err := embedding.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, err
		}
		return embedding.NewOpenAIProvider(client, cfg.Embedding.Model), nil
	}
}

func dialGenerator(cfg *config.Config) (llm.Generator, error) {
	g := cfg.Generation
	switch g.Provider {
	case "ollama":
		client, err := ollamaClient(cfg)
		if err != nil {
			return nil, err
		}
		return llm.NewOllamaGenerator(client, g.Model, g.Temperature, g.MaxTokens), nil
	default:
		client, err := embedding.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, err
		}
		return llm.NewOpenAIGenerator(client.Client(), g.Model,
			llm.WithTemperature(g.Temperature),
			llm.WithMaxTokens(g.MaxTokens)), nil
	}
}

func dialStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	s := cfg.Store
	switch s.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "postgres":
		return storage.NewPostgresStore(ctx, storage.PostgresConfig{
			URL:    s.PostgresURL,
			Table:  s.PostgresTable,
			Logger: logger,
		})
	case "qdrant":
		return storage.NewQdrantStore(ctx, storage.QdrantConfig{
			Host:       s.QdrantHost,
			Port:       s.QdrantPort,
			APIKey:     s.QdrantAPIKey,
			UseTLS:     s.QdrantTLS,
			Collection: s.QdrantCollection,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", s.Backend)
	}
}

func ollamaClient(cfg *config.Config) (*api.Client, error) {
	return llm.NewOllamaClient(cfg.OllamaHost)
}
