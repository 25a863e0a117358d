// Package config loads service configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "config.yaml"

// ServerConfig configures the HTTP and MCP surfaces.
type ServerConfig struct {
	Port string `yaml:"port"`

	// HTTPMode serves HTTP instead of MCP over stdio.
	HTTPMode bool `yaml:"http_mode"`
}

// CorpusConfig selects where the constitution JSON comes from.
type CorpusConfig struct {
	Source string `yaml:"source"` // file | github | mongo

	Path string `yaml:"path"`

	GitHubOwner string `yaml:"github_owner"`
	GitHubRepo  string `yaml:"github_repo"`
	GitHubRef   string `yaml:"github_ref"`
	GitHubToken string `yaml:"-"`

	MongoURI        string `yaml:"-"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`
}

// ChunkerConfig configures passage splitting.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // openai | ollama
	Model       string `yaml:"model"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GenerationConfig selects and configures the answer model.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // openai | ollama
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// StoreConfig selects and configures the vector index backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // qdrant | postgres | memory

	QdrantHost       string `yaml:"qdrant_host"`
	QdrantPort       int    `yaml:"qdrant_port"`
	QdrantAPIKey     string `yaml:"-"`
	QdrantTLS        bool   `yaml:"qdrant_tls"`
	QdrantCollection string `yaml:"qdrant_collection"`

	PostgresURL   string `yaml:"-"`
	PostgresTable string `yaml:"postgres_table"`
}

// RetrievalConfig tunes the answer pipeline.
type RetrievalConfig struct {
	K                  int `yaml:"k"`
	FetchK             int `yaml:"fetch_k"`
	LexicalLimit       int `yaml:"lexical_limit"`
	HistoryTurns       int `yaml:"history_turns"`
	SearchTimeoutSecs  int `yaml:"search_timeout_secs"`
	ConnectTimeoutSecs int `yaml:"connect_timeout_secs"`
}

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Store      StoreConfig      `yaml:"store"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`

	OpenAIAPIKey  string `yaml:"-"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OllamaHost    string `yaml:"ollama_host"`
}

// Load builds the configuration. CONFIG_PATH overrides DefaultPath; a
// missing file is not an error.
func Load() (*Config, error) {
	return LoadFile(configPath())
}

// Read builds the configuration like Load but skips Validate. Commands that
// need only part of it check what they use.
func Read() (*Config, error) {
	return read(configPath())
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return DefaultPath
}

// LoadFile builds the configuration from path plus the environment.
func LoadFile(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Corpus: CorpusConfig{
			Source:          "file",
			Path:            "data/Constitution.json",
			GitHubRef:       "main",
			MongoDatabase:   "nyaya",
			MongoCollection: "constitution_datas",
		},
		Chunker: ChunkerConfig{ChunkSize: 1000, ChunkOverlap: 200},
		Embedding: EmbeddingConfig{
			Provider:    "openai",
			BatchSize:   100,
			TimeoutSecs: 30,
		},
		Generation: GenerationConfig{
			Provider:    "openai",
			Temperature: 0.3,
			MaxTokens:   1024,
			TimeoutSecs: 60,
		},
		Store: StoreConfig{
			Backend:          "qdrant",
			QdrantHost:       "localhost",
			QdrantPort:       6334,
			QdrantCollection: "constitution",
			PostgresTable:    "constitution_passages",
		},
		Retrieval: RetrievalConfig{
			K:                  5,
			FetchK:             15,
			LexicalLimit:       3,
			HistoryTurns:       6,
			SearchTimeoutSecs:  10,
			ConnectTimeoutSecs: 30,
		},
	}
}

func applyEnv(cfg *Config) error {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.OllamaHost, "OLLAMA_HOST")
	setString(&cfg.Server.Port, "PORT")

	setString(&cfg.Corpus.Source, "CORPUS_SOURCE")
	setString(&cfg.Corpus.Path, "CORPUS_PATH")
	setString(&cfg.Corpus.GitHubToken, "GITHUB_TOKEN")
	setString(&cfg.Corpus.MongoURI, "MONGODB_URI")
	setString(&cfg.Corpus.MongoDatabase, "MONGODB_DB")

	setString(&cfg.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	setString(&cfg.Generation.Provider, "GENERATION_PROVIDER")
	setString(&cfg.Generation.Model, "GENERATION_MODEL")

	setString(&cfg.Store.Backend, "STORE_BACKEND")
	setString(&cfg.Store.QdrantHost, "QDRANT_HOST")
	setString(&cfg.Store.QdrantAPIKey, "QDRANT_API_KEY")
	setString(&cfg.Store.PostgresURL, "DATABASE_URL")

	if v := os.Getenv("QDRANT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QDRANT_PORT must be a number: %w", err)
		}
		cfg.Store.QdrantPort = port
	}

	if v := os.Getenv("SERVER_MODE"); v != "" {
		cfg.Server.HTTPMode = v == "true"
	}
	return nil
}

// applyDefaults fills zero values a partial YAML file may have cleared.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Chunker.ChunkSize <= 0 {
		cfg.Chunker.ChunkSize = def.Chunker.ChunkSize
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = def.Embedding.BatchSize
	}
	if cfg.Embedding.TimeoutSecs <= 0 {
		cfg.Embedding.TimeoutSecs = def.Embedding.TimeoutSecs
	}
	if cfg.Generation.TimeoutSecs <= 0 {
		cfg.Generation.TimeoutSecs = def.Generation.TimeoutSecs
	}
	if cfg.Retrieval.K <= 0 {
		cfg.Retrieval.K = def.Retrieval.K
	}
	if cfg.Retrieval.FetchK < cfg.Retrieval.K {
		cfg.Retrieval.FetchK = max(def.Retrieval.FetchK, cfg.Retrieval.K)
	}
	if cfg.Retrieval.LexicalLimit <= 0 {
		cfg.Retrieval.LexicalLimit = def.Retrieval.LexicalLimit
	}
	if cfg.Retrieval.SearchTimeoutSecs <= 0 {
		cfg.Retrieval.SearchTimeoutSecs = def.Retrieval.SearchTimeoutSecs
	}
	if cfg.Retrieval.ConnectTimeoutSecs <= 0 {
		cfg.Retrieval.ConnectTimeoutSecs = def.Retrieval.ConnectTimeoutSecs
	}
}

// Validate checks enumerations and required credentials.
func (c *Config) Validate() error {
	switch c.Corpus.Source {
	case "file":
	case "github":
		if c.Corpus.GitHubOwner == "" || c.Corpus.GitHubRepo == "" || c.Corpus.Path == "" {
			return errors.New("corpus source github requires github_owner, github_repo and path")
		}
	case "mongo":
		if c.Corpus.MongoURI == "" {
			return errors.New("MONGODB_URI environment variable is not set")
		}
	default:
		return fmt.Errorf("unknown corpus source %q", c.Corpus.Source)
	}

	for _, p := range []string{c.Embedding.Provider, c.Generation.Provider} {
		switch p {
		case "openai":
			if c.OpenAIAPIKey == "" {
				return errors.New("OPENAI_API_KEY environment variable not set")
			}
		case "ollama":
		default:
			return fmt.Errorf("unknown model provider %q", p)
		}
	}

	switch c.Store.Backend {
	case "qdrant", "memory":
	case "postgres":
		if c.Store.PostgresURL == "" {
			return errors.New("DATABASE_URL environment variable is not set")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func (c EmbeddingConfig) Timeout() time.Duration  { return secs(c.TimeoutSecs) }
func (c GenerationConfig) Timeout() time.Duration { return secs(c.TimeoutSecs) }
func (c RetrievalConfig) SearchTimeout() time.Duration {
	return secs(c.SearchTimeoutSecs)
}
func (c RetrievalConfig) ConnectTimeout() time.Duration {
	return secs(c.ConnectTimeoutSecs)
}
