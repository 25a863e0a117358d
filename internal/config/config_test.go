package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into the test.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OLLAMA_HOST", "PORT",
		"CORPUS_SOURCE", "CORPUS_PATH", "GITHUB_TOKEN", "MONGODB_URI", "MONGODB_DB",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "GENERATION_PROVIDER", "GENERATION_MODEL",
		"STORE_BACKEND", "QDRANT_HOST", "QDRANT_API_KEY", "QDRANT_PORT", "DATABASE_URL",
		"SERVER_MODE", "CONFIG_PATH",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "qdrant", cfg.Store.Backend)
	assert.Equal(t, 6334, cfg.Store.QdrantPort)
	assert.Equal(t, 5, cfg.Retrieval.K)
	assert.Equal(t, 15, cfg.Retrieval.FetchK)
	assert.Equal(t, 3, cfg.Retrieval.LexicalLimit)
	assert.Equal(t, 6, cfg.Retrieval.HistoryTurns)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout())
	assert.False(t, cfg.Server.HTTPMode)
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("SERVER_MODE", "true")

	path := writeFile(t, `
server:
  port: "9090"
store:
  qdrant_host: qdrant.internal
  qdrant_port: 6500
retrieval:
  k: 8
  fetch_k: 4
generation:
  temperature: 0.1
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "qdrant.internal", cfg.Store.QdrantHost)
	assert.Equal(t, 7000, cfg.Store.QdrantPort)
	assert.True(t, cfg.Server.HTTPMode)
	assert.Equal(t, 8, cfg.Retrieval.K)
	assert.Equal(t, 15, cfg.Retrieval.FetchK)
	assert.InDelta(t, 0.1, cfg.Generation.Temperature, 1e-9)
	assert.Equal(t, 1024, cfg.Generation.MaxTokens)
}

func TestLoadHonoursConfigPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CONFIG_PATH", writeFile(t, "server:\n  port: \"7777\"\n"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7777", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing openai key", nil, "OPENAI_API_KEY"},
		{"ollama needs no key", map[string]string{"EMBEDDING_PROVIDER": "ollama", "GENERATION_PROVIDER": "ollama"}, ""},
		{"postgres needs url", map[string]string{"OPENAI_API_KEY": "k", "STORE_BACKEND": "postgres"}, "DATABASE_URL"},
		{"mongo needs uri", map[string]string{"OPENAI_API_KEY": "k", "CORPUS_SOURCE": "mongo"}, "MONGODB_URI"},
		{"unknown backend", map[string]string{"OPENAI_API_KEY": "k", "STORE_BACKEND": "redis"}, "unknown store backend"},
		{"bad port", map[string]string{"OPENAI_API_KEY": "k", "QDRANT_PORT": "abc"}, "QDRANT_PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml"))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, err := LoadFile(writeFile(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestReadSkipsValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	_, err := Load()
	require.Error(t, err, "no OpenAI key")

	cfg, err := Read()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Corpus.MongoURI)
}
