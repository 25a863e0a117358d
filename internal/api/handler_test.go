package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhikguru/nyaya-rag/internal/corpus"
	"github.com/vidhikguru/nyaya-rag/internal/domain"
	"github.com/vidhikguru/nyaya-rag/internal/indexer"
	"github.com/vidhikguru/nyaya-rag/internal/rag"
)

type stubAnswerer struct {
	got rag.Query
	ans *rag.Answer
	err error
}

func (s *stubAnswerer) Answer(_ context.Context, q rag.Query) (*rag.Answer, error) {
	s.got = q
	return s.ans, s.err
}

type stubReindexer struct {
	result *indexer.IndexResult
	err    error
}

func (s *stubReindexer) Reindex(context.Context) (*indexer.IndexResult, error) {
	return s.result, s.err
}

type staticSource []corpus.Part

func (s staticSource) Load(context.Context) ([]corpus.Part, error) { return s, nil }
func (s staticSource) Describe() string                            { return "static" }

func newServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.Catalog == nil {
		cfg.Catalog = corpus.NewCatalog(staticSource{
			{PartNo: "III", Name: "Fundamental Rights", Articles: []corpus.Article{
				{ArtNo: "14", Name: "Equality before law", ArtDesc: "The State shall not deny..."},
				{ArtNo: "21", Name: "Protection of life", ArtDesc: "No person shall be deprived..."},
			}},
		})
	}
	if cfg.Health == nil {
		cfg.Health = HealthCheckerFunc(func(context.Context) error { return nil })
	}
	if cfg.Answerer == nil {
		cfg.Answerer = &stubAnswerer{}
	}
	if cfg.Reindexer == nil {
		cfg.Reindexer = &stubReindexer{}
	}

	mux := http.NewServeMux()
	NewHandler(cfg).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestChatSuccess(t *testing.T) {
	answerer := &stubAnswerer{ans: &rag.Answer{
		Text:           "Article 14 guarantees equality.",
		HTML:           "<p>Article 14 guarantees equality.</p>",
		SourcePath:     domain.SourceRetrieval,
		DocumentsFound: 5,
	}}
	srv := newServer(t, Config{Answerer: answerer})

	resp := post(t, srv.URL+"/api/chat", `{"query":"equality before law","chatHistory":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "Article 14 guarantees equality.", body["answer"])
	assert.Equal(t, "<p>Article 14 guarantees equality.</p>", body["answerHtml"])
	assert.Equal(t, "retrieval", body["sourcePath"])
	assert.EqualValues(t, 5, body["documentsFound"])

	assert.Equal(t, "equality before law", answerer.got.Text)
	require.Len(t, answerer.got.History, 1)
	assert.Equal(t, domain.RoleUser, answerer.got.History[0].Role)
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"malformed json", `{"query":`, nil, http.StatusBadRequest, "invalid_query"},
		{"non-string query", `{"query":42}`, nil, http.StatusBadRequest, "invalid_query"},
		{"empty query", `{"query":""}`, fmt.Errorf("%w: empty", domain.ErrInvalidQuery), http.StatusBadRequest, "invalid_query"},
		{"timeout", `{"query":"q"}`, fmt.Errorf("%w: generation stage: %w", domain.ErrTimeout, domain.ErrGenerationService), http.StatusRequestTimeout, "timeout"},
		{"embedding down", `{"query":"q"}`, fmt.Errorf("%w: connection refused", domain.ErrEmbeddingService), http.StatusServiceUnavailable, "embedding_unavailable"},
		{"store down", `{"query":"q"}`, fmt.Errorf("%w: qdrant", domain.ErrDependencyUnavailable), http.StatusServiceUnavailable, "dependency_unavailable"},
		{"generation", `{"query":"q"}`, fmt.Errorf("%w: 500", domain.ErrGenerationService), http.StatusInternalServerError, "generation_failed"},
		{"unknown", `{"query":"q"}`, errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, Config{Answerer: &stubAnswerer{err: tt.err}})

			resp := post(t, srv.URL+"/api/chat", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decode[ErrorResponse](t, resp)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Error)
			assert.NotContains(t, body.Error, "connection refused")
		})
	}
}

func TestEmbed(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newServer(t, Config{Reindexer: &stubReindexer{result: &indexer.IndexResult{
			Parts: 2, Articles: 10, SkippedArticles: 1, Chunks: 14, Duration: 1500 * time.Millisecond,
		}}})

		resp := post(t, srv.URL+"/api/embed", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[EmbedResponse](t, resp)
		assert.Equal(t, "Embedding completed successfully", body.Message)
		assert.Equal(t, 14, body.Chunks)
		assert.Equal(t, int64(1500), body.DurationMs)
	})

	t.Run("in progress", func(t *testing.T) {
		srv := newServer(t, Config{Reindexer: &stubReindexer{err: domain.ErrReindexInProgress}})

		resp := post(t, srv.URL+"/api/embed", "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("failure", func(t *testing.T) {
		srv := newServer(t, Config{Reindexer: &stubReindexer{err: fmt.Errorf("%w: bad json", domain.ErrCorpusLoad)}})

		resp := post(t, srv.URL+"/api/embed", "")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		body := decode[EmbedErrorResponse](t, resp)
		assert.Equal(t, "Embedding failed", body.Error)
		assert.Contains(t, body.Detail, "bad json")
	})
}

func TestConstitutionRoutes(t *testing.T) {
	srv := newServer(t, Config{})

	t.Run("list", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/constitution")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[struct {
			Success bool                 `json:"success"`
			Data    []corpus.PartSummary `json:"data"`
		}](t, resp)
		assert.True(t, body.Success)
		require.Len(t, body.Data, 1)
		assert.Len(t, body.Data[0].Articles, 2)
		assert.Equal(t, "Equality before law", body.Data[0].Articles[0].Name)
	})

	t.Run("part", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/constitution/iii")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[struct {
			Data corpus.Part `json:"data"`
		}](t, resp)
		assert.Equal(t, "Fundamental Rights", body.Data.Name)
		assert.Equal(t, corpus.Body("No person shall be deprived..."), body.Data.Articles[1].ArtDesc)
	})

	t.Run("article", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/constitution/III/21")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[struct {
			Data ArticleData `json:"data"`
		}](t, resp)
		assert.Equal(t, corpus.Ident("III"), body.Data.Part.PartNo)
		assert.Equal(t, "Protection of life", body.Data.Article.Name)
	})

	t.Run("missing part", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/constitution/XXV")
		require.NoError(t, err)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		body := decode[catalogResponse](t, resp)
		assert.False(t, body.Success)
		assert.Equal(t, "Part XXV not found", body.Error)
	})

	t.Run("missing article", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/constitution/III/999")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := newServer(t, Config{})
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[HealthResponse](t, resp)
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "connected", body.Store)
		_, err = time.Parse(time.RFC3339, body.Timestamp)
		assert.NoError(t, err)
	})

	t.Run("unhealthy", func(t *testing.T) {
		srv := newServer(t, Config{Health: HealthCheckerFunc(func(context.Context) error {
			return domain.ErrDependencyUnavailable
		})})
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		body := decode[HealthResponse](t, resp)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "disconnected", body.Store)
	})
}

func TestLanding(t *testing.T) {
	srv := newServer(t, Config{})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp2, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusFor(nil))
	assert.Equal(t, http.StatusRequestTimeout, StatusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusConflict, StatusFor(domain.ErrReindexInProgress))
	assert.Equal(t, http.StatusNotFound, StatusFor(domain.ErrNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(domain.ErrIndexCorrupted))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(domain.ErrCorpusLoad))
}
