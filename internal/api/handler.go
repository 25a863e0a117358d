package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vidhikguru/nyaya-rag/internal/corpus"
	"github.com/vidhikguru/nyaya-rag/internal/domain"
	"github.com/vidhikguru/nyaya-rag/internal/indexer"
	"github.com/vidhikguru/nyaya-rag/internal/rag"
)

const maxBodyBytes = 1 << 20

// Answerer answers one question.
type Answerer interface {
	Answer(ctx context.Context, q rag.Query) (*rag.Answer, error)
}

// Reindexer rebuilds the index.
type Reindexer interface {
	Reindex(ctx context.Context) (*indexer.IndexResult, error)
}

// Catalog serves the corpus for browsing.
type Catalog interface {
	Summaries(ctx context.Context) ([]corpus.PartSummary, error)
	Part(ctx context.Context, partNo string) (*corpus.Part, error)
	Article(ctx context.Context, partNo, artNo string) (*corpus.Part, *corpus.Article, error)
}

// Config holds handler dependencies.
type Config struct {
	Answerer  Answerer
	Reindexer Reindexer
	Catalog   Catalog
	Health    HealthChecker
	Logger    *slog.Logger
}

// Handler serves the JSON API.
type Handler struct {
	answerer  Answerer
	reindexer Reindexer
	catalog   Catalog
	health    HealthChecker
	logger    *slog.Logger
}

func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		answerer:  cfg.Answerer,
		reindexer: cfg.Reindexer,
		catalog:   cfg.Catalog,
		health:    cfg.Health,
		logger:    logger,
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
	mux.HandleFunc("POST /api/embed", h.embed)
	mux.HandleFunc("GET /api/constitution", h.listParts)
	mux.HandleFunc("GET /api/constitution/{partno}", h.getPart)
	mux.HandleFunc("GET /api/constitution/{partno}/{articleno}", h.getArticle)
	mux.HandleFunc("GET /health", NewHealthHandler(h.health))
	mux.HandleFunc("GET /{$}", NewLandingHandler())
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Query       string        `json:"query"`
	ChatHistory []domain.Turn `json:"chatHistory,omitempty"`
}

// ChatResponse is a successful answer.
type ChatResponse struct {
	Answer         string            `json:"answer"`
	AnswerHTML     string            `json:"answerHtml"`
	SourcePath     domain.SourcePath `json:"sourcePath"`
	DocumentsFound int               `json:"documentsFound"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: messageFor(http.StatusBadRequest),
			Code:  codeFor(domain.ErrInvalidQuery),
		})
		return
	}

	ans, err := h.answerer.Answer(r.Context(), rag.Query{
		Text:    req.Query,
		History: req.ChatHistory,
	})
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError || status == http.StatusRequestTimeout {
			h.logger.Error("Chat request failed", "status", status, "error", err)
		}
		writeJSON(w, status, ErrorResponse{
			Error: messageFor(status),
			Code:  codeFor(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Answer:         ans.Text,
		AnswerHTML:     ans.HTML,
		SourcePath:     ans.SourcePath,
		DocumentsFound: ans.DocumentsFound,
	})
}

// EmbedResponse reports a finished reindex.
type EmbedResponse struct {
	Message         string `json:"message"`
	Parts           int    `json:"parts"`
	Articles        int    `json:"articles"`
	SkippedArticles int    `json:"skippedArticles"`
	Chunks          int    `json:"chunks"`
	CorpusVersion   string `json:"corpusVersion,omitempty"`
	DurationMs      int64  `json:"durationMs"`
}

// EmbedErrorResponse is the body of a failed reindex.
type EmbedErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// embed runs a full reindex. The rebuild is detached from the request so a
// disconnecting client does not abort it half way.
func (h *Handler) embed(w http.ResponseWriter, r *http.Request) {
	result, err := h.reindexer.Reindex(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, domain.ErrReindexInProgress) {
			writeJSON(w, http.StatusConflict, EmbedErrorResponse{
				Error:  "Embedding already in progress",
				Detail: err.Error(),
			})
			return
		}
		h.logger.Error("Embedding failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, EmbedErrorResponse{
			Error:  "Embedding failed",
			Detail: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, EmbedResponse{
		Message:         "Embedding completed successfully",
		Parts:           result.Parts,
		Articles:        result.Articles,
		SkippedArticles: result.SkippedArticles,
		Chunks:          result.Chunks,
		CorpusVersion:   result.CorpusVersion,
		DurationMs:      result.Duration.Milliseconds(),
	})
}

// catalogResponse wraps corpus browser results.
type catalogResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ArticleData is the payload of GET /api/constitution/{partno}/{articleno}.
type ArticleData struct {
	Part    PartHeader      `json:"part"`
	Article *corpus.Article `json:"article"`
}

// PartHeader identifies a part without its articles.
type PartHeader struct {
	PartNo corpus.Ident `json:"PartNo"`
	Name   string       `json:"Name"`
}

func (h *Handler) listParts(w http.ResponseWriter, r *http.Request) {
	parts, err := h.catalog.Summaries(r.Context())
	if err != nil {
		h.catalogError(w, err, "Failed to fetch data")
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Success: true, Data: parts})
}

func (h *Handler) getPart(w http.ResponseWriter, r *http.Request) {
	partNo := strings.TrimSpace(r.PathValue("partno"))

	part, err := h.catalog.Part(r.Context(), partNo)
	if err != nil {
		h.catalogError(w, err, "Failed to fetch part data")
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Success: true, Data: part})
}

func (h *Handler) getArticle(w http.ResponseWriter, r *http.Request) {
	partNo := strings.TrimSpace(r.PathValue("partno"))
	artNo := strings.TrimSpace(r.PathValue("articleno"))

	part, article, err := h.catalog.Article(r.Context(), partNo, artNo)
	if err != nil {
		h.catalogError(w, err, "Failed to fetch article")
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{
		Success: true,
		Data: ArticleData{
			Part:    PartHeader{PartNo: part.PartNo, Name: part.Name},
			Article: article,
		},
	})
}

func (h *Handler) catalogError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, catalogResponse{Error: notFoundMessage(err)})
		return
	}
	h.logger.Error(message, "error", err)
	writeJSON(w, http.StatusInternalServerError, catalogResponse{Error: message})
}

// notFoundMessage turns "not found: part IX" into "Part IX not found".
func notFoundMessage(err error) string {
	_, what, ok := strings.Cut(err.Error(), domain.ErrNotFound.Error()+": ")
	if !ok || what == "" {
		return "Not found"
	}
	return strings.ToUpper(what[:1]) + what[1:] + " not found"
}
