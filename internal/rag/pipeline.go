package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidhikguru/nyaya-rag/internal/composer"
	"github.com/vidhikguru/nyaya-rag/internal/domain"
	"github.com/vidhikguru/nyaya-rag/internal/markdown"
	"github.com/vidhikguru/nyaya-rag/internal/retriever"
)

// NoResultsAnswer is returned verbatim when neither retrieval nor the
// lexical fallback finds anything. The generator is not called.
const NoResultsAnswer = "I couldn't find relevant information about your query in the Constitution database. Please try rephrasing your query or ask about specific constitutional articles."

// State is a step of one Answer call.
type State string

const (
	StateReceived       State = "received"
	StateRetrieving     State = "retrieving"
	StateRetrievedOK    State = "retrievedOK"
	StateRetrievedEmpty State = "retrievedEmpty"
	StateFallingBack    State = "fallingBack"
	StateFallbackOK     State = "fallbackOK"
	StateFallbackEmpty  State = "fallbackEmpty"
	StateComposing      State = "composing"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// Query is one question plus optional chat history.
type Query struct {
	Text    string
	History []domain.Turn
}

// Answer is the result of one Answer call.
type Answer struct {
	Text           string
	HTML           string
	SourcePath     domain.SourcePath
	DocumentsFound int
	Sources        []domain.Passage
}

// Settings tunes the pipeline. Zero values take defaults.
type Settings struct {
	K            int
	FetchK       int
	LexicalLimit int

	// HistoryTurns is how many trailing chat turns reach the prompt.
	// Negative disables history.
	HistoryTurns int

	RetrievalTimeout  time.Duration
	FallbackTimeout   time.Duration
	GenerationTimeout time.Duration
}

func (s *Settings) applyDefaults() {
	if s.K <= 0 {
		s.K = retriever.DefaultK
	}
	if s.FetchK <= 0 {
		s.FetchK = retriever.DefaultFetchK
	}
	if s.HistoryTurns == 0 {
		s.HistoryTurns = composer.DefaultHistoryTurns
	}
	if s.LexicalLimit <= 0 {
		s.LexicalLimit = 3
	}
	if s.RetrievalTimeout <= 0 {
		s.RetrievalTimeout = 30 * time.Second
	}
	if s.FallbackTimeout <= 0 {
		s.FallbackTimeout = 10 * time.Second
	}
	if s.GenerationTimeout <= 0 {
		s.GenerationTimeout = 60 * time.Second
	}
}

// Pipeline answers questions. Requests share nothing but Services.
type Pipeline struct {
	services *Services
	renderer *markdown.Renderer
	settings Settings
	logger   *slog.Logger
}

// NewPipeline creates a pipeline. If logger is nil, slog.Default() is used.
func NewPipeline(services *Services, settings Settings, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	settings.applyDefaults()
	return &Pipeline{
		services: services,
		renderer: markdown.NewRenderer(),
		settings: settings,
		logger:   logger,
	}
}

// Answer runs Received → Retrieving → (FallingBack) → Composing → Done.
// Infrastructure failures end in Failed without trying the fallback.
func (p *Pipeline) Answer(ctx context.Context, q Query) (*Answer, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidQuery)
	}

	logger := p.logger.With("request_id", uuid.NewString()[:8])
	start := time.Now()
	p.transition(logger, StateReceived, "query_len", len(text))

	p.transition(logger, StateRetrieving)
	scored, err := p.retrieve(ctx, text)
	if err != nil {
		return nil, p.fail(logger, "retrieval", err)
	}

	var (
		sources []domain.Passage
		path    domain.SourcePath
	)

	if len(scored) > 0 {
		p.transition(logger, StateRetrievedOK, "documents", len(scored))
		sources = make([]domain.Passage, len(scored))
		for i, sp := range scored {
			sources[i] = sp.Passage
		}
		path = domain.SourceRetrieval
	} else {
		p.transition(logger, StateRetrievedEmpty)
		p.transition(logger, StateFallingBack)

		sources, err = p.fallback(ctx, text)
		if err != nil {
			return nil, p.fail(logger, "fallback", err)
		}
		if len(sources) == 0 {
			p.transition(logger, StateFallbackEmpty)
			p.transition(logger, StateDone, "source", domain.SourceNoResults, "duration", time.Since(start))
			return p.finish(logger, NoResultsAnswer, domain.SourceNoResults, nil), nil
		}
		p.transition(logger, StateFallbackOK, "documents", len(sources))
		path = domain.SourceLexicalFallback
	}

	p.transition(logger, StateComposing)
	answer, err := p.compose(ctx, text, sources, q.History)
	if err != nil {
		return nil, p.fail(logger, "generation", err)
	}

	p.transition(logger, StateDone, "source", path, "duration", time.Since(start))
	return p.finish(logger, answer, path, sources), nil
}

func (p *Pipeline) retrieve(ctx context.Context, text string) ([]domain.ScoredPassage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.settings.RetrievalTimeout)
	defer cancel()

	embedder, err := p.services.Embedder(ctx)
	if err != nil {
		return nil, err
	}
	store, err := p.services.Store(ctx)
	if err != nil {
		return nil, err
	}

	r := retriever.New(embedder, store,
		retriever.WithK(p.settings.K),
		retriever.WithFetchK(p.settings.FetchK))
	return r.Retrieve(ctx, text)
}

func (p *Pipeline) fallback(ctx context.Context, text string) ([]domain.Passage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.settings.FallbackTimeout)
	defer cancel()

	store, err := p.services.Store(ctx)
	if err != nil {
		return nil, err
	}
	return store.LexicalSearch(ctx, text, p.settings.LexicalLimit)
}

func (p *Pipeline) compose(ctx context.Context, text string, sources []domain.Passage, history []domain.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.settings.GenerationTimeout)
	defer cancel()

	gen, err := p.services.Generator(ctx)
	if err != nil {
		return "", err
	}

	c := composer.New(gen,
		composer.WithHistoryTurns(p.settings.HistoryTurns),
		composer.WithLogger(p.logger))
	return c.Compose(ctx, text, domain.Contents(sources), history)
}

func (p *Pipeline) finish(logger *slog.Logger, text string, path domain.SourcePath, sources []domain.Passage) *Answer {
	html, err := p.renderer.Render(text)
	if err != nil {
		logger.Warn("failed to render answer", "error", err)
	}
	if sources == nil {
		sources = []domain.Passage{}
	}
	return &Answer{
		Text:           text,
		HTML:           html,
		SourcePath:     path,
		DocumentsFound: len(sources),
		Sources:        sources,
	}
}

// fail moves to Failed. A deadline overrun in any stage is reported as
// domain.ErrTimeout.
func (p *Pipeline) fail(logger *slog.Logger, stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		err = fmt.Errorf("%w: %s stage: %w", domain.ErrTimeout, stage, err)
	}

	p.transition(logger, StateFailed, "stage", stage, "error", err)
	return err
}

func (p *Pipeline) transition(logger *slog.Logger, s State, args ...any) {
	logger.Debug("answer state", append([]any{"state", s}, args...)...)
}
