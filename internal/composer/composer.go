// Package composer turns retrieved passages into a grounded answer.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
	"github.com/vidhikguru/nyaya-rag/internal/llm"
)

const (
	// DefaultHistoryTurns is how many trailing chat turns are quoted.
	DefaultHistoryTurns = 6

	// DefaultMaxContextTokens bounds the context block before truncation.
	DefaultMaxContextTokens = 16000
)

// Composer renders the answer prompt and runs it through a Generator.
type Composer struct {
	generator        llm.Generator
	historyTurns     int
	maxContextTokens int
	logger           *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithHistoryTurns sets how many trailing turns are quoted. Negative
// disables history.
func WithHistoryTurns(n int) Option {
	return func(c *Composer) {
		c.historyTurns = max(n, 0)
	}
}

func WithMaxContextTokens(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.maxContextTokens = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(generator llm.Generator, opts ...Option) *Composer {
	c := &Composer{
		generator:        generator,
		historyTurns:     DefaultHistoryTurns,
		maxContextTokens: DefaultMaxContextTokens,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose answers query from passages. Passages are used in the order
// given; history is optional.
func (c *Composer) Compose(ctx context.Context, query string, passages []string, history []domain.Turn) (string, error) {
	prompt := c.Prompt(query, passages, history)

	resp, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrGenerationService, c.generator.Name(), err)
	}

	answer, err := Normalize(resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.generator.Name(), err)
	}
	return answer, nil
}

// Prompt renders the full generation prompt.
func (c *Composer) Prompt(query string, passages []string, history []domain.Turn) string {
	var b strings.Builder

	b.WriteString(framing)
	b.WriteString("\n---\n\n**Context:**\n")
	b.WriteString(c.truncate(strings.Join(passages, "\n\n")))
	b.WriteString("\n\n")

	b.WriteString("**User Query:**\n")
	b.WriteString(strings.TrimSpace(query))
	b.WriteString("\n\n---\n\n")
	b.WriteString(formattingRules)

	// Prior turns go last, verbatim, nearest the answer.
	if turns := c.recent(history); len(turns) > 0 {
		b.WriteString("\n**Conversation so far:**\n")
		for _, t := range turns {
			fmt.Fprintf(&b, "%s: %s\n", roleLabel(t.Role), t.Content)
		}
	}
	b.WriteString("\nAnswer:")

	return b.String()
}

// recent returns the last historyTurns turns, oldest first.
func (c *Composer) recent(history []domain.Turn) []domain.Turn {
	if c.historyTurns == 0 || len(history) == 0 {
		return nil
	}
	if len(history) > c.historyTurns {
		history = history[len(history)-c.historyTurns:]
	}
	return history
}

// truncate cuts the context block to the token budget.
// Uses rough estimate of 4 characters per token.
func (c *Composer) truncate(block string) string {
	maxChars := c.maxContextTokens * 4
	if len(block) <= maxChars {
		return block
	}

	c.logger.Warn("truncating answer context",
		"chars", len(block),
		"max_chars", maxChars)

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(block[cut]) {
		cut--
	}
	return block[:cut]
}

func roleLabel(r domain.Role) string {
	if r == domain.RoleAssistant {
		return "Assistant"
	}
	return "User"
}
