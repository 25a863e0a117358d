package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1024
)

// OpenAIGenerator produces answers with the chat completions API.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// OpenAIOption configures an OpenAIGenerator.
type OpenAIOption func(*OpenAIGenerator)

func WithTemperature(t float64) OpenAIOption {
	return func(g *OpenAIGenerator) { g.temperature = t }
}

func WithMaxTokens(n int) OpenAIOption {
	return func(g *OpenAIGenerator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// NewOpenAIGenerator creates a generator with the given OpenAI client.
// An empty model uses DefaultOpenAIModel.
func NewOpenAIGenerator(client *openai.Client, model string, opts ...OpenAIOption) *OpenAIGenerator {
	if model == "" {
		model = DefaultOpenAIModel
	}
	g := &OpenAIGenerator{
		client:      client,
		model:       model,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *OpenAIGenerator) Name() string {
	return "openai:" + g.model
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (Response, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(g.temperature),
		MaxTokens:   openai.Int(int64(g.maxTokens)),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: chat completion returned no choices", domain.ErrGenerationService)
	}

	msg := resp.Choices[0].Message
	return Message{Role: string(msg.Role), Content: msg.Content}, nil
}
