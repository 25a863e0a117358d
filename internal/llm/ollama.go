package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// DefaultOllamaModel is used when no Ollama generation model is configured.
const DefaultOllamaModel = "llama3.1"

// NewOllamaClient creates an Ollama API client. An empty host falls back to
// OLLAMA_HOST and then the Ollama default.
func NewOllamaClient(host string) (*api.Client, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	return api.NewClient(hostURL, http.DefaultClient), nil
}

// OllamaGenerator produces answers with a local Ollama model.
type OllamaGenerator struct {
	client      *api.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewOllamaGenerator(client *api.Client, model string, temperature float64, maxTokens int) *OllamaGenerator {
	if model == "" {
		model = DefaultOllamaModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OllamaGenerator{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (g *OllamaGenerator) Name() string {
	return "ollama:" + g.model
}

// Generate streams the response and returns it as one Completion.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (Response, error) {
	req := api.GenerateRequest{
		Model:  g.model,
		Prompt: prompt,
		Options: map[string]any{
			"temperature": g.temperature,
			"num_predict": g.maxTokens,
		},
	}

	var responseBuilder strings.Builder

	err := g.client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	return Completion{Text: responseBuilder.String()}, nil
}
