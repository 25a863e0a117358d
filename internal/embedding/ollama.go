package embedding

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"
)

// DefaultOllamaModel is used when no Ollama embedding model is configured.
const DefaultOllamaModel = "nomic-embed-text"

// OllamaProvider embeds text through a local Ollama server.
type OllamaProvider struct {
	client *api.Client
	model  string
}

// NewOllamaProvider creates a provider for model using client.
func NewOllamaProvider(client *api.Client, model string) *OllamaProvider {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{client: client, model: model}
}

func (p *OllamaProvider) Name() string {
	return "ollama:" + p.model
}

func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.Embed(ctx, &api.EmbedRequest{
		Model: p.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	return resp.Embeddings, nil
}
