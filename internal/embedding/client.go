package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client shared by the embedding provider and the
// chat generator.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client. baseURL is optional and allows
// OpenAI-compatible gateways.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &Client{client: &client}, nil
}

// NewClientWithOptions creates a client from raw request options.
func NewClientWithOptions(opts ...option.RequestOption) *Client {
	client := openai.NewClient(opts...)
	return &Client{client: &client}
}

// Client returns the underlying OpenAI client for use in other packages (e.g., generation).
func (c *Client) Client() *openai.Client {
	return c.client
}
