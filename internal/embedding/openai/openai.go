package openai

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"ragchat/internal/domain"
	"ragchat/internal/embedding"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
// It works against NVIDIA's hosted endpoint as well as OpenAI or Ollama.
type Client struct {
	client     openai.Client
	model      string
	truncate   string
	dimensions int
	dimension  atomic.Int64
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	// Truncate is sent as the NVIDIA "truncate" extension when set.
	Truncate string
	// Dimensions requests reduced output size from models that support it.
	Dimensions int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing embeddings API key", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Client{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		truncate:   cfg.Truncate,
		dimensions: cfg.Dimensions,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension is known after the first successful call.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return c.embed(ctx, texts, "passage")
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text}, "query")
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: c.model,
	}
	if c.dimensions > 0 {
		params.Dimensions = openai.Int(int64(c.dimensions))
	}
	var opts []option.RequestOption
	if c.truncate != "" {
		// NVIDIA retrieval models distinguish passages from queries.
		opts = append(opts,
			option.WithJSONSet("input_type", inputType),
			option.WithJSONSet("truncate", c.truncate),
		)
	}

	resp, err := c.client.Embeddings.New(ctx, params, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingService, c.model, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d embeddings for %d inputs", domain.ErrEmbeddingService, c.model, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) || len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: %s returned a malformed embedding", domain.ErrEmbeddingService, c.model)
		}
		out[d.Index] = embedding.ToFloat32(d.Embedding)
	}
	for _, v := range out {
		if v == nil {
			return nil, fmt.Errorf("%w: %s returned duplicate embedding indexes", domain.ErrEmbeddingService, c.model)
		}
	}
	c.dimension.CompareAndSwap(0, int64(len(out[0])))
	return out, nil
}
