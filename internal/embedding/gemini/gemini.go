package gemini

import (
	"context"
	"fmt"
	"sync/atomic"

	"google.golang.org/genai"

	"ragchat/internal/domain"
)

// Client embeds text with the Gemini embedding API.
type Client struct {
	genAi      *genai.Client
	model      string
	dimensions *int32
	dimension  atomic.Int64
}

// Config configures the Gemini embeddings client.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-embedding-001"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %w", domain.ErrConfiguration, err)
	}
	client := &Client{genAi: c, model: cfg.Model}
	if cfg.Dimensions > 0 {
		d := int32(cfg.Dimensions)
		client.dimensions = &d
	}
	return client, nil
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Dimension() int { return int(c.dimension.Load()) }

func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return c.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
	}
	res, err := c.genAi.Models.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: c.dimensions,
		TaskType:             taskType,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingService, c.model, err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d embeddings for %d inputs", domain.ErrEmbeddingService, c.model, len(res.Embeddings), len(texts))
	}
	out := make([][]float32, 0, len(texts))
	for _, e := range res.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: %s returned an empty embedding", domain.ErrEmbeddingService, c.model)
		}
		out = append(out, e.Values)
	}
	c.dimension.CompareAndSwap(0, int64(len(out[0])))
	return out, nil
}
