package gemini

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"ragchat/internal/domain"
	"ragchat/internal/llm"
)

// Client generates chat replies with a Gemini model.
type Client struct {
	client *genai.Client
	model  string
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: missing chat model", domain.ErrConfiguration)
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %w", domain.ErrConfiguration, err)
	}
	return &Client{client: c, model: cfg.Model}, nil
}

// request splits system messages into the system instruction; the other
// turns become contents with Gemini's user/model roles.
func request(messages []domain.Message, p domain.GenerationParams) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(p.Temperature)),
	}
	if p.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(p.TopP))
	}
	if p.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.MaxTokens)
	}
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			if cfg.SystemInstruction == nil {
				cfg.SystemInstruction = &genai.Content{}
			}
			cfg.SystemInstruction.Parts = append(cfg.SystemInstruction.Parts, &genai.Part{Text: m.Content})
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, cfg
}

func (c *Client) Complete(ctx context.Context, messages []domain.Message, p domain.GenerationParams) (string, error) {
	contents, cfg := request(messages, p)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrChatService, c.model, err)
	}
	return resp.Text(), nil
}

func (c *Client) Stream(ctx context.Context, messages []domain.Message, p domain.GenerationParams) iter.Seq2[string, error] {
	contents, cfg := request(messages, p)
	return llm.Once(func(yield func(string, error) bool) {
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents, cfg) {
			if err != nil {
				yield("", fmt.Errorf("%w: %s: %w", domain.ErrChatService, c.model, err))
				return
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	})
}
