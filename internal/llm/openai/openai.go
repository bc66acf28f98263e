package openai

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"ragchat/internal/domain"
	"ragchat/internal/llm"
)

// Client talks to any OpenAI-compatible chat completions endpoint.
type Client struct {
	client openai.Client
	model  string
}

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing chat API key", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: missing chat model", domain.ErrConfiguration)
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
	return &Client{client: openai.NewClient(opts...), model: cfg.Model}, nil
}

func (c *Client) params(messages []domain.Message, p domain.GenerationParams) openai.ChatCompletionNewParams {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case domain.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    out,
		Temperature: openai.Float(p.Temperature),
	}
	if p.TopP > 0 {
		params.TopP = openai.Float(p.TopP)
	}
	if p.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.MaxTokens))
	}
	return params
}

func (c *Client) Complete(ctx context.Context, messages []domain.Message, p domain.GenerationParams) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(messages, p))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrChatService, c.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", domain.ErrChatService, c.model)
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream requests a streamed completion. Nothing is sent until the returned
// sequence is ranged over; stopping early closes the connection.
func (c *Client) Stream(ctx context.Context, messages []domain.Message, p domain.GenerationParams) iter.Seq2[string, error] {
	params := c.params(messages, p)
	return llm.Once(func(yield func(string, error) bool) {
		stream := c.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("%w: %s: %w", domain.ErrChatService, c.model, err))
		}
	})
}
