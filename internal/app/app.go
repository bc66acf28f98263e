// Package app assembles the configured collaborators and runs the chat
// programs on top of them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"

	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/embedding"
	geminiemb "ragchat/internal/embedding/gemini"
	openaiemb "ragchat/internal/embedding/openai"
	"ragchat/internal/embedding/tfidf"
	"ragchat/internal/history"
	geminichat "ragchat/internal/llm/gemini"
	openaichat "ragchat/internal/llm/openai"
	"ragchat/internal/metrics"
	"ragchat/internal/service"
	"ragchat/internal/summarizer"
	"ragchat/internal/vectorstore"
)

type closer struct {
	name string
	fn   func() error
}

// App owns every client built from the configuration. Close releases them
// in reverse order of creation.
type App struct {
	cfg     *config.AppConfig
	log     logr.Logger
	metrics *metrics.Recorder
	closers []closer

	// Progress receives the ingestion progress bar.
	Progress io.Writer
}

// New validates cfg and starts the metrics endpoint when one is configured.
func New(cfg *config.AppConfig, log logr.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, log: log}
	if addr := cfg.Metrics.ListenAddr; addr != "" {
		a.metrics = metrics.NewRecorder()
		bound, shutdown, err := a.metrics.Serve(addr, log.WithName("metrics"))
		if err != nil {
			return nil, fmt.Errorf("%w: metrics listener: %w", domain.ErrConfiguration, err)
		}
		log.Info("metrics endpoint up", "addr", bound)
		a.onClose("metrics", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return shutdown(ctx)
		})
	}
	return a, nil
}

func (a *App) Config() *config.AppConfig { return a.cfg }

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ChatModel builds the chat collaborator described by cc.
func (a *App) ChatModel(ctx context.Context, cc config.ChatConfig) (domain.ChatModel, error) {
	switch cc.Provider {
	case "openai", "":
		key, err := config.APIKey(a.cfg.OpenAI.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		c, err := openaichat.NewClient(openaichat.Config{
			BaseURL:    a.cfg.OpenAI.BaseURL,
			APIKey:     key,
			Model:      cc.Model,
			Timeout:    time.Duration(a.cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: a.cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "gemini":
		key, err := config.APIKey(a.cfg.Gemini.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		c, err := geminichat.NewClient(ctx, geminichat.Config{
			APIKey:  key,
			BaseURL: a.cfg.Gemini.BaseURL,
			Model:   cc.Model,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown chat provider %q", domain.ErrConfiguration, cc.Provider)
	}
}

func (a *App) Embedder(ctx context.Context) (domain.Embedder, error) {
	ec := a.cfg.Embedder
	var emb domain.Embedder
	switch ec.Type {
	case "tfidf":
		emb = tfidf.NewEmbedder()
	case "openai", "":
		key, err := config.APIKey(a.cfg.OpenAI.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		client, err := openaiemb.NewClient(openaiemb.Config{
			BaseURL:    a.cfg.OpenAI.BaseURL,
			APIKey:     key,
			Model:      ec.Model,
			Timeout:    time.Duration(a.cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: a.cfg.OpenAI.MaxRetries,
			Truncate:   ec.Truncate,
			Dimensions: ec.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		emb = client
	case "gemini":
		key, err := config.APIKey(a.cfg.Gemini.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		client, err := geminiemb.NewClient(ctx, geminiemb.Config{
			APIKey:     key,
			BaseURL:    a.cfg.Gemini.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		emb = client
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrConfiguration, ec.Type)
	}
	return embedding.NewRateLimited(emb, ec.RequestsPerSecond), nil
}

func (a *App) Chunker() (domain.Chunker, error) {
	cc := a.cfg.Chunker
	var (
		ch  domain.Chunker
		err error
	)
	switch cc.Type {
	case "window", "":
		ch, err = chunker.NewWindow(cc.MaxSize, cc.Overlap)
	case "sentence":
		ch = chunker.NewSentenceChunker(cc.SentencesPerChunk, cc.OverlapSentences)
	case "recursive":
		ch, err = chunker.NewRecursive(cc.MaxSize, cc.Overlap)
	default:
		err = fmt.Errorf("%w: unknown chunker %q", domain.ErrConfiguration, cc.Type)
	}
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (a *App) VectorStore(ctx context.Context) (domain.VectorStore, error) {
	st, err := vectorstore.Open(ctx, a.cfg.VectorStore, a.log.WithName("vectorstore"))
	if err != nil {
		return nil, err
	}
	a.onClose("vector store", st.Close)
	return st, nil
}

func (a *App) History() (domain.HistoryStore, error) {
	hc := a.cfg.History
	switch hc.Type {
	case "memory", "":
		return history.NewInMemory(), nil
	case "redis":
		if hc.Redis == nil {
			return nil, fmt.Errorf("%w: redis history config missing", domain.ErrConfiguration)
		}
		st := history.NewRedis(history.RedisConfig{
			Addr:     hc.Redis.Addr,
			Password: hc.Redis.Password,
			DB:       hc.Redis.DB,
			Key:      hc.Redis.Key,
			TTL:      time.Duration(hc.Redis.TTLSecs) * time.Second,
			Keep:     hc.MaxMessages,
		})
		a.onClose("redis history", st.Close)
		return st, nil
	default:
		return nil, fmt.Errorf("%w: unknown history store %q", domain.ErrConfiguration, hc.Type)
	}
}

// Summarizer returns nil when summaries are disabled.
func (a *App) Summarizer() domain.Summarizer {
	switch a.cfg.Summarizer.Type {
	case "none":
		return nil
	default:
		return summarizer.NewFrequencySummarizer()
	}
}

// Index builds the vector store adapter over the configured embedder and store.
func (a *App) Index(ctx context.Context) (*service.Index, error) {
	emb, err := a.Embedder(ctx)
	if err != nil {
		return nil, err
	}
	st, err := a.VectorStore(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewIndex(emb, st, service.IndexOptions{
		BatchSize: a.cfg.Embedder.BatchSize,
		Metrics:   a.metrics,
		Log:       a.log.WithName("index"),
	}), nil
}

func (a *App) Ingestor(idx *service.Index) (*service.Ingestor, error) {
	ch, err := a.Chunker()
	if err != nil {
		return nil, err
	}
	opts := service.IngestOptions{
		SummarySentences: a.cfg.Summarizer.MaxSentences,
		Log:              a.log.WithName("ingest"),
	}
	if a.cfg.Ingest.ShowProgress {
		opts.Progress = a.Progress
	}
	return service.NewIngestor(ch, idx, a.Summarizer(), opts), nil
}

func params(cc config.ChatConfig) domain.GenerationParams {
	return domain.GenerationParams{
		Temperature: cc.Temperature,
		TopP:        cc.TopP,
		MaxTokens:   cc.MaxTokens,
	}
}
