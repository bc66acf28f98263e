package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ragchat/internal/domain"
	"ragchat/internal/log"
)

// OpenAIConfig holds connection details for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// GeminiConfig holds connection details for the Gemini API.
type GeminiConfig struct {
	BaseURL   string `yaml:"base_url,omitempty"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// ChatConfig selects the chat model and its generation parameters.
type ChatConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p,omitempty"`
	MaxTokens   int     `yaml:"max_tokens"`
	Stream      bool    `yaml:"stream"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type              string  `yaml:"type"`
	Model             string  `yaml:"model"`
	Truncate          string  `yaml:"truncate,omitempty"`
	Dimensions        int     `yaml:"dimensions,omitempty"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	MaxSize           int    `yaml:"max_size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk,omitempty"`
	OverlapSentences  int    `yaml:"overlap_sentences,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type     string          `yaml:"type"`
	Memory   MemoryConfig    `yaml:"memory"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty"`
	Weaviate *WeaviateConfig `yaml:"weaviate,omitempty"`
}

// MemoryConfig configures the in-process store. An empty PersistDir keeps
// everything in memory.
type MemoryConfig struct {
	PersistDir string `yaml:"persist_dir"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key,omitempty"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

// WeaviateConfig contains connection details for a Weaviate vector store.
type WeaviateConfig struct {
	Host   string `yaml:"host"`
	Scheme string `yaml:"scheme"`
	APIKey string `yaml:"api_key,omitempty"`
	Class  string `yaml:"class"`
}

// IngestConfig configures the ingestion run of the rag command.
type IngestConfig struct {
	Source       string `yaml:"source"`
	ForceRebuild bool   `yaml:"force_rebuild"`
	ShowProgress bool   `yaml:"show_progress"`
}

// RetrievalConfig configures query-time retrieval.
type RetrievalConfig struct {
	TopK        int  `yaml:"top_k"`
	ShowContext bool `yaml:"show_context"`
}

// HistoryConfig selects where the simple chat keeps its history and how much
// of it is sent on each turn.
type HistoryConfig struct {
	Type        string       `yaml:"type"`
	MaxMessages int          `yaml:"max_messages"`
	MaxChars    int          `yaml:"max_chars"`
	Redis       *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig contains connection details for the redis history store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
	TTLSecs  int    `yaml:"ttl_secs"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// UIConfig selects the interactive front-end.
type UIConfig struct {
	Mode string `yaml:"mode"`
}

// MetricsConfig enables the prometheus endpoint when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Chat        ChatConfig        `yaml:"chat"`
	SimpleChat  ChatConfig        `yaml:"simple_chat"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	History     HistoryConfig     `yaml:"history"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	UI          UIConfig          `yaml:"ui"`
	Log         log.Config        `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrConfiguration, path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports settings no component could run with.
func (c *AppConfig) Validate() error {
	var errs []error
	check := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("unknown %s %q", field, value))
	}
	check("chat.provider", c.Chat.Provider, "openai", "gemini")
	check("simple_chat.provider", c.SimpleChat.Provider, "openai", "gemini")
	check("embedder.type", c.Embedder.Type, "openai", "gemini", "tfidf")
	check("chunker.type", c.Chunker.Type, "window", "sentence", "recursive")
	check("vector_store.type", c.VectorStore.Type, "memory", "qdrant", "weaviate")
	check("history.type", c.History.Type, "memory", "redis")
	check("summarizer.type", c.Summarizer.Type, "frequency", "none")
	check("ui.mode", c.UI.Mode, "repl", "tui")

	if c.Chunker.Overlap < 0 || c.Chunker.MaxSize <= c.Chunker.Overlap {
		errs = append(errs, fmt.Errorf("chunker requires max_size > overlap >= 0, got %d/%d", c.Chunker.MaxSize, c.Chunker.Overlap))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	if c.VectorStore.Type == "qdrant" && c.VectorStore.Qdrant == nil {
		errs = append(errs, errors.New("qdrant config missing"))
	}
	if c.VectorStore.Type == "weaviate" && c.VectorStore.Weaviate == nil {
		errs = append(errs, errors.New("weaviate config missing"))
	}
	if c.History.Type == "redis" && c.History.Redis == nil {
		errs = append(errs, errors.New("redis history config missing"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragchat", "config.yaml"), nil
}

// Default returns the configuration the programs run with when no file is
// present: NVIDIA-hosted models, in-memory store, rebuild on every run.
func Default() *AppConfig {
	cfg := &AppConfig{
		OpenAI: OpenAIConfig{
			BaseURL:     "https://integrate.api.nvidia.com/v1",
			APIKeyEnv:   "NVIDIA_API_KEY",
			TimeoutSecs: 60,
		},
		Gemini: GeminiConfig{APIKeyEnv: "GEMINI_API_KEY"},
		Chat: ChatConfig{
			Provider:    "openai",
			Model:       "meta/llama-3.3-70b-instruct",
			Temperature: 0.2,
			TopP:        0.7,
			MaxTokens:   1024,
			Stream:      true,
		},
		SimpleChat: ChatConfig{
			Provider:    "openai",
			Model:       "nvidia/mistral-nemo-minitron-8b-8k-instruct",
			Temperature: 0.7,
			MaxTokens:   150,
		},
		Embedder: EmbedderConfig{
			Type:      "openai",
			Model:     "nvidia/llama-3.2-nv-embedqa-1b-v2",
			Truncate:  "NONE",
			BatchSize: 32,
		},
		Chunker:     ChunkerConfig{Type: "window", MaxSize: 500, Overlap: 50},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Ingest:      IngestConfig{Source: "data.txt", ForceRebuild: true, ShowProgress: true},
		Retrieval:   RetrievalConfig{TopK: 3, ShowContext: true},
		History:     HistoryConfig{Type: "memory", MaxMessages: 20, MaxChars: 16000},
		Summarizer:  SummarizerConfig{Type: "frequency", MaxSentences: 3},
		UI:          UIConfig{Mode: "repl"},
		Log:         log.Config{Level: "warn", Format: "console"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.Type == "sentence" && cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.OpenAI.TimeoutSecs == 0 {
		cfg.OpenAI.TimeoutSecs = 60
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.Host == "" {
			q.Host = "localhost"
		}
		if q.Port == 0 {
			q.Port = 6334
		}
		if q.Collection == "" {
			q.Collection = "ragchat"
		}
	}
	if w := cfg.VectorStore.Weaviate; w != nil {
		if w.Host == "" {
			w.Host = "localhost:8080"
		}
		if w.Scheme == "" {
			w.Scheme = "http"
		}
		if w.Class == "" {
			w.Class = "RagChunk"
		}
	}
	if r := cfg.History.Redis; r != nil {
		if r.Addr == "" {
			r.Addr = "127.0.0.1:6379"
		}
		if r.Key == "" {
			r.Key = "ragchat:history"
		}
	}
}
