package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"ragchat/internal/domain"
)

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"openai.base_url":    "RAGCHAT_OPENAI_BASE_URL",
	"chat.model":         "RAGCHAT_CHAT_MODEL",
	"simple_chat.model":  "RAGCHAT_SIMPLE_CHAT_MODEL",
	"embedder.model":     "RAGCHAT_EMBED_MODEL",
	"embedder.type":      "RAGCHAT_EMBEDDER",
	"vector_store.type":  "RAGCHAT_VECTOR_STORE",
	"ingest.source":      "RAGCHAT_SOURCE",
	"memory.persist_dir": "RAGCHAT_PERSIST_DIR",
	"history.redis.addr": "REDIS_ADDR",
	"qdrant.host":        "QDRANT_HOST",
	"qdrant.port":        "QDRANT_PORT",
	"weaviate.host":      "WEAVIATE_HOST",
	"log.level":          "RAGCHAT_LOG_LEVEL",
	"ui.mode":            "RAGCHAT_UI",
}

// ApplyEnv overlays environment variables on top of a loaded config.
// Setting REDIS_ADDR, QDRANT_HOST or WEAVIATE_HOST also creates the matching
// backend section when the file did not have one.
func ApplyEnv(cfg *AppConfig) error {
	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("%w: bind %s: %w", domain.ErrConfiguration, env, err)
		}
	}

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setString("openai.base_url", &cfg.OpenAI.BaseURL)
	setString("chat.model", &cfg.Chat.Model)
	setString("simple_chat.model", &cfg.SimpleChat.Model)
	setString("embedder.model", &cfg.Embedder.Model)
	setString("embedder.type", &cfg.Embedder.Type)
	setString("vector_store.type", &cfg.VectorStore.Type)
	setString("ingest.source", &cfg.Ingest.Source)
	setString("memory.persist_dir", &cfg.VectorStore.Memory.PersistDir)
	setString("log.level", &cfg.Log.Level)
	setString("ui.mode", &cfg.UI.Mode)

	if v.IsSet("history.redis.addr") {
		if cfg.History.Redis == nil {
			cfg.History.Redis = &RedisConfig{}
		}
		cfg.History.Redis.Addr = v.GetString("history.redis.addr")
	}
	if v.IsSet("qdrant.host") || v.IsSet("qdrant.port") {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		setString("qdrant.host", &cfg.VectorStore.Qdrant.Host)
		if v.IsSet("qdrant.port") {
			port := v.GetInt("qdrant.port")
			if port <= 0 {
				return fmt.Errorf("%w: invalid QDRANT_PORT %q", domain.ErrConfiguration, os.Getenv("QDRANT_PORT"))
			}
			cfg.VectorStore.Qdrant.Port = port
		}
	}
	if v.IsSet("weaviate.host") {
		if cfg.VectorStore.Weaviate == nil {
			cfg.VectorStore.Weaviate = &WeaviateConfig{}
		}
		cfg.VectorStore.Weaviate.Host = v.GetString("weaviate.host")
	}

	applyConfigDefaults(cfg)
	return nil
}

// APIKey resolves an API key from the named environment variable.
func APIKey(envName string) (string, error) {
	key := os.Getenv(envName)
	if key == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", domain.ErrConfiguration, envName)
	}
	return key, nil
}
