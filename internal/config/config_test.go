package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 500, cfg.Chunker.MaxSize)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, "data.txt", cfg.Ingest.Source)
	assert.True(t, cfg.Ingest.ForceRebuild)
	assert.True(t, cfg.Chat.Stream)
	assert.False(t, cfg.SimpleChat.Stream)
	assert.Equal(t, 20, cfg.History.MaxMessages)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
chunker:
  max_size: 200
  overlap: 20
vector_store:
  type: qdrant
  qdrant:
    host: qdrant.local
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Chunker.MaxSize)
	assert.Equal(t, 20, cfg.Chunker.Overlap)
	assert.Equal(t, "window", cfg.Chunker.Type)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "qdrant.local", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, 6334, cfg.VectorStore.Qdrant.Port)
	assert.Equal(t, "ragchat", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, "meta/llama-3.3-70b-instruct", cfg.Chat.Model)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker: [unclosed"), 0o644))

	_, err := Load(path)
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Retrieval.TopK = 7
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"overlap equals size", func(c *AppConfig) { c.Chunker.Overlap = c.Chunker.MaxSize }},
		{"negative overlap", func(c *AppConfig) { c.Chunker.Overlap = -1 }},
		{"zero top k", func(c *AppConfig) { c.Retrieval.TopK = 0 }},
		{"unknown store", func(c *AppConfig) { c.VectorStore.Type = "pinecone" }},
		{"qdrant without section", func(c *AppConfig) { c.VectorStore.Type = "qdrant" }},
		{"unknown ui", func(c *AppConfig) { c.UI.Mode = "web" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), domain.ErrConfiguration)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RAGCHAT_CHAT_MODEL", "some/model")
	t.Setenv("RAGCHAT_SOURCE", "notes.md")
	t.Setenv("QDRANT_HOST", "vectors")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("REDIS_ADDR", "cache:6380")

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, "some/model", cfg.Chat.Model)
	assert.Equal(t, "notes.md", cfg.Ingest.Source)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "vectors", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, 7000, cfg.VectorStore.Qdrant.Port)
	require.NotNil(t, cfg.History.Redis)
	assert.Equal(t, "cache:6380", cfg.History.Redis.Addr)
	assert.Equal(t, "ragchat:history", cfg.History.Redis.Key)
}

func TestApplyEnvUnsetLeavesConfig(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, Default(), cfg)
}

func TestAPIKey(t *testing.T) {
	t.Setenv("RAGCHAT_TEST_KEY", "secret")
	key, err := APIKey("RAGCHAT_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "secret", key)

	_, err = APIKey("RAGCHAT_TEST_KEY_MISSING")
	require.ErrorIs(t, err, domain.ErrConfiguration)
}
