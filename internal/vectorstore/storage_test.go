package vectorstore

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/vectorstore/memory"
)

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), config.VectorStoreConfig{Type: "memory"}, logr.Discard())
	require.NoError(t, err)
	assert.IsType(t, &memory.Storage{}, s)

	s, err = Open(context.Background(), config.VectorStoreConfig{
		Type:   "memory",
		Memory: config.MemoryConfig{PersistDir: t.TempDir()},
	}, logr.Discard())
	require.NoError(t, err)
	assert.IsType(t, &memory.Storage{}, s)
}

func TestOpenErrors(t *testing.T) {
	for _, cfg := range []config.VectorStoreConfig{
		{Type: "qdrant"},
		{Type: "weaviate"},
		{Type: "chroma"},
	} {
		_, err := Open(context.Background(), cfg, logr.Discard())
		require.ErrorIs(t, err, domain.ErrConfiguration, cfg.Type)
	}
}
