package vectorstore

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/vectorstore/memory"
	"ragchat/internal/vectorstore/qdrant"
	"ragchat/internal/vectorstore/weaviate"
)

// Open builds the vector store selected by cfg.Type.
func Open(_ context.Context, cfg config.VectorStoreConfig, log logr.Logger) (domain.VectorStore, error) {
	switch cfg.Type {
	case "memory", "":
		if cfg.Memory.PersistDir == "" {
			return memory.NewStorage(), nil
		}
		log.V(1).Info("using persisted memory store", "dir", cfg.Memory.PersistDir)
		s, err := memory.Open(cfg.Memory.PersistDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("%w: qdrant config missing", domain.ErrConfiguration)
		}
		s, err := qdrant.NewStorage(qdrant.Config{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: cfg.Qdrant.Collection,
		}, log.WithName("qdrant"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "weaviate":
		if cfg.Weaviate == nil {
			return nil, fmt.Errorf("%w: weaviate config missing", domain.ErrConfiguration)
		}
		s, err := weaviate.NewStorage(weaviate.Config{
			Host:   cfg.Weaviate.Host,
			Scheme: cfg.Weaviate.Scheme,
			APIKey: cfg.Weaviate.APIKey,
			Class:  cfg.Weaviate.Class,
		}, log.WithName("weaviate"))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store type %q", domain.ErrConfiguration, cfg.Type)
	}
}
