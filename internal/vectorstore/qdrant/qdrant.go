package qdrant

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/qdrant/go-client/qdrant"

	"ragchat/internal/domain"
)

// Storage keeps chunks in a Qdrant collection over gRPC.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	client     *qdrant.Client
	collection string
	log        logr.Logger
}

type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

func NewStorage(cfg Config, log logr.Logger) (*Storage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect qdrant %s:%d: %w", domain.ErrVectorStore, cfg.Host, cfg.Port, err)
	}
	return &Storage{client: client, collection: cfg.Collection, log: log}, nil
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrVectorStore, dimension)
	}
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: check collection %s: %w", domain.ErrVectorStore, s.collection, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %s: %w", domain.ErrVectorStore, s.collection, err)
	}
	s.log.Info("created collection", "collection", s.collection, "dimension", dimension)
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrVectorStore, len(chunks), len(vectors))
	}
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(c.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"document_id": c.DocumentID,
				"source":      c.Source,
				"text":        c.Text,
				"index":       c.Index,
				"start":       c.Start,
				"end":         c.End,
				"overlap":     c.Overlap,
			}),
		}
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: upsert %d points: %w", domain.ErrVectorStore, len(points), err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", domain.ErrVectorStore, s.collection, err)
	}
	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		p := hit.GetPayload()
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				ID:         hit.GetId().GetUuid(),
				DocumentID: p["document_id"].GetStringValue(),
				Source:     p["source"].GetStringValue(),
				Text:       p["text"].GetStringValue(),
				Index:      int(p["index"].GetIntegerValue()),
				Start:      int(p["start"].GetIntegerValue()),
				End:        int(p["end"].GetIntegerValue()),
				Overlap:    int(p["overlap"].GetIntegerValue()),
			},
			Score: float64(hit.GetScore()),
		})
	}
	return results, nil
}

// Clear drops the collection; Init recreates it.
func (s *Storage) Clear(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: check collection %s: %w", domain.ErrVectorStore, s.collection, err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("%w: delete collection %s: %w", domain.ErrVectorStore, s.collection, err)
	}
	return nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("%w: check collection %s: %w", domain.ErrVectorStore, s.collection, err)
	}
	if !exists {
		return 0, nil
	}
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", domain.ErrVectorStore, s.collection, err)
	}
	return int(n), nil
}

func (s *Storage) Close() error { return s.client.Close() }
