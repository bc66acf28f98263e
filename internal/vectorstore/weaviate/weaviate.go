package weaviate

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"ragchat/internal/domain"
)

// Storage keeps chunks as objects of one Weaviate class with vectors
// supplied by the caller (vectorizer "none").
type Storage struct {
	client *weaviate.Client
	class  string
	log    logr.Logger
}

type Config struct {
	Host   string
	Scheme string
	APIKey string
	Class  string
}

var properties = []*models.Property{
	{Name: "text", DataType: []string{"text"}},
	{Name: "source", DataType: []string{"text"}},
	{Name: "documentId", DataType: []string{"text"}},
	{Name: "chunkId", DataType: []string{"text"}},
	{Name: "index", DataType: []string{"int"}},
	{Name: "start", DataType: []string{"int"}},
	{Name: "end", DataType: []string{"int"}},
	{Name: "overlap", DataType: []string{"int"}},
}

var resultFields = []graphql.Field{
	{Name: "text"},
	{Name: "source"},
	{Name: "documentId"},
	{Name: "chunkId"},
	{Name: "index"},
	{Name: "start"},
	{Name: "end"},
	{Name: "overlap"},
	{Name: "_additional { id distance }"},
}

func NewStorage(cfg Config, log logr.Logger) (*Storage, error) {
	wcfg := weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create weaviate client: %w", domain.ErrVectorStore, err)
	}
	return &Storage{client: client, class: cfg.Class, log: log}, nil
}

func (s *Storage) classExists(ctx context.Context) (bool, error) {
	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: get schema: %w", domain.ErrVectorStore, err)
	}
	for _, class := range schema.Classes {
		if class.Class == s.class {
			return true, nil
		}
	}
	return false, nil
}

// Init creates the class if missing. Weaviate fixes the dimension on the
// first inserted vector.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrVectorStore, dimension)
	}
	exists, err := s.classExists(ctx)
	if err != nil || exists {
		return err
	}
	class := &models.Class{
		Class:      s.class,
		Properties: properties,
		Vectorizer: "none",
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("%w: create class %s: %w", domain.ErrVectorStore, s.class, err)
	}
	s.log.Info("created class", "class", s.class)
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrVectorStore, len(chunks), len(vectors))
	}
	objs := make([]*models.Object, len(chunks))
	for i, c := range chunks {
		objs[i] = &models.Object{
			Class: s.class,
			Properties: map[string]interface{}{
				"text":       c.Text,
				"source":     c.Source,
				"documentId": c.DocumentID,
				"chunkId":    c.ID,
				"index":      c.Index,
				"start":      c.Start,
				"end":        c.End,
				"overlap":    c.Overlap,
			},
			Vector: vectors[i],
		}
	}
	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: batch insert %d objects: %w", domain.ErrVectorStore, len(objs), err)
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil {
			var msgs []string
			for _, e := range r.Result.Errors.Error {
				msgs = append(msgs, e.Message)
			}
			return fmt.Errorf("%w: batch insert: %s", domain.ErrVectorStore, strings.Join(msgs, "; "))
		}
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	result, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(resultFields...).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", domain.ErrVectorStore, s.class, err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("%w: query %s: %s", domain.ErrVectorStore, s.class, result.Errors[0].Message)
	}

	var results []domain.SearchResult
	data, _ := result.Data["Get"].(map[string]interface{})
	objects, _ := data[s.class].([]interface{})
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		additional, _ := m["_additional"].(map[string]interface{})
		distance, _ := additional["distance"].(float64)
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				ID:         str(m["chunkId"]),
				DocumentID: str(m["documentId"]),
				Source:     str(m["source"]),
				Text:       str(m["text"]),
				Index:      num(m["index"]),
				Start:      num(m["start"]),
				End:        num(m["end"]),
				Overlap:    num(m["overlap"]),
			},
			// Cosine distance, so similarity is 1 - distance.
			Score: 1 - distance,
		})
	}
	return results, nil
}

// Clear deletes the class with all its objects.
func (s *Storage) Clear(ctx context.Context) error {
	exists, err := s.classExists(ctx)
	if err != nil || !exists {
		return err
	}
	if err := s.client.Schema().ClassDeleter().WithClassName(s.class).Do(ctx); err != nil {
		return fmt.Errorf("%w: delete class %s: %w", domain.ErrVectorStore, s.class, err)
	}
	return nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	exists, err := s.classExists(ctx)
	if err != nil || !exists {
		return 0, err
	}
	result, err := s.client.GraphQL().Aggregate().
		WithClassName(s.class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", domain.ErrVectorStore, s.class, err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("%w: count %s: %s", domain.ErrVectorStore, s.class, result.Errors[0].Message)
	}
	agg, _ := result.Data["Aggregate"].(map[string]interface{})
	rows, _ := agg[s.class].([]interface{})
	if len(rows) == 0 {
		return 0, nil
	}
	row, _ := rows[0].(map[string]interface{})
	meta, _ := row["meta"].(map[string]interface{})
	return num(meta["count"]), nil
}

func (s *Storage) Close() error { return nil }

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func num(v interface{}) int {
	f, _ := v.(float64)
	return int(f)
}
