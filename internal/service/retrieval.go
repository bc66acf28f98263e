package service

import (
	"context"

	"github.com/go-logr/logr"

	"ragchat/internal/domain"
)

// Retriever answers the top-k chunk texts for a query.
type Retriever struct {
	index *Index
	log   logr.Logger
}

func NewRetriever(index *Index, log logr.Logger) *Retriever {
	return &Retriever{index: index, log: log}
}

func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	results, err := r.RetrieveResults(ctx, query, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Chunk.Text
	}
	return texts, nil
}

// RetrieveResults is Retrieve with scores and chunk metadata.
func (r *Retriever) RetrieveResults(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	results, err := r.index.Query(ctx, query, k)
	if err != nil {
		return nil, err
	}
	for i, res := range results {
		r.log.V(1).Info("retrieved chunk", "rank", i+1, "score", res.Score, "source", res.Chunk.Source, "index", res.Chunk.Index)
	}
	return results, nil
}
