package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"ragchat/internal/domain"
)

// RateLimited throttles calls to a remote embedder. Each EmbedDocuments or
// EmbedQuery call consumes one token.
type RateLimited struct {
	next    domain.Embedder
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a limiter allowing requestsPerSecond calls.
// A non-positive rate returns next unchanged.
func NewRateLimited(next domain.Embedder, requestsPerSecond float64) domain.Embedder {
	if requestsPerSecond <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (r *RateLimited) Name() string   { return r.next.Name() }
func (r *RateLimited) Dimension() int { return r.next.Dimension() }

func (r *RateLimited) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", domain.ErrEmbeddingService, err)
	}
	return r.next.EmbedDocuments(ctx, texts)
}

func (r *RateLimited) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", domain.ErrEmbeddingService, err)
	}
	return r.next.EmbedQuery(ctx, text)
}

// Prepare forwards to the wrapped embedder when it needs the corpus.
func (r *RateLimited) Prepare(corpus []string) error {
	if p, ok := r.next.(domain.CorpusPreparer); ok {
		return p.Prepare(corpus)
	}
	return nil
}

// ToFloat32 narrows a vector returned by an API that speaks float64.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
