package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

type countingEmbedder struct {
	calls    int
	prepared []string
}

func (c *countingEmbedder) Name() string   { return "counting" }
func (c *countingEmbedder) Dimension() int { return 2 }

func (c *countingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	c.calls++
	return []float32{0, 1}, nil
}

func (c *countingEmbedder) Prepare(corpus []string) error {
	c.prepared = corpus
	return nil
}

func TestNewRateLimitedDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	assert.Same(t, inner, NewRateLimited(inner, 0))
}

func TestRateLimitedForwards(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewRateLimited(inner, 1000)
	assert.Equal(t, "counting", e.Name())
	assert.Equal(t, 2, e.Dimension())

	_, err := e.EmbedDocuments(context.Background(), []string{"a"})
	require.NoError(t, err)
	_, err = e.EmbedQuery(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	p, ok := e.(domain.CorpusPreparer)
	require.True(t, ok)
	require.NoError(t, p.Prepare([]string{"x"}))
	assert.Equal(t, []string{"x"}, inner.prepared)
}

func TestRateLimitedCancelled(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewRateLimited(inner, 0.001)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EmbedQuery(ctx, "q")
	require.ErrorIs(t, err, domain.ErrEmbeddingService)
	assert.Zero(t, inner.calls)
}

func TestToFloat32(t *testing.T) {
	assert.Equal(t, []float32{0.5, -1}, ToFloat32([]float64{0.5, -1}))
}
