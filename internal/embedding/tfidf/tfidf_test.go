package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func TestEmbedBeforePrepare(t *testing.T) {
	e := NewEmbedder()
	assert.Equal(t, 0, e.Dimension())
	_, err := e.EmbedQuery(context.Background(), "sky")
	require.ErrorIs(t, err, domain.ErrEmbeddingService)
}

func TestPrepareAndEmbed(t *testing.T) {
	e := NewEmbedder()
	corpus := []string{"The sky is blue.", "Grass is green.", "The ocean is blue and deep."}
	require.NoError(t, e.Prepare(corpus))
	// sky blue grass green ocean deep
	assert.Equal(t, 6, e.Dimension())

	docs, err := e.EmbedDocuments(context.Background(), corpus)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for _, v := range docs {
		assert.InDelta(t, 1.0, norm(v), 1e-5)
	}

	q, err := e.EmbedQuery(context.Background(), "What color is the sky?")
	require.NoError(t, err)
	assert.Greater(t, dot(q, docs[0]), dot(q, docs[1]))
	assert.Greater(t, dot(q, docs[0]), dot(q, docs[2]))
}

func TestEmbedUnknownTermsIsZeroVector(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare([]string{"alpha beta"}))
	v, err := e.EmbedQuery(context.Background(), "gamma")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, v)
}

func TestPrepareErrors(t *testing.T) {
	e := NewEmbedder()
	require.ErrorIs(t, e.Prepare(nil), domain.ErrEmbeddingService)
	require.ErrorIs(t, e.Prepare([]string{"the and of", "123"}), domain.ErrEmbeddingService)
}

func TestEmbedDocumentsHonoursContext(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare([]string{"alpha"}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.EmbedDocuments(ctx, []string{"alpha"})
	require.ErrorIs(t, err, context.Canceled)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func norm(v []float32) float64 { return math.Sqrt(dot(v, v)) }
