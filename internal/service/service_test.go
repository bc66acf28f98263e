package service

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/chunker"
	"ragchat/internal/domain"
	"ragchat/internal/embedding/tfidf"
	"ragchat/internal/summarizer"
	"ragchat/internal/vectorstore/memory"
)

// identityEmbedder maps each known text to its own axis.
type identityEmbedder struct {
	vocab []string
	calls int
	err   error
}

func (e *identityEmbedder) Name() string   { return "identity" }
func (e *identityEmbedder) Dimension() int { return len(e.vocab) }

func (e *identityEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *identityEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *identityEmbedder) vector(text string) []float32 {
	v := make([]float32, len(e.vocab))
	if i := slices.Index(e.vocab, text); i >= 0 {
		v[i] = 1
	}
	return v
}

func newIndex(e domain.Embedder, batch int) *Index {
	return NewIndex(e, memory.NewStorage(), IndexOptions{BatchSize: batch, Log: logr.Discard()})
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInsertTextsThenQueryReturnsEachText(t *testing.T) {
	ctx := context.Background()
	texts := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	e := &identityEmbedder{vocab: texts}
	idx := newIndex(e, 2)

	require.NoError(t, idx.InsertTexts(ctx, texts))
	assert.Equal(t, 3, e.calls)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(texts), n)

	for _, text := range texts {
		res, err := idx.Query(ctx, text, 1)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, text, res[0].Chunk.Text)
		assert.InDelta(t, 1.0, res[0].Score, 1e-6)
		assert.NotEmpty(t, res[0].Chunk.ID)
	}
}

func TestClearThenQueryIsEmpty(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(&identityEmbedder{vocab: []string{"a", "b"}}, 0)
	require.NoError(t, idx.InsertTexts(ctx, []string{"a", "b"}))
	require.NoError(t, idx.Clear(ctx))

	res, err := idx.Query(ctx, "a", 3)
	require.NoError(t, err)
	assert.Empty(t, res)
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueryNonPositiveK(t *testing.T) {
	ctx := context.Background()
	e := &identityEmbedder{vocab: []string{"a"}}
	idx := newIndex(e, 0)
	require.NoError(t, idx.InsertTexts(ctx, []string{"a"}))

	res, err := idx.Query(ctx, "a", 0)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestQueryEmptyStoreSkipsEmbedder(t *testing.T) {
	e := &identityEmbedder{err: errors.New("must not be called")}
	res, err := newIndex(e, 0).Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestInsertEmbedderFailure(t *testing.T) {
	cause := errors.New("boom")
	idx := newIndex(&identityEmbedder{vocab: []string{"a"}, err: cause}, 0)

	err := idx.InsertTexts(context.Background(), []string{"a"})
	require.ErrorIs(t, err, domain.ErrEmbeddingService)
	require.ErrorIs(t, err, cause)
}

func TestInsertKeepsExistingKind(t *testing.T) {
	cause := errors.Join(domain.ErrVectorStore, errors.New("down"))
	idx := newIndex(&identityEmbedder{vocab: []string{"a"}, err: cause}, 0)

	err := idx.InsertTexts(context.Background(), []string{"a"})
	require.ErrorIs(t, err, domain.ErrVectorStore)
	assert.NotErrorIs(t, err, domain.ErrEmbeddingService)
}

func newIngestor(t *testing.T, maxSize, overlap int, opts IngestOptions) (*Ingestor, *Retriever) {
	t.Helper()
	w, err := chunker.NewWindow(maxSize, overlap)
	require.NoError(t, err)
	idx := NewIndex(tfidf.NewEmbedder(), memory.NewStorage(), IndexOptions{Log: logr.Discard()})
	opts.Log = logr.Discard()
	return NewIngestor(w, idx, summarizer.NewFrequencySummarizer(), opts), NewRetriever(idx, logr.Discard())
}

func TestIngestSkyExample(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "data.txt", "The sky is blue. Grass is green.")
	ing, ret := newIngestor(t, 500, 50, IngestOptions{SummarySentences: 3})

	report, err := ing.Ingest(ctx, path, true)
	require.NoError(t, err)
	assert.Equal(t, path, report.Source)
	assert.Equal(t, 1, report.Chunks)
	assert.Equal(t, 1, report.StoreSize)
	assert.Equal(t, "The sky is blue. Grass is green.", report.Summary)

	texts, err := ret.Retrieve(ctx, "What color is the sky?", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"The sky is blue. Grass is green."}, texts)
}

func TestIngestRebuildPolicy(t *testing.T) {
	ctx := context.Background()
	var b strings.Builder
	for i := range 40 {
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat("x", i%7+1))
		b.WriteString(" talks about vectors and chunks. ")
	}
	path := writeFile(t, "long.txt", b.String())
	var progress bytes.Buffer
	ing, _ := newIngestor(t, 120, 20, IngestOptions{Progress: &progress})

	first, err := ing.Ingest(ctx, path, true)
	require.NoError(t, err)
	require.Greater(t, first.Chunks, 1)
	assert.Equal(t, first.Chunks, first.StoreSize)
	assert.Empty(t, first.Summary)
	assert.NotZero(t, progress.Len())

	second, err := ing.Ingest(ctx, path, true)
	require.NoError(t, err)
	assert.Equal(t, second.Chunks, second.StoreSize)

	third, err := ing.Ingest(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, 2*third.Chunks, third.StoreSize)
}

func TestIngestMissingFile(t *testing.T) {
	ing, _ := newIngestor(t, 500, 50, IngestOptions{})
	_, err := ing.Ingest(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), true)
	require.ErrorIs(t, err, domain.ErrIO)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestIngestEmptyFile(t *testing.T) {
	ing, ret := newIngestor(t, 500, 50, IngestOptions{})
	report, err := ing.Ingest(context.Background(), writeFile(t, "empty.txt", ""), true)
	require.NoError(t, err)
	assert.Zero(t, report.Chunks)
	assert.Zero(t, report.StoreSize)

	texts, err := ret.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestReadDocument(t *testing.T) {
	path := writeFile(t, "notes.md", "# title\nbody")
	doc, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "# title\nbody", doc.Content)
	assert.Equal(t, path, doc.Path)
	assert.Len(t, doc.ID, 16)

	again, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again.ID)
}

func TestReadDocumentMissingOfficeFile(t *testing.T) {
	_, err := ReadDocument(filepath.Join(t.TempDir(), "missing.docx"))
	require.ErrorIs(t, err, domain.ErrIO)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRetrieveResultsOrdered(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(&identityEmbedder{vocab: []string{"a", "b"}}, 0)
	require.NoError(t, idx.InsertTexts(ctx, []string{"a", "b"}))

	res, err := NewRetriever(idx, logr.Discard()).RetrieveResults(ctx, "b", 5)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "b", res[0].Chunk.Text)
	assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
}
