package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"ragchat/internal/domain"
	"ragchat/internal/metrics"
)

const defaultBatchSize = 32

type IndexOptions struct {
	// BatchSize is the number of chunks sent per EmbedDocuments call.
	BatchSize int
	Metrics   *metrics.Recorder
	Log       logr.Logger
}

// Index pairs an embedder with a vector store. Texts go in, nearest texts
// come out.
type Index struct {
	embedder  domain.Embedder
	store     domain.VectorStore
	batchSize int
	metrics   *metrics.Recorder
	log       logr.Logger
}

func NewIndex(embedder domain.Embedder, store domain.VectorStore, opts IndexOptions) *Index {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	return &Index{
		embedder:  embedder,
		store:     store,
		batchSize: opts.BatchSize,
		metrics:   opts.Metrics,
		log:       opts.Log,
	}
}

// Insert embeds chunks and adds them to the store.
func (x *Index) Insert(ctx context.Context, chunks []domain.Chunk) error {
	return x.insert(ctx, chunks, nil)
}

// InsertTexts stores each text as a standalone chunk.
func (x *Index) InsertTexts(ctx context.Context, texts []string) error {
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{
			ID:    uuid.NewString(),
			Text:  t,
			Index: i,
			End:   len([]rune(t)),
		}
	}
	return x.insert(ctx, chunks, nil)
}

// insert reports the number of chunks written after every batch.
func (x *Index) insert(ctx context.Context, chunks []domain.Chunk, progress func(int)) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := x.prepare(ctx, chunks); err != nil {
		return err
	}
	initialised := false
	for start := 0; start < len(chunks); start += x.batchSize {
		end := min(start+x.batchSize, len(chunks))
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		began := time.Now()
		vectors, err := x.embedder.EmbedDocuments(ctx, texts)
		x.metrics.Since(metrics.Embedding, began)
		if err != nil {
			return ensureKind(err, domain.ErrEmbeddingService, "embed documents")
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingService, len(vectors), len(batch))
		}

		if !initialised {
			if err := x.store.Init(ctx, len(vectors[0])); err != nil {
				return ensureKind(err, domain.ErrVectorStore, "init")
			}
			initialised = true
		}
		began = time.Now()
		err = x.store.Upsert(ctx, batch, vectors)
		x.metrics.Since(metrics.VectorUpsert, began)
		if err != nil {
			return ensureKind(err, domain.ErrVectorStore, "upsert")
		}
		x.metrics.ChunksIngested(len(batch))
		x.log.V(1).Info("inserted batch", "from", start, "to", end, "dimension", len(vectors[0]))
		if progress != nil {
			progress(len(batch))
		}
	}
	return nil
}

// prepare fits corpus-dependent embedders on chunks when nothing has been
// indexed with them yet.
func (x *Index) prepare(ctx context.Context, chunks []domain.Chunk) error {
	p, ok := x.embedder.(domain.CorpusPreparer)
	if !ok {
		return nil
	}
	n, err := x.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 && x.embedder.Dimension() > 0 {
		return nil
	}
	corpus := make([]string, len(chunks))
	for i, c := range chunks {
		corpus[i] = c.Text
	}
	if err := p.Prepare(corpus); err != nil {
		return ensureKind(err, domain.ErrEmbeddingService, "prepare")
	}
	x.log.V(1).Info("prepared embedder", "embedder", x.embedder.Name(), "dimension", x.embedder.Dimension())
	return nil
}

// Query returns at most k chunks ordered by descending similarity to text.
func (x *Index) Query(ctx context.Context, text string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	n, err := x.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	began := time.Now()
	vector, err := x.embedder.EmbedQuery(ctx, text)
	x.metrics.Since(metrics.Embedding, began)
	if err != nil {
		return nil, ensureKind(err, domain.ErrEmbeddingService, "embed query")
	}

	began = time.Now()
	results, err := x.store.Search(ctx, vector, k)
	x.metrics.Since(metrics.VectorSearch, began)
	if err != nil {
		return nil, ensureKind(err, domain.ErrVectorStore, "search")
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (x *Index) Clear(ctx context.Context) error {
	if err := x.store.Clear(ctx); err != nil {
		return ensureKind(err, domain.ErrVectorStore, "clear")
	}
	return nil
}

func (x *Index) Count(ctx context.Context) (int, error) {
	n, err := x.store.Count(ctx)
	if err != nil {
		return 0, ensureKind(err, domain.ErrVectorStore, "count")
	}
	return n, nil
}

// ensureKind wraps err with kind unless it already carries one.
func ensureKind(err error, kind error, op string) error {
	for _, k := range []error{
		domain.ErrConfiguration,
		domain.ErrIO,
		domain.ErrEmbeddingService,
		domain.ErrChatService,
		domain.ErrVectorStore,
	} {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", kind, op, err)
}
