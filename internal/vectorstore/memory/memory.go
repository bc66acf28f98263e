package memory

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"ragchat/internal/domain"
)

const snapshotFile = "index.gob"

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// With a directory set, every write is mirrored to a snapshot file there and
// the snapshot is loaded back on open.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	chunks    []domain.Chunk
	dir       string
}

func NewStorage() *Storage { return &Storage{} }

// Open returns a store persisted under dir, loading any existing snapshot.
func Open(dir string) (*Storage, error) {
	s := &Storage{dir: dir}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

type snapshot struct {
	Dimension int
	Chunks    []domain.Chunk
	Vectors   [][]float32
}

func (s *Storage) load() error {
	f, err := os.Open(filepath.Join(s.dir, snapshotFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: open snapshot: %w", domain.ErrVectorStore, err)
	}
	defer f.Close()
	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("%w: decode snapshot %s: %w", domain.ErrVectorStore, f.Name(), err)
	}
	s.dimension = snap.Dimension
	s.chunks = snap.Chunks
	s.vectors = snap.Vectors
	return nil
}

// persist writes the snapshot atomically. Callers hold the write lock.
func (s *Storage) persist() error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}
	tmp, err := os.CreateTemp(s.dir, snapshotFile+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}
	defer os.Remove(tmp.Name())
	snap := snapshot{Dimension: s.dimension, Chunks: s.chunks, Vectors: s.vectors}
	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encode snapshot: %w", domain.ErrVectorStore, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, snapshotFile)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}
	return nil
}

// Init fixes the vector dimension. Existing data is kept; a different
// dimension is only accepted while the store is empty.
func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrVectorStore, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension && len(s.chunks) > 0 {
		return fmt.Errorf("%w: store holds %d-dimensional vectors, got %d", domain.ErrVectorStore, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrVectorStore, len(chunks), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return fmt.Errorf("%w: store not initialised", domain.ErrVectorStore)
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("%w: vector dimension %d, want %d", domain.ErrVectorStore, len(v), s.dimension)
		}
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return s.persist()
}

func (s *Storage) Search(_ context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 || len(s.vectors) == 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, want %d", domain.ErrVectorStore, len(vector), s.dimension)
	}
	results := make([]domain.SearchResult, len(s.vectors))
	for i := range s.vectors {
		results[i] = domain.SearchResult{Chunk: s.chunks[i], Score: cosine(s.vectors[i], vector)}
	}
	// Stable, so equal scores keep insertion order.
	slices.SortStableFunc(results, func(a, b domain.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Clear drops all chunks and removes the snapshot file. Other files in the
// directory are left alone.
func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	s.dimension = 0
	if s.dir == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, snapshotFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}
	return nil
}

func (s *Storage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *Storage) Close() error { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
