package domain

import (
	"context"
	"iter"
)

// Document represents a single source file loaded for ingestion.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a contiguous piece of a document used for indexing.
// Start and End are rune offsets into the document content; Overlap is the
// number of leading runes shared with the previous chunk.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string
	Text       string
	Index      int
	Start      int
	End        int
	Overlap    int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GenerationParams are the sampling parameters sent with every completion.
type GenerationParams struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts free text into vectors. Documents and queries are
// embedded separately because retrieval models often encode them differently.
type Embedder interface {
	Name() string
	Dimension() int
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CorpusPreparer is implemented by embedders that must see the corpus
// before they can embed anything.
type CorpusPreparer interface {
	Prepare(corpus []string) error
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// ChatModel is the chat-completion collaborator.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message, params GenerationParams) (string, error)
	// Stream returns the reply as a lazy sequence of text fragments. The
	// sequence can be ranged over once.
	Stream(ctx context.Context, messages []Message, params GenerationParams) iter.Seq2[string, error]
}

// HistoryStore keeps the conversation history of the simple chat.
type HistoryStore interface {
	Append(ctx context.Context, messages ...Message) error
	Messages(ctx context.Context) ([]Message, error)
	Reset(ctx context.Context) error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
