package domain

import "errors"

// Error kinds. Components wrap them together with the underlying cause:
//
//	fmt.Errorf("%w: embed query: %w", domain.ErrEmbeddingService, err)
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrIO               = errors.New("io error")
	ErrEmbeddingService = errors.New("embedding service error")
	ErrChatService      = errors.New("chat service error")
	ErrVectorStore      = errors.New("vector store error")
)
