package history

import (
	"context"
	"sync"

	"ragchat/internal/domain"
)

// InMemory keeps the conversation for the lifetime of the process.
type InMemory struct {
	mu       sync.RWMutex
	messages []domain.Message
}

func NewInMemory() *InMemory { return &InMemory{} }

func (s *InMemory) Append(_ context.Context, messages ...domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, messages...)
	return nil
}

// Messages returns a copy of the history, oldest first.
func (s *InMemory) Messages(_ context.Context) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

func (s *InMemory) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	return nil
}
