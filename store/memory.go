package store

import (
	"context"
	"sync"

	"cbtportal/models"
)

// MemoryStore keeps the encoded blob in process memory. It shares the codec with
// the persistent backends, so malformed data behaves the same way.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Put(_ context.Context, quiz *models.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := merge(s.data, quiz)
	if err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return find(s.data, id)
}
