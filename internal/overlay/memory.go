package overlay

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store. Each instance has its own state.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Fields
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Fields)}
}

func (s *MemoryStore) Get(_ context.Context, taskID string) (*Fields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.rows[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	out := f.Clone()
	return &out, nil
}

func (s *MemoryStore) GetMany(_ context.Context, taskIDs []string) (map[string]Fields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Fields, len(taskIDs))
	for _, id := range taskIDs {
		if f, ok := s.rows[id]; ok {
			out[id] = f.Clone()
		}
	}
	return out, nil
}

func (s *MemoryStore) List(_ context.Context) (map[string]Fields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Fields, len(s.rows))
	for id, f := range s.rows {
		out[id] = f.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, taskID string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[taskID] = fields.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rows, taskID)
	return nil
}
