package storage

import (
	"context"
	"sync"

	"github.com/xaenox/knowledge-hub/internal/models"
)

type MemoryStorage struct {
	mu    sync.RWMutex
	snap  models.Snapshot
	saved bool
	saves int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Load(ctx context.Context) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.saved {
		return models.Snapshot{}, ErrNotFound
	}
	return cloneSnapshot(s.snap), nil
}

func (s *MemoryStorage) Save(ctx context.Context, snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = cloneSnapshot(snap)
	s.saved = true
	s.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (s *MemoryStorage) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

func cloneSnapshot(snap models.Snapshot) models.Snapshot {
	out := snap
	out.Items = make([]models.ContentItem, len(snap.Items))
	for i := range snap.Items {
		out.Items[i] = snap.Items[i].Clone()
	}
	return out
}
