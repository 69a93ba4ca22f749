package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xaenox/knowledge-hub/internal/models"
)

// FileStorage keeps the snapshot as a JSON document on disk.
type FileStorage struct {
	path string
}

func NewFileStorage(dataDir, name string) *FileStorage {
	if name == "" {
		name = DefaultSnapshotName
	}
	return &FileStorage{path: filepath.Join(dataDir, name+".json")}
}

func (s *FileStorage) Path() string {
	return s.path
}

func (s *FileStorage) Load(ctx context.Context) (models.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return models.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("read snapshot file: %w", err)
	}
	return decodeSnapshot(data)
}

// Save writes to a temporary file and renames it over the previous snapshot.
func (s *FileStorage) Save(ctx context.Context, snap models.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}

func (s *FileStorage) Close() error {
	return nil
}

func decodeSnapshot(data []byte) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Items == nil {
		snap.Items = []models.ContentItem{}
	}
	return snap, nil
}
