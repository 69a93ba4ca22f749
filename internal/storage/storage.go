package storage

import (
	"context"
	"errors"

	"github.com/xaenox/knowledge-hub/internal/models"
)

// DefaultSnapshotName is the key every backend stores the hub state under.
const DefaultSnapshotName = "knowledge-hub-storage"

// ErrNotFound is returned by Load when no snapshot has been saved yet.
var ErrNotFound = errors.New("snapshot not found")

// Storage persists the single named snapshot of the hub.
type Storage interface {
	Load(ctx context.Context) (models.Snapshot, error)
	Save(ctx context.Context, snap models.Snapshot) error
	Close() error
}
