package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/models"
)

// AutoSaver writes snapshots in the background. Only the latest pending snapshot is kept,
// so a burst of mutations costs one write.
type AutoSaver struct {
	storage Storage
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	closed  bool
	pending chan models.Snapshot
	done    chan struct{}
}

func NewAutoSaver(storage Storage, logger *zap.Logger) *AutoSaver {
	a := &AutoSaver{
		storage: storage,
		logger:  logger,
		timeout: 10 * time.Second,
		pending: make(chan models.Snapshot, 1),
		done:    make(chan struct{}),
	}
	go a.loop()
	return a
}

// Notify queues snap, replacing any snapshot not yet written. It never blocks.
func (a *AutoSaver) Notify(snap models.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	for {
		select {
		case a.pending <- snap:
			return
		default:
		}
		select {
		case <-a.pending:
		default:
		}
	}
}

func (a *AutoSaver) loop() {
	defer close(a.done)
	for snap := range a.pending {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.storage.Save(ctx, snap); err != nil {
			a.logger.Error("Failed to save snapshot", zap.Error(err), zap.Int("items", len(snap.Items)))
		}
		cancel()
	}
}

// Close flushes the pending snapshot and stops the writer.
func (a *AutoSaver) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.pending)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
