package store

import (
	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/models"
)

// SourceFunc tells whether an item was produced by a given external source.
type SourceFunc func(item *models.ContentItem) bool

// MergeResult counts what MergeSource did.
type MergeResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
}

// MergeSource reconciles the items of one source with a fresh fetch.
// Existing source items are updated in place by id and keep their local fields
// (position, folder, board column, priority, due date, checklists, progress, pin).
// Source items missing from incoming are removed. Items of other sources are untouched.
// New items are prepended in incoming order.
func (s *Store) MergeSource(fromSource SourceFunc, incoming []models.ContentItem) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make(map[string]models.ContentItem, len(incoming))
	order := make([]string, 0, len(incoming))
	for _, item := range incoming {
		item = s.normalize(item.Clone())
		if _, dup := fresh[item.ID]; !dup {
			order = append(order, item.ID)
		}
		fresh[item.ID] = item
	}

	var result MergeResult
	kept := make([]models.ContentItem, 0, len(s.items)+len(incoming))
	seen := make(map[string]bool, len(incoming))
	for i := range s.items {
		current := s.items[i]
		if !fromSource(&current) {
			kept = append(kept, current)
			continue
		}
		next, ok := fresh[current.ID]
		if !ok {
			result.Removed++
			continue
		}
		seen[current.ID] = true
		kept = append(kept, keepLocalFields(current, next))
		result.Updated++
	}

	added := make([]models.ContentItem, 0)
	for _, id := range order {
		if seen[id] {
			continue
		}
		added = append(added, fresh[id])
		result.Added++
	}

	s.items = append(added, kept...)
	s.changed()
	s.logger.Info("Merged source items",
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("removed", result.Removed))
	return result
}

func keepLocalFields(old, next models.ContentItem) models.ContentItem {
	next.Position = old.Position
	next.Folder = old.Folder
	next.BoardColumn = old.BoardColumn
	next.Priority = old.Priority
	next.DueDate = old.DueDate
	next.Checklists = old.Checklists
	next.Progress = old.Progress
	next.IsPinned = old.IsPinned
	if next.CreatedAt.After(old.CreatedAt) {
		next.CreatedAt = old.CreatedAt
	}
	if next.UpdatedAt.Before(next.CreatedAt) {
		next.UpdatedAt = next.CreatedAt
	}
	return next
}
