package store

import (
	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/models"
)

// AddChecklist appends an empty checklist to the item. Unknown ids are ignored.
func (s *Store) AddChecklist(id, title string) (models.Checklist, bool) {
	var added models.Checklist
	ok := s.editChecklists(id, func(checklists []models.Checklist) ([]models.Checklist, bool) {
		added = models.NewChecklist(title)
		return append(checklists, added), true
	})
	return added, ok
}

// AddChecklistItem appends an unchecked entry to one of the item's checklists.
func (s *Store) AddChecklistItem(id, checklistID, text string) (models.ChecklistItem, bool) {
	var added models.ChecklistItem
	ok := s.editChecklists(id, func(checklists []models.Checklist) ([]models.Checklist, bool) {
		for i := range checklists {
			if checklists[i].ID == checklistID {
				checklists[i].AddItem(text)
				added = checklists[i].Items[len(checklists[i].Items)-1]
				return checklists, true
			}
		}
		return nil, false
	})
	return added, ok
}

// ToggleChecklistItem flips one entry. Unknown item, checklist or entry ids are ignored.
func (s *Store) ToggleChecklistItem(id, checklistID, entryID string) bool {
	return s.editChecklists(id, func(checklists []models.Checklist) ([]models.Checklist, bool) {
		for i := range checklists {
			if checklists[i].ID == checklistID {
				return checklists, checklists[i].Toggle(entryID)
			}
		}
		return nil, false
	})
}

// editChecklists runs edit on a copy of the item's checklists and stores the result as an
// update, so progress and UpdatedAt follow. Nothing changes when edit reports false.
func (s *Store) editChecklists(id string, edit func([]models.Checklist) ([]models.Checklist, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.logger.Debug("Ignoring checklist edit of missing item", zap.String("item_id", id))
		return false
	}

	item := &s.items[i]
	checklists, ok := edit(models.CloneChecklists(item.Checklists))
	if !ok {
		return false
	}
	ItemPatch{Checklists: &checklists}.apply(item)
	s.touch(item)
	s.changed()
	return true
}
