package store

import "github.com/xaenox/knowledge-hub/internal/models"

// Filtered returns the items that pass the search query, type, folder and tag filters.
// Collection order is preserved.
func (s *Store) Filtered() []models.ContentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var folder *models.SmartFolder
	if s.filter.Folder != "" && s.filter.Folder != models.AllFolderID {
		folder = s.folder(s.filter.Folder)
	}

	out := make([]models.ContentItem, 0, len(s.items))
	for i := range s.items {
		item := &s.items[i]
		if s.searchQuery != "" && !models.MatchesQuery(item, s.searchQuery) {
			continue
		}
		if s.filter.Type != "" && item.Type != s.filter.Type {
			continue
		}
		if folder != nil && !folder.Matches(item) {
			continue
		}
		if len(s.filter.Tags) > 0 && !item.HasTag(s.filter.Tags...) {
			continue
		}
		out = append(out, item.Clone())
	}
	return out
}

// ByFolder applies only the folder's predicate. "all" and unknown folders return everything.
func (s *Store) ByFolder(folderID string) []models.ContentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folder := s.folder(folderID)
	if folder == nil || folderID == models.AllFolderID {
		return cloneAll(s.items)
	}

	out := make([]models.ContentItem, 0)
	for i := range s.items {
		if folder.Matches(&s.items[i]) {
			out = append(out, s.items[i].Clone())
		}
	}
	return out
}

// FolderCounts returns the number of items in every folder, keyed by folder id.
func (s *Store) FolderCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.folders))
	for _, f := range s.folders {
		if f.ID == models.AllFolderID {
			counts[f.ID] = len(s.items)
			continue
		}
		for i := range s.items {
			if f.Matches(&s.items[i]) {
				counts[f.ID]++
			}
		}
	}
	return counts
}

// AllTags is the union of every item's tags by id, first-seen order, last-seen value.
func (s *Store) AllTags() []models.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []models.Tag
	for i := range s.items {
		all = append(all, s.items[i].Tags...)
	}
	return models.MergeTags(nil, all)
}

func (s *Store) folder(id string) *models.SmartFolder {
	for i := range s.folders {
		if s.folders[i].ID == id {
			return &s.folders[i]
		}
	}
	return nil
}
