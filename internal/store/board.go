package store

import (
	"sort"

	"github.com/xaenox/knowledge-hub/internal/models"
)

type BoardColumn struct {
	ID    string               `json:"id"`
	Title string               `json:"title"`
	Color string               `json:"color"`
	Items []models.ContentItem `json:"items"`
}

// DefaultColumns are the kanban buckets shown when no custom set is configured.
var DefaultColumns = []BoardColumn{
	{ID: "backlog", Title: "Backlog", Color: "#6b7280"},
	{ID: "todo", Title: "To Do", Color: "#3b82f6"},
	{ID: "in-progress", Title: "In Progress", Color: "#f59e0b"},
	{ID: "review", Title: "Review", Color: "#8b5cf6"},
	{ID: "done", Title: "Done", Color: "#22c55e"},
}

// Board groups items by board column. Items without a column are left out.
func (s *Store) Board() []BoardColumn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	columns := make([]BoardColumn, len(DefaultColumns))
	for i, col := range DefaultColumns {
		col.Items = []models.ContentItem{}
		for j := range s.items {
			if s.items[j].BoardColumn == col.ID {
				col.Items = append(col.Items, s.items[j].Clone())
			}
		}
		columns[i] = col
	}
	return columns
}

func (s *Store) ColumnItems(columnID string) []models.ContentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.ContentItem{}
	for i := range s.items {
		if s.items[i].BoardColumn == columnID {
			out = append(out, s.items[i].Clone())
		}
	}
	return out
}

func (s *Store) MoveToColumn(id, columnID string) bool {
	_, ok := s.Update(id, ItemPatch{BoardColumn: &columnID})
	return ok
}

type Stats struct {
	Total        int `json:"total"`
	Repositories int `json:"repositories"`
	WebApps      int `json:"webApps"`
	Documents    int `json:"documents"`
	Pinned       int `json:"pinned"`
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Total: len(s.items)}
	for i := range s.items {
		switch s.items[i].Type {
		case models.RepoContent:
			st.Repositories++
		case models.WebappContent, models.WebsiteContent:
			st.WebApps++
		case models.DocumentContent, models.MarkdownContent:
			st.Documents++
		}
		if s.items[i].IsPinned {
			st.Pinned++
		}
	}
	return st
}

func (s *Store) Pinned() []models.ContentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.ContentItem{}
	for i := range s.items {
		if s.items[i].IsPinned {
			out = append(out, s.items[i].Clone())
		}
	}
	return out
}

// Recent returns up to n items with the latest UpdatedAt first.
func (s *Store) Recent(n int) []models.ContentItem {
	items := s.Items()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	if n >= 0 && len(items) > n {
		items = items[:n]
	}
	return items
}
