package store

import (
	"time"

	"github.com/xaenox/knowledge-hub/internal/models"
)

// ItemPatch is a shallow partial update. Nil fields are left untouched.
type ItemPatch struct {
	Type            *models.ContentType     `json:"type,omitempty"`
	Title           *string                 `json:"title,omitempty"`
	Description     *string                 `json:"description,omitempty"`
	Content         *string                 `json:"content,omitempty"`
	URL             *string                 `json:"url,omitempty"`
	StorageLocation *models.StorageLocation `json:"storageLocation,omitempty"`
	StoragePath     *string                 `json:"storagePath,omitempty"`
	Tags            *[]models.Tag           `json:"tags,omitempty"`
	Metadata        map[string]any          `json:"metadata,omitempty"`
	Position        *models.Position        `json:"position,omitempty"`
	Folder          *string                 `json:"folder,omitempty"`
	GitHub          *models.GitHubInfo      `json:"github,omitempty"`
	Website         *models.WebsiteMetadata `json:"website,omitempty"`
	BoardColumn     *string                 `json:"boardColumn,omitempty"`
	Priority        *models.Priority        `json:"priority,omitempty"`
	DueDate         *time.Time              `json:"dueDate,omitempty"`
	Checklists      *[]models.Checklist     `json:"checklists,omitempty"`
	Progress        *int                    `json:"progress,omitempty"`
	IsPinned        *bool                   `json:"isPinned,omitempty"`
}

// apply never touches ID or CreatedAt. While the checklists hold items, progress is derived
// from them and an explicit Progress is ignored.
func (p ItemPatch) apply(item *models.ContentItem) {
	if p.Type != nil {
		item.Type = *p.Type
	}
	if p.Title != nil && *p.Title != "" {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Content != nil {
		item.Content = *p.Content
	}
	if p.URL != nil {
		item.URL = *p.URL
	}
	if p.StorageLocation != nil {
		item.StorageLocation = *p.StorageLocation
	}
	if p.StoragePath != nil {
		item.StoragePath = *p.StoragePath
	}
	if p.Tags != nil {
		item.Tags = append([]models.Tag{}, (*p.Tags)...)
	}
	if p.Metadata != nil {
		item.Metadata = make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			item.Metadata[k] = v
		}
	}
	if p.Position != nil {
		pos := *p.Position
		item.Position = &pos
	}
	if p.Folder != nil {
		item.Folder = *p.Folder
	}
	if p.GitHub != nil {
		gh := *p.GitHub
		item.GitHub = &gh
	}
	if p.Website != nil {
		w := p.Website.Clone()
		item.Website = &w
	}
	if p.BoardColumn != nil {
		item.BoardColumn = *p.BoardColumn
	}
	if p.Priority != nil {
		item.Priority = *p.Priority
	}
	if p.DueDate != nil {
		d := *p.DueDate
		item.DueDate = &d
	}
	if p.IsPinned != nil {
		item.IsPinned = *p.IsPinned
	}
	if p.Checklists != nil {
		item.Checklists = models.CloneChecklists(*p.Checklists)
		if len(item.Checklists) == 0 {
			item.Checklists = nil
		}
		item.Progress = nil
	}
	if v, ok := models.Progress(item.Checklists); ok {
		item.Progress = &v
	} else if p.Progress != nil {
		v := clampProgress(*p.Progress)
		item.Progress = &v
	}
}

func clampProgress(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
