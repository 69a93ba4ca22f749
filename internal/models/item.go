package models

import (
	"strings"
	"time"
)

type ContentType string

const (
	RepoContent     ContentType = "repo"
	GistContent     ContentType = "gist"
	SnippetContent  ContentType = "snippet"
	DocumentContent ContentType = "document"
	ImageContent    ContentType = "image"
	VideoContent    ContentType = "video"
	LinkContent     ContentType = "link"
	MarkdownContent ContentType = "markdown"
	FileContent     ContentType = "file"
	WebappContent   ContentType = "webapp"
	WebsiteContent  ContentType = "website"
)

// ContentTypes lists every known content type in declaration order.
var ContentTypes = []ContentType{
	RepoContent, GistContent, SnippetContent, DocumentContent, ImageContent, VideoContent,
	LinkContent, MarkdownContent, FileContent, WebappContent, WebsiteContent,
}

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	for _, known := range ContentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Title returns the type name with its first letter upper-cased.
func (t ContentType) Title() string {
	if t == "" {
		return ""
	}
	s := string(t)
	return strings.ToUpper(s[:1]) + s[1:]
}

type StorageLocation string

const (
	StorageGitHub         StorageLocation = "github"
	StorageGoogleDrive    StorageLocation = "google-drive"
	StorageGitHubReleases StorageLocation = "github-releases"
	StorageLocal          StorageLocation = "local"
	StorageExternal       StorageLocation = "external"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Position places an item on the canvas view.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GitHubInfo is the provenance record of repo-sourced items.
type GitHubInfo struct {
	Owner    string   `json:"owner,omitempty"`
	Repo     string   `json:"repo,omitempty"`
	Stars    int      `json:"stars,omitempty"`
	Language string   `json:"language,omitempty"`
	Topics   []string `json:"topics,omitempty"`
}

// ContentItem is the unified record for every piece of tracked content.
type ContentItem struct {
	ID              string          `json:"id"`
	Type            ContentType     `json:"type"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Content         string          `json:"content,omitempty"`
	URL             string          `json:"url,omitempty"`
	StorageLocation StorageLocation `json:"storageLocation"`
	StoragePath     string          `json:"storagePath,omitempty"`
	Tags            []Tag           `json:"tags"`
	Metadata        map[string]any  `json:"metadata"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`

	Position    *Position        `json:"position,omitempty"`
	Folder      string           `json:"folder,omitempty"`
	GitHub      *GitHubInfo      `json:"github,omitempty"`
	Website     *WebsiteMetadata `json:"website,omitempty"`
	BoardColumn string           `json:"boardColumn,omitempty"`
	Priority    Priority         `json:"priority,omitempty"`
	DueDate     *time.Time       `json:"dueDate,omitempty"`
	Checklists  []Checklist      `json:"checklists,omitempty"`
	Progress    *int             `json:"progress,omitempty"`
	IsPinned    bool             `json:"isPinned,omitempty"`
}

// HasTag reports whether the item carries a tag with one of the given ids.
func (i *ContentItem) HasTag(ids ...string) bool {
	for _, id := range ids {
		for _, tag := range i.Tags {
			if tag.ID == id {
				return true
			}
		}
	}
	return false
}

// Clone returns a copy that shares no slices or maps with i.
// Metadata values are copied shallowly.
func (i ContentItem) Clone() ContentItem {
	out := i
	if i.Tags != nil {
		out.Tags = make([]Tag, len(i.Tags))
		copy(out.Tags, i.Tags)
	}
	if i.Metadata != nil {
		out.Metadata = make(map[string]any, len(i.Metadata))
		for k, v := range i.Metadata {
			out.Metadata[k] = v
		}
	}
	if i.Position != nil {
		p := *i.Position
		out.Position = &p
	}
	if i.GitHub != nil {
		gh := *i.GitHub
		gh.Topics = append([]string(nil), i.GitHub.Topics...)
		out.GitHub = &gh
	}
	if i.Website != nil {
		w := i.Website.Clone()
		out.Website = &w
	}
	if i.DueDate != nil {
		d := *i.DueDate
		out.DueDate = &d
	}
	if i.Checklists != nil {
		out.Checklists = CloneChecklists(i.Checklists)
	}
	if i.Progress != nil {
		p := *i.Progress
		out.Progress = &p
	}
	return out
}
