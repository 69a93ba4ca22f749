package models

import "strings"

const AllFolderID = "all"

// SmartFolder selects items by type, tag ids and free text. Empty criteria match everything.
type SmartFolder struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Icon   string       `json:"icon"`
	Filter FolderFilter `json:"filter"`
}

type FolderFilter struct {
	Types []ContentType `json:"type,omitempty"`
	Tags  []string      `json:"tags,omitempty"`
	Query string        `json:"query,omitempty"`
}

// DefaultFolders mirrors the sidebar of the dashboard.
func DefaultFolders() []SmartFolder {
	return []SmartFolder{
		{ID: AllFolderID, Name: "All Items", Icon: "📚"},
		{ID: "projects", Name: "Projects", Icon: "📂", Filter: FolderFilter{Types: []ContentType{RepoContent}}},
		{ID: "webapps", Name: "Web Apps", Icon: "🌐", Filter: FolderFilter{Types: []ContentType{WebappContent, WebsiteContent}}},
		{ID: "snippets", Name: "Snippets", Icon: "💻", Filter: FolderFilter{Types: []ContentType{SnippetContent, GistContent}}},
		{ID: "documents", Name: "Documents", Icon: "📄", Filter: FolderFilter{Types: []ContentType{DocumentContent, MarkdownContent}}},
		{ID: "media", Name: "Media", Icon: "🖼️", Filter: FolderFilter{Types: []ContentType{ImageContent, VideoContent}}},
		{ID: "links", Name: "Links", Icon: "🔗", Filter: FolderFilter{Types: []ContentType{LinkContent}}},
	}
}

// Matches reports whether item belongs to the folder.
func (f SmartFolder) Matches(item *ContentItem) bool {
	if len(f.Filter.Types) > 0 && !containsType(f.Filter.Types, item.Type) {
		return false
	}
	if len(f.Filter.Tags) > 0 && !item.HasTag(f.Filter.Tags...) {
		return false
	}
	if f.Filter.Query != "" && !MatchesQuery(item, f.Filter.Query) {
		return false
	}
	return true
}

// MatchesQuery is a case-insensitive substring match on title, description and tag names.
func MatchesQuery(item *ContentItem, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(item.Title), q) ||
		strings.Contains(strings.ToLower(item.Description), q) {
		return true
	}
	for _, tag := range item.Tags {
		if strings.Contains(strings.ToLower(tag.Name), q) {
			return true
		}
	}
	return false
}

func containsType(types []ContentType, t ContentType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
