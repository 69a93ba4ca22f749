package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeTagsIsIdempotent(t *testing.T) {
	tags := []Tag{
		{ID: "lang-go", Name: "go", Color: "#00add8"},
		{ID: "topic-cli", Name: "cli"},
		{ID: "lang-go", Name: "golang", Color: "#000000"},
	}

	once := MergeTags(nil, tags)
	twice := MergeTags(once, once)

	assert.Len(t, once, 2, "duplicate ids should collapse")
	assert.Equal(t, once, twice, "merging a set with itself should not change it")
	assert.Equal(t, "golang", once[0].Name, "last seen value should win")
	assert.Equal(t, "lang-go", once[0].ID, "first seen position should be kept")
}

func TestMergeTagsKeepsFirstSeenOrder(t *testing.T) {
	existing := []Tag{{ID: "a"}, {ID: "b"}}
	incoming := []Tag{{ID: "c"}, {ID: "a", Name: "new"}}

	merged := MergeTags(existing, incoming)

	require.Len(t, merged, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{merged[0].ID, merged[1].ID, merged[2].ID})
	assert.Equal(t, "new", merged[0].Name)
}

func TestProgress(t *testing.T) {
	checklists := []Checklist{
		{ID: "one", Items: []ChecklistItem{{ID: "1", Completed: true}, {ID: "2"}}},
		{ID: "two", Items: []ChecklistItem{{ID: "3", Completed: true}, {ID: "4", Completed: true}, {ID: "5"}}},
	}

	percent, ok := Progress(checklists)
	assert.True(t, ok)
	assert.Equal(t, 60, percent)

	_, ok = Progress([]Checklist{{ID: "empty"}})
	assert.False(t, ok, "zero items should have no progress")

	_, ok = Progress(nil)
	assert.False(t, ok)
}

func TestChecklistToggle(t *testing.T) {
	cl := NewChecklist("Release")
	id := cl.AddItem("tag version")
	cl.AddItem("write notes")

	assert.True(t, cl.Toggle(id))
	assert.False(t, cl.Toggle("missing"))

	percent, ok := Progress([]Checklist{cl})
	assert.True(t, ok)
	assert.Equal(t, 50, percent)
}

func TestNewItemID(t *testing.T) {
	a := NewItemID("upload")
	b := NewItemID("upload")

	assert.True(t, strings.HasPrefix(a, "upload-"))
	assert.NotEqual(t, a, b)
	assert.Len(t, strings.Split(a, "-"), 3)
}

func TestSmartFolderMatches(t *testing.T) {
	folders := DefaultFolders()
	require.Equal(t, AllFolderID, folders[0].ID)

	repo := &ContentItem{Type: RepoContent, Title: "hub"}
	site := &ContentItem{Type: WebsiteContent, Title: "Landing", Tags: []Tag{{ID: "tech-astro", Name: "astro"}}}

	var projects, webapps SmartFolder
	for _, f := range folders {
		switch f.ID {
		case "projects":
			projects = f
		case "webapps":
			webapps = f
		}
	}

	assert.True(t, folders[0].Matches(repo), "all folder matches everything")
	assert.True(t, projects.Matches(repo))
	assert.False(t, projects.Matches(site))
	assert.True(t, webapps.Matches(site))

	tagged := SmartFolder{Filter: FolderFilter{Tags: []string{"tech-astro"}, Query: "land"}}
	assert.True(t, tagged.Matches(site))
	assert.False(t, tagged.Matches(repo))
}

func TestMatchesQuery(t *testing.T) {
	item := &ContentItem{
		Title:       "Knowledge Hub",
		Description: "Personal dashboard",
		Tags:        []Tag{{ID: "lang-typescript", Name: "typescript"}},
	}

	assert.True(t, MatchesQuery(item, "HUB"))
	assert.True(t, MatchesQuery(item, "dash"))
	assert.True(t, MatchesQuery(item, "script"))
	assert.False(t, MatchesQuery(item, "python"))
}

func TestCloneDoesNotShare(t *testing.T) {
	progress := 40
	item := ContentItem{
		ID:         "x",
		Tags:       []Tag{{ID: "a"}},
		Metadata:   map[string]any{"size": 1},
		Checklists: []Checklist{{ID: "c", Items: []ChecklistItem{{ID: "i"}}}},
		Progress:   &progress,
	}

	clone := item.Clone()
	clone.Tags[0].ID = "b"
	clone.Metadata["size"] = 2
	clone.Checklists[0].Items[0].Completed = true
	*clone.Progress = 90

	assert.Equal(t, "a", item.Tags[0].ID)
	assert.Equal(t, 1, item.Metadata["size"])
	assert.False(t, item.Checklists[0].Items[0].Completed)
	assert.Equal(t, 40, *item.Progress)
}

func TestContentTypeTitle(t *testing.T) {
	assert.Equal(t, "Document", DocumentContent.Title())
	assert.True(t, WebappContent.Valid())
	assert.False(t, ContentType("folder").Valid())
}

func TestSnapshotDocumentKeys(t *testing.T) {
	data, err := json.Marshal(Snapshot{
		Items:          []ContentItem{{ID: "note-1", Type: DocumentContent, Title: "Plan"}},
		GitHubUsername: "octocat",
		SavedAt:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"items", "githubUsername"}, keys)
}
