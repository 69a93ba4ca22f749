package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/knowledge-hub/internal/models"
)

func fromGitHub(it *models.ContentItem) bool {
	return strings.HasPrefix(it.ID, "repo-") || strings.HasPrefix(it.ID, "gist-")
}

func TestMergeSourceKeepsOtherItemsAndLocalFields(t *testing.T) {
	s, _ := newTestStore(t)
	seed(s)
	s.Add(item("upload-1", models.ImageContent, "diagram"))
	s.MoveToColumn("repo-1", "in-progress")
	s.UpdatePosition("repo-1", models.Position{X: 10, Y: 20})

	result := s.MergeSource(fromGitHub, []models.ContentItem{
		item("repo-3", models.RepoContent, "new-repo"),
		item("repo-1", models.RepoContent, "knowledge-hub-v2"),
	})

	assert.Equal(t, MergeResult{Added: 1, Updated: 1, Removed: 2}, result)
	assert.Equal(t, []string{"repo-3", "upload-1", "repo-1", "doc-1", "site-1"}, ids(s.Items()))

	updated, ok := s.Get("repo-1")
	require.True(t, ok)
	assert.Equal(t, "knowledge-hub-v2", updated.Title)
	assert.Equal(t, "in-progress", updated.BoardColumn)
	require.NotNil(t, updated.Position)
	assert.Equal(t, 10.0, updated.Position.X)
}

func TestMergeSourceTwiceDoesNotDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	fetch := []models.ContentItem{
		item("repo-1", models.RepoContent, "a"),
		item("gist-9", models.GistContent, "b"),
	}

	s.MergeSource(fromGitHub, fetch)
	result := s.MergeSource(fromGitHub, fetch)

	assert.Equal(t, MergeResult{Updated: 2}, result)
	assert.Equal(t, 2, s.Len())
}

func TestBoardAndStats(t *testing.T) {
	s, _ := newTestStore(t)
	seed(s)
	s.MoveToColumn("doc-1", "todo")
	s.MoveToColumn("site-1", "todo")
	s.MoveToColumn("repo-2", "done")
	assert.False(t, s.MoveToColumn("missing", "done"))

	pinned := true
	s.Update("gist-1", ItemPatch{IsPinned: &pinned})

	board := s.Board()
	require.Len(t, board, len(DefaultColumns))
	assert.Equal(t, "backlog", board[0].ID)
	assert.Equal(t, []string{"doc-1", "site-1"}, ids(board[1].Items))
	assert.Equal(t, []string{"repo-2"}, ids(s.ColumnItems("done")))

	assert.Equal(t, Stats{Total: 5, Repositories: 2, WebApps: 1, Documents: 1, Pinned: 1}, s.Stats())
	assert.Equal(t, []string{"gist-1"}, ids(s.Pinned()))

	recent := s.Recent(2)
	assert.Equal(t, []string{"gist-1", "repo-2"}, ids(recent), "latest updates first")
}
