package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/models"
)

func sampleSnapshot() models.Snapshot {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	progress := 50
	return models.Snapshot{
		GitHubUsername: "octocat",
		SavedAt:        created.Add(time.Hour),
		Items: []models.ContentItem{
			{
				ID:              "repo-42",
				Type:            models.RepoContent,
				Title:           "hello-world",
				StorageLocation: models.StorageGitHub,
				Tags:            []models.Tag{{ID: "lang-go", Name: "go", Color: "#00add8"}},
				Metadata:        map[string]any{"stars": float64(3)},
				CreatedAt:       created,
				UpdatedAt:       created,
				GitHub:          &models.GitHubInfo{Owner: "octocat", Repo: "hello-world", Stars: 3},
			},
			{
				ID:              "task-1",
				Type:            models.DocumentContent,
				Title:           "Write docs",
				StorageLocation: models.StorageLocal,
				Tags:            []models.Tag{},
				Metadata:        map[string]any{},
				CreatedAt:       created,
				UpdatedAt:       created.Add(time.Minute),
				BoardColumn:     "todo",
				Checklists:      []models.Checklist{{ID: "c", Title: "Steps", Items: []models.ChecklistItem{{ID: "i", Text: "outline", Completed: true}, {ID: "j", Text: "draft"}}}},
				Progress:        &progress,
			},
		},
	}
}

// exerciseStorage runs the contract every backend must satisfy.
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound, "empty backend should report not found")

	want := sampleSnapshot()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.GitHubUsername, got.GitHubUsername)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "repo-42", got.Items[0].ID)
	assert.True(t, want.Items[0].CreatedAt.Equal(got.Items[0].CreatedAt))
	assert.Equal(t, want.Items[0].Tags, got.Items[0].Tags)
	assert.Equal(t, 50, *got.Items[1].Progress)
	assert.Equal(t, want.Items[1].Checklists, got.Items[1].Checklists)

	want.Items = want.Items[:1]
	want.GitHubUsername = "hubot"
	require.NoError(t, s.Save(ctx, want))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hubot", got.GitHubUsername)
	assert.Len(t, got.Items, 1, "save replaces the previous snapshot")
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	exerciseStorage(t, s)
	assert.Equal(t, 2, s.Saves())
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStorage(filepath.Join(dir, "data"), "")
	exerciseStorage(t, s)

	_, err := os.Stat(s.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be renamed away")
}

func TestFileStorageCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStorage(dir, "broken")
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0644))

	_, err := s.Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorage(t *testing.T) {
	s, err := NewSQLiteStorage(context.Background(), filepath.Join(t.TempDir(), "hub.sqlite"), "")
	require.NoError(t, err)
	defer s.Close()

	exerciseStorage(t, s)
}

func TestAutoSaverFlushesLatest(t *testing.T) {
	mem := NewMemoryStorage()
	saver := NewAutoSaver(mem, zap.NewNop())

	for i := 0; i < 20; i++ {
		snap := sampleSnapshot()
		snap.GitHubUsername = "user"
		if i == 19 {
			snap.GitHubUsername = "final"
		}
		saver.Notify(snap)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, saver.Close(ctx))

	got, err := mem.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "final", got.GitHubUsername, "the last snapshot always lands")
	assert.LessOrEqual(t, mem.Saves(), 20)

	saver.Notify(sampleSnapshot())
	assert.NoError(t, saver.Close(ctx), "close is idempotent and notify after close is ignored")
}
