package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/models"
	"github.com/xaenox/knowledge-hub/internal/storage"
	"github.com/xaenox/knowledge-hub/pkg/config"
)

func testApp(t *testing.T, backend string) *App {
	t.Helper()
	return &App{
		Logger: zap.NewNop(),
		Config: &config.Config{
			GitHub:     config.GitHubConfig{Username: "octocat"},
			Classifier: config.ClassifierConfig{MaxTags: 5},
			Storage: config.StorageConfig{
				Backend: backend,
				Name:    "hub-test",
				DataDir: t.TempDir(),
			},
		},
	}
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	s, err := openStorage(ctx, config.StorageConfig{Backend: "memory"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStorage{}, s)

	s, err = openStorage(ctx, config.StorageConfig{Backend: "file", DataDir: t.TempDir(), Name: "x"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.FileStorage{}, s)

	_, err = openStorage(ctx, config.StorageConfig{Backend: "tape"}, zap.NewNop())
	assert.ErrorContains(t, err, `unknown storage backend "tape"`)
}

func TestOpenHubRestoresSnapshot(t *testing.T) {
	app := testApp(t, "file")
	ctx := context.Background()

	hub, err := app.openHub(ctx)
	require.NoError(t, err)
	assert.Equal(t, "octocat", hub.Store.GitHubUsername())
	hub.Store.Add(models.ContentItem{ID: "note-1", Title: "Reading list", Type: models.DocumentContent})
	hub.Close()

	app.Config.GitHub.Username = ""
	hub, err = app.openHub(ctx)
	require.NoError(t, err)
	defer hub.Close()

	assert.Equal(t, 1, hub.Store.Len())
	item, ok := hub.Store.Get("note-1")
	require.True(t, ok)
	assert.Equal(t, "Reading list", item.Title)
	assert.Equal(t, "octocat", hub.Store.GitHubUsername())
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LogConfig{Development: true, Level: "debug"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = newLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestRootCommandListsSubcommands(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "sync", "capture", "upload", "classify", "stats", "gist", "import"})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "hub serve")
}
