package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/capture"
	"github.com/xaenox/knowledge-hub/internal/classifier"
	"github.com/xaenox/knowledge-hub/internal/github"
	"github.com/xaenox/knowledge-hub/internal/models"
	"github.com/xaenox/knowledge-hub/internal/routing"
	"github.com/xaenox/knowledge-hub/internal/store"
)

type fakeGitHub struct {
	token string
	err   error
	calls []string
	data  [][]byte

	gists []map[string]string
	files map[string]string
}

func (f *fakeGitHub) HasToken() bool { return f.token != "" }

func (f *fakeGitHub) UploadFile(_ context.Context, owner, repo, path, filename string, content []byte) (string, error) {
	f.calls = append(f.calls, owner+"/"+repo+"/"+path)
	f.data = append(f.data, content)
	if f.err != nil {
		return "", f.err
	}
	return "https://github.com/" + owner + "/" + repo + "/blob/main/" + path, nil
}

func (f *fakeGitHub) CreateGist(_ context.Context, description string, files map[string]string, public bool) (github.Gist, error) {
	if f.err != nil {
		return github.Gist{}, f.err
	}
	f.gists = append(f.gists, files)
	gist := github.Gist{ID: "g1", Description: description, Public: public, HTMLURL: "https://gist.github.com/g1"}
	for name := range files {
		gist.Files = append(gist.Files, github.GistFile{Filename: name})
	}
	return gist, nil
}

func (f *fakeGitHub) GetFileContent(_ context.Context, owner, repo, path string) (string, error) {
	f.calls = append(f.calls, owner+"/"+repo+"/"+path)
	content, ok := f.files[owner+"/"+repo+"/"+path]
	if !ok {
		return "", &github.StatusError{Op: "get file content", StatusCode: 404}
	}
	return content, nil
}

type fakeCapturer struct {
	res *capture.Result
	err error
}

func (f *fakeCapturer) Capture(context.Context, string) (*capture.Result, error) {
	return f.res, f.err
}

func newService(t *testing.T, gh GitHub, cfg Config) (*Service, *store.Store) {
	t.Helper()
	st := store.New()
	tagger := classifier.NewService(classifier.Options{}, classifier.LogSink(zap.NewNop()), zap.NewNop())
	return NewService(st, tagger, gh, nil, cfg, zap.NewNop()), st
}

func TestUploadMarkdownToGitHub(t *testing.T) {
	up := &fakeGitHub{token: "tok"}
	svc, st := newService(t, up, Config{ContentOwner: "octocat", ContentRepo: "vault"})

	body := []byte("# Setup\n\nInstall the API client and configure the database.\n")
	res, err := svc.Upload(context.Background(), UploadRequest{Filename: "setup.md", MediaType: "text/markdown", Data: body})
	require.NoError(t, err)

	assert.True(t, res.Uploaded)
	assert.NoError(t, res.Err)
	assert.Equal(t, []string{"octocat/vault/assets/setup.md"}, up.calls)
	assert.Equal(t, body, up.data[0])

	item := res.Item
	assert.True(t, strings.HasPrefix(item.ID, "upload-"))
	assert.Equal(t, models.MarkdownContent, item.Type)
	assert.Equal(t, "setup", item.Title, "extension is stripped")
	assert.Equal(t, models.StorageGitHub, item.StorageLocation)
	assert.Equal(t, "assets/setup.md", item.StoragePath)
	assert.Equal(t, "https://github.com/octocat/vault/blob/main/assets/setup.md", item.URL)
	assert.Equal(t, "setup.md", item.Metadata["filename"])
	assert.Equal(t, int64(len(body)), item.Metadata["size"])
	assert.Equal(t, "documents", item.Folder)
	assert.True(t, item.HasTag("tag-type-markdown"))
	assert.True(t, item.HasTag("tag-topic-api"), "markdown body reaches the tagger")
	assert.Equal(t, string(body), item.Content)

	stored, ok := st.Get(item.ID)
	require.True(t, ok)
	assert.Equal(t, item.Title, stored.Title)
	assert.NotEmpty(t, st.Tags(), "tag pool is filled")
}

func TestUploadWithoutTokenStaysLocalRecord(t *testing.T) {
	up := &fakeGitHub{}
	svc, st := newService(t, up, Config{ContentRepo: "vault"})

	res, err := svc.Upload(context.Background(), UploadRequest{Filename: "photo.png", MediaType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})
	require.NoError(t, err)
	assert.False(t, res.Uploaded)
	assert.Empty(t, up.calls)
	assert.Empty(t, res.Item.URL)
	assert.Empty(t, res.Item.Content, "binary files keep no content")
	assert.Equal(t, models.ImageContent, res.Item.Type)
	assert.Equal(t, "media", res.Item.Folder)
	assert.Equal(t, 1, st.Len())
}

func TestUploadFailureStillAddsItem(t *testing.T) {
	up := &fakeGitHub{token: "tok", err: errors.New("boom")}
	svc, st := newService(t, up, Config{ContentOwner: "octocat", ContentRepo: "vault"})

	res, err := svc.Upload(context.Background(), UploadRequest{Filename: "main.go", Data: []byte("package main\nfunc main() {}\n")})
	require.NoError(t, err)
	assert.False(t, res.Uploaded)
	assert.Error(t, res.Err)
	assert.Contains(t, res.Warning, "boom")
	assert.Empty(t, res.Item.StoragePath)
	assert.Equal(t, 1, st.Len())
}

func TestUploadLargeVideoGoesToDrive(t *testing.T) {
	up := &fakeGitHub{token: "tok"}
	svc, _ := newService(t, up, Config{ContentOwner: "octocat", ContentRepo: "vault"})

	res, err := svc.Upload(context.Background(), UploadRequest{Filename: "talk.mp4", Data: make([]byte, 60*routing.MB)})
	require.NoError(t, err)
	assert.Equal(t, models.StorageGoogleDrive, res.Item.StorageLocation)
	assert.ErrorIs(t, res.Err, ErrDriveNotConfigured)
	assert.Empty(t, up.calls, "drive-bound files are not pushed to github")
}

func TestUploadRejectsEmptyFilename(t *testing.T) {
	svc, _ := newService(t, nil, Config{})
	_, err := svc.Upload(context.Background(), UploadRequest{Filename: "  "})
	assert.ErrorIs(t, err, ErrEmptyFilename)
}

func TestUploadUsesStoreUsernameAsOwner(t *testing.T) {
	up := &fakeGitHub{token: "tok"}
	svc, st := newService(t, up, Config{ContentRepo: "vault"})
	st.SetGitHubUsername("hubot")

	_, err := svc.Upload(context.Background(), UploadRequest{Filename: "notes.txt", Data: []byte("notes")})
	require.NoError(t, err)
	assert.Equal(t, []string{"hubot/vault/assets/notes.txt"}, up.calls)
}

func TestNewDocumentAndUpdate(t *testing.T) {
	svc, st := newService(t, nil, Config{})

	doc := svc.NewDocument(context.Background(), "", "# Auth flow\n\nLogin with a token.")
	assert.Equal(t, "Auth flow", doc.Title, "title comes from the first heading")
	assert.Equal(t, models.MarkdownContent, doc.Type)
	assert.Equal(t, models.StorageLocal, doc.StorageLocation)
	assert.True(t, strings.HasPrefix(doc.ID, "md-"))
	assert.Equal(t, 7, doc.Metadata["wordCount"])
	assert.Equal(t, []string{"Auth flow"}, doc.Metadata["headings"])
	assert.Equal(t, "Auth flow Login with a token.", doc.Metadata["excerpt"])
	assert.True(t, doc.HasTag("tag-topic-auth"))

	untitled := svc.NewDocument(context.Background(), " ", "plain words")
	assert.Equal(t, "Untitled Document", untitled.Title)

	updated, ok := svc.UpdateDocument(context.Background(), doc.ID, "", "Now about the database schema.")
	require.True(t, ok)
	assert.Equal(t, "Auth flow", updated.Title, "empty title keeps the old one")
	assert.Equal(t, "Now about the database schema.", updated.Content)
	assert.True(t, updated.HasTag("tag-topic-database"))
	assert.Equal(t, 2, st.Len())

	_, ok = svc.UpdateDocument(context.Background(), "md-missing", "x", "y")
	assert.False(t, ok)
}

func TestNewTask(t *testing.T) {
	svc, st := newService(t, nil, Config{})

	task := svc.NewTask("review", "")
	assert.Equal(t, "New Task", task.Title)
	assert.Equal(t, "review", task.BoardColumn)
	assert.Equal(t, models.DocumentContent, task.Type)
	assert.NotNil(t, task.Tags)
	assert.Empty(t, task.Tags)

	backlog := svc.NewTask("", "Plan")
	assert.Equal(t, "backlog", backlog.BoardColumn)
	assert.Len(t, st.ColumnItems("review"), 1)
}

func TestCaptureWebsite(t *testing.T) {
	st := store.New()
	tagger := classifier.NewService(classifier.Options{}, classifier.LogSink(zap.NewNop()), zap.NewNop())

	fc := &fakeCapturer{res: &capture.Result{
		Title:    "Docs",
		Metadata: models.WebsiteMetadata{BaseURL: "https://docs.dev", Pages: []models.WebPage{{Path: "/"}, {Path: "/a"}}},
		Tags:     []models.Tag{{ID: "type-webapp", Name: "multi-page"}},
	}}
	svc := NewService(st, tagger, nil, fc, Config{}, zap.NewNop())

	item, err := svc.CaptureWebsite(context.Background(), "docs.dev")
	require.NoError(t, err)
	assert.Equal(t, models.WebappContent, item.Type)
	assert.Equal(t, 1, st.Len())

	fc.err = errors.New("offline")
	_, err = svc.CaptureWebsite(context.Background(), "docs.dev")
	assert.Error(t, err)
	assert.Equal(t, 1, st.Len(), "failed captures leave the store alone")

	_, err = NewService(st, tagger, nil, nil, Config{}, zap.NewNop()).CaptureWebsite(context.Background(), "x")
	assert.Error(t, err)
}

func TestClassifyDoesNotStore(t *testing.T) {
	svc, st := newService(t, nil, Config{})
	analysis, tags := svc.Classify(context.Background(), "app.dmg", "", make([]byte, 20*routing.MB))
	assert.Equal(t, models.StorageGitHubReleases, analysis.StorageLocation)
	assert.NotEmpty(t, tags.Tags)
	assert.Equal(t, 0, st.Len())
}

func TestUploadDotfileKeepsFullNameAsTitle(t *testing.T) {
	svc, st := newService(t, nil, Config{})

	for _, name := range []string{".gitignore", ".env"} {
		res, err := svc.Upload(context.Background(), UploadRequest{Filename: name, Data: []byte("node_modules/\n")})
		require.NoError(t, err)
		assert.Equal(t, name, res.Item.Title)
	}
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, "archive.tar", titleFromFilename("archive.tar.gz"))
}

func TestDocumentStatsCollectsLinks(t *testing.T) {
	stats := documentStats("# Links\n\nSee [Go](https://go.dev) and <https://pkg.go.dev>.")
	assert.Equal(t, []string{"https://go.dev", "https://pkg.go.dev"}, stats["links"])
	assert.Equal(t, []string{"Links"}, stats["headings"])

	plain := documentStats("no markup here")
	assert.NotContains(t, plain, "links")
	assert.NotContains(t, plain, "headings")
	assert.Equal(t, "no markup here", plain["excerpt"])
}

func TestPublishGist(t *testing.T) {
	gh := &fakeGitHub{token: "tok"}
	svc, st := newService(t, gh, Config{})
	doc := svc.NewDocument(context.Background(), "Deploy notes", "Run the migrations first.")

	gist, err := svc.PublishGist(context.Background(), doc.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "gist-g1", gist.ID)
	assert.Equal(t, models.GistContent, gist.Type)
	require.Len(t, gh.gists, 1)
	assert.Equal(t, map[string]string{"Deploy notes.md": "Run the migrations first."}, gh.gists[0])
	assert.Equal(t, 2, st.Len())

	_, err = svc.PublishGist(context.Background(), "md-missing", false)
	assert.ErrorIs(t, err, ErrItemNotFound)

	task := svc.NewTask("", "Empty card")
	_, err = svc.PublishGist(context.Background(), task.ID, false)
	assert.ErrorIs(t, err, ErrNoContent)

	offline, st2 := newService(t, &fakeGitHub{}, Config{})
	local := offline.NewDocument(context.Background(), "Local", "body")
	_, err = offline.PublishGist(context.Background(), local.ID, true)
	assert.ErrorIs(t, err, ErrGitHubDisabled)
	assert.Equal(t, 1, st2.Len())
}

func TestGistFilename(t *testing.T) {
	assert.Equal(t, "setup.sh", gistFilename(models.ContentItem{Title: "setup", Metadata: map[string]any{"filename": "setup.sh"}}))
	assert.Equal(t, "main.go", gistFilename(models.ContentItem{Title: "main.go", Type: models.SnippetContent}))
	assert.Equal(t, "todo.txt", gistFilename(models.ContentItem{Title: "todo", Type: models.SnippetContent}))
	assert.Equal(t, "snippet.txt", gistFilename(models.ContentItem{Type: models.FileContent}))
}

func TestImportFile(t *testing.T) {
	gh := &fakeGitHub{files: map[string]string{
		"octocat/vault/notes/auth.md": "# Token auth\n\nLogin flow for the API.",
	}}
	svc, st := newService(t, gh, Config{ContentOwner: "octocat", ContentRepo: "vault"})

	item, err := svc.ImportFile(context.Background(), "", "", "/notes/auth.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"octocat/vault/notes/auth.md"}, gh.calls)
	assert.True(t, strings.HasPrefix(item.ID, "import-"))
	assert.Equal(t, "Token auth", item.Title)
	assert.Equal(t, models.MarkdownContent, item.Type)
	assert.Equal(t, models.StorageGitHub, item.StorageLocation)
	assert.Equal(t, "notes/auth.md", item.StoragePath)
	assert.Equal(t, "https://github.com/octocat/vault/blob/HEAD/notes/auth.md", item.URL)
	assert.Equal(t, "octocat/vault", item.Metadata["repo"])
	assert.True(t, item.HasTag("tag-topic-auth"))
	assert.Equal(t, 1, st.Len())

	_, err = svc.ImportFile(context.Background(), "octocat", "vault", "missing.md")
	var statusErr *github.StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 1, st.Len())

	noOwner, _ := newService(t, gh, Config{})
	_, err = noOwner.ImportFile(context.Background(), "", "vault", "notes/auth.md")
	assert.ErrorIs(t, err, ErrNoOwner)
}
