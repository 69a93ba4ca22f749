package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/models"
	"github.com/xaenox/knowledge-hub/internal/store"
)

const reposJSON = `[
  {
    "id": 42,
    "name": "hello-world",
    "full_name": "octocat/hello-world",
    "description": "My first repo",
    "html_url": "https://github.com/octocat/hello-world",
    "homepage": "https://octocat.dev",
    "language": "TypeScript",
    "stargazers_count": 12,
    "forks_count": 3,
    "updated_at": "2026-02-01T10:00:00Z",
    "topics": ["cli", "tools", "web", "extra"],
    "owner": {"login": "octocat", "avatar_url": "https://avatars/octocat"}
  },
  {
    "id": 7,
    "name": "notes",
    "full_name": "octocat/notes",
    "description": null,
    "html_url": "https://github.com/octocat/notes",
    "homepage": null,
    "language": null,
    "stargazers_count": 0,
    "forks_count": 0,
    "updated_at": "2026-01-15T08:30:00Z",
    "topics": [],
    "owner": {"login": "octocat", "avatar_url": ""}
  }
]`

const gistsJSON = `[
  {
    "id": "abc123",
    "description": "",
    "html_url": "https://gist.github.com/abc123",
    "files": {
      "zeta.go": {"filename": "zeta.go", "language": "Go", "size": 120, "raw_url": "https://raw/zeta.go"},
      "alpha.txt": {"filename": "alpha.txt", "language": null, "size": 4, "raw_url": "https://raw/alpha.txt"}
    },
    "created_at": "2026-01-01T00:00:00Z",
    "updated_at": "2026-01-02T00:00:00Z",
    "public": true
  }
]`

type fakeGitHub struct {
	t         *testing.T
	failGists bool
	requests  atomic.Int32
	lastAuth  atomic.Value
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	f.lastAuth.Store(r.Header.Get("Authorization"))
	assert.Equal(f.t, "application/vnd.github.v3+json", r.Header.Get("Accept"))

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/users/octocat/repos":
		assert.Equal(f.t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(f.t, "updated", r.URL.Query().Get("sort"))
		io.WriteString(w, reposJSON)
	case r.Method == http.MethodGet && r.URL.Path == "/users/octocat/gists":
		if f.failGists {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		io.WriteString(w, gistsJSON)
	default:
		http.NotFound(w, r)
	}
}

func newFake(t *testing.T) (*fakeGitHub, *Client) {
	t.Helper()
	fake := &fakeGitHub{t: t}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, NewClient("secret", WithBaseURL(srv.URL), WithLogger(zap.NewNop()))
}

func TestFetchRepos(t *testing.T) {
	fake, client := newFake(t)

	repos, err := client.FetchRepos(context.Background(), "octocat")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "octocat/hello-world", repos[0].FullName)
	assert.Equal(t, "", repos[1].Language)
	assert.Equal(t, "Bearer secret", fake.lastAuth.Load())
}

func TestFetchGistsKeepsFileOrder(t *testing.T) {
	_, client := newFake(t)

	gists, err := client.FetchGists(context.Background(), "octocat")
	require.NoError(t, err)
	require.Len(t, gists, 1)
	require.Len(t, gists[0].Files, 2)
	assert.Equal(t, "zeta.go", gists[0].Files[0].Filename)
	assert.Equal(t, "alpha.txt", gists[0].Files[1].Filename)
}

func TestNonSuccessStatusIsStatusError(t *testing.T) {
	fake, client := newFake(t)
	fake.failGists = true

	_, err := client.FetchGists(context.Background(), "octocat")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, "failed to fetch gists: 403", err.Error())

	_, err = client.FetchRepos(context.Background(), "nobody")
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestRepoToItem(t *testing.T) {
	var repos []Repo
	require.NoError(t, json.Unmarshal([]byte(reposJSON), &repos))

	item := RepoToItem(repos[0])
	assert.Equal(t, "repo-42", item.ID)
	assert.Equal(t, models.RepoContent, item.Type)
	assert.Equal(t, models.StorageGitHub, item.StorageLocation)
	assert.Equal(t, "octocat/hello-world", item.StoragePath)
	assert.Equal(t, []models.Tag{
		{ID: "lang-typescript", Name: "typescript", Color: "#3178c6"},
		{ID: "topic-cli", Name: "cli", Color: "#6366f1"},
		{ID: "topic-tools", Name: "tools", Color: "#6366f1"},
		{ID: "topic-web", Name: "web", Color: "#6366f1"},
	}, item.Tags, "language tag plus at most three topics")
	assert.Equal(t, 12, item.GitHub.Stars)
	assert.Equal(t, "TypeScript", item.GitHub.Language)
	assert.Equal(t, []string{"cli", "tools", "web", "extra"}, item.GitHub.Topics)
	assert.Equal(t, "https://octocat.dev", item.Metadata["homepage"])
	assert.Equal(t, 3, item.Metadata["forks"])
	assert.True(t, item.CreatedAt.Equal(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)))

	bare := RepoToItem(repos[1])
	assert.Empty(t, bare.Tags)
	assert.Nil(t, bare.Metadata["homepage"])
}

func TestGistToItem(t *testing.T) {
	var gists []Gist
	require.NoError(t, json.Unmarshal([]byte(gistsJSON), &gists))

	item := GistToItem(gists[0])
	assert.Equal(t, "gist-abc123", item.ID)
	assert.Equal(t, "zeta.go", item.Title, "title falls back to the first file name")
	assert.Equal(t, "2 files: zeta.go, alpha.txt", item.Description)
	require.Len(t, item.Tags, 2)
	assert.Equal(t, models.Tag{ID: "gist-file-zeta.go", Name: "go", Color: "#00add8"}, item.Tags[0])
	assert.Equal(t, models.Tag{ID: "gist-file-alpha.txt", Name: "text", Color: "#6b7280"}, item.Tags[1])

	assert.Equal(t, "Untitled Gist", GistToItem(Gist{ID: "empty"}).Title)
	assert.Equal(t, "Shell helpers", GistToItem(Gist{ID: "d", Description: "Shell helpers"}).Title)
	assert.Equal(t, "1 file: a.sh", GistToItem(Gist{ID: "one", Files: GistFiles{{Filename: "a.sh"}}}).Description)
}

func TestUploadFile(t *testing.T) {
	var got struct {
		Message string `json:"message"`
		Content string `json:"content"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/repos/octocat/vault/contents/assets/my notes.md", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"content": {"html_url": "https://github.com/octocat/vault/blob/main/assets/my%20notes.md"}}`)
	}))
	defer srv.Close()

	client := NewClient("secret", WithBaseURL(srv.URL))
	link, err := client.UploadFile(context.Background(), "octocat", "vault", "assets/my notes.md", "my notes.md", []byte("# hi"))
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/octocat/vault/blob/main/assets/my%20notes.md", link)
	assert.Equal(t, "Add my notes.md", got.Message)

	decoded, err := base64.StdEncoding.DecodeString(got.Content)
	require.NoError(t, err)
	assert.Equal(t, "# hi", string(decoded))
}

func TestCreateGistAndGetFileContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gists":
			var body struct {
				Description string                       `json:"description"`
				Public      bool                         `json:"public"`
				Files       map[string]map[string]string `json:"files"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "echo 1", body.Files["run.sh"]["content"])
			assert.False(t, body.Public)
			io.WriteString(w, `{"id": "new1", "description": "scripts", "files": {"run.sh": {"filename": "run.sh", "language": "Shell"}}}`)
		case "/repos/octocat/vault/contents/README.md":
			assert.Equal(t, "application/vnd.github.v3.raw", r.Header.Get("Accept"))
			io.WriteString(w, "# Vault")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	client := NewClient("secret", WithBaseURL(srv.URL))

	gist, err := client.CreateGist(context.Background(), "scripts", map[string]string{"run.sh": "echo 1"}, false)
	require.NoError(t, err)
	assert.Equal(t, "new1", gist.ID)
	assert.Equal(t, "1 file: run.sh", GistToItem(gist).Description)

	content, err := client.GetFileContent(context.Background(), "octocat", "vault", "README.md")
	require.NoError(t, err)
	assert.Equal(t, "# Vault", content)
}

func TestSyncMergesAndKeepsLocalItems(t *testing.T) {
	_, client := newFake(t)
	st := store.New()
	st.SetAll([]models.ContentItem{
		{ID: "upload-1", Type: models.DocumentContent, Title: "local doc"},
		{ID: "repo-42", Type: models.RepoContent, Title: "old name", Folder: "favorites", IsPinned: true},
		{ID: "repo-999", Type: models.RepoContent, Title: "deleted upstream"},
	})

	syncer := NewSyncer(client, st, zap.NewNop())
	result, err := syncer.Sync(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, store.MergeResult{Added: 2, Updated: 1, Removed: 1}, result)
	assert.Equal(t, "octocat", st.GitHubUsername())

	local, ok := st.Get("upload-1")
	require.True(t, ok, "non-GitHub items survive a sync")
	assert.Equal(t, "local doc", local.Title)

	repo, ok := st.Get("repo-42")
	require.True(t, ok)
	assert.Equal(t, "hello-world", repo.Title)
	assert.Equal(t, "favorites", repo.Folder)
	assert.True(t, repo.IsPinned)

	_, ok = st.Get("repo-999")
	assert.False(t, ok)
	assert.Equal(t, 4, st.Len())

	again, err := syncer.Sync(context.Background(), "")
	require.NoError(t, err, "username is remembered")
	assert.Equal(t, store.MergeResult{Updated: 3}, again)
	assert.Equal(t, 4, st.Len(), "repeated syncs do not duplicate")
}

func TestSyncFailureLeavesStoreUntouched(t *testing.T) {
	fake, client := newFake(t)
	fake.failGists = true
	st := store.New()
	st.SetAll([]models.ContentItem{{ID: "repo-1", Type: models.RepoContent, Title: "keep me"}})

	_, err := NewSyncer(client, st, zap.NewNop()).Sync(context.Background(), "octocat")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 1, st.Len())
	assert.Equal(t, "", st.GitHubUsername())

	_, err = NewSyncer(client, store.New(), zap.NewNop()).Sync(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoUsername)
}
