package github

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xaenox/knowledge-hub/internal/models"
	"github.com/xaenox/knowledge-hub/internal/store"
)

var ErrNoUsername = errors.New("github username is not set")

// Syncer pulls a user's repos and gists into the store.
type Syncer struct {
	client *Client
	store  *store.Store
	logger *zap.Logger
}

func NewSyncer(client *Client, st *store.Store, logger *zap.Logger) *Syncer {
	return &Syncer{client: client, store: st, logger: logger}
}

// Sync fetches repos and gists concurrently and merges them by id. Items that are not
// from GitHub are left alone. When either fetch fails the store is not touched.
// An empty username falls back to the one saved in the store.
func (s *Syncer) Sync(ctx context.Context, username string) (store.MergeResult, error) {
	if username == "" {
		username = s.store.GitHubUsername()
	}
	if username == "" {
		return store.MergeResult{}, ErrNoUsername
	}

	var (
		repos []Repo
		gists []Gist
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		repos, err = s.client.FetchRepos(gctx, username)
		return err
	})
	g.Go(func() error {
		var err error
		gists, err = s.client.FetchGists(gctx, username)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to sync GitHub", zap.Error(err), zap.String("username", username))
		return store.MergeResult{}, fmt.Errorf("sync %s: %w", username, err)
	}

	items := make([]models.ContentItem, 0, len(repos)+len(gists))
	for _, repo := range repos {
		items = append(items, RepoToItem(repo))
	}
	for _, gist := range gists {
		items = append(items, GistToItem(gist))
	}

	if s.store.GitHubUsername() != username {
		s.store.SetGitHubUsername(username)
	}
	result := s.store.MergeSource(IsGitHubItem, items)
	s.logger.Info("Synced GitHub",
		zap.String("username", username),
		zap.Int("repos", len(repos)),
		zap.Int("gists", len(gists)))
	return result, nil
}
