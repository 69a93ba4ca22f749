package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/capture"
	"github.com/xaenox/knowledge-hub/internal/classifier"
	"github.com/xaenox/knowledge-hub/internal/github"
	"github.com/xaenox/knowledge-hub/internal/ingest"
	"github.com/xaenox/knowledge-hub/internal/storage"
	"github.com/xaenox/knowledge-hub/internal/store"
	"github.com/xaenox/knowledge-hub/pkg/config"
)

type App struct {
	ConfigPath string
	Config     *config.Config
	Logger     *zap.Logger
}

// Hub is the wired runtime shared by every command.
type Hub struct {
	Store   *store.Store
	Ingest  *ingest.Service
	GitHub  *github.Client
	Syncer  *github.Syncer
	storage storage.Storage
	saver   *storage.AutoSaver
	logger  *zap.Logger
}

func openStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Backend {
	case "memory":
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	case "file":
		logger.Info("Using file storage", zap.String("dir", cfg.DataDir))
		return storage.NewFileStorage(cfg.DataDir, cfg.Name), nil
	case "sqlite":
		logger.Info("Using SQLite storage", zap.String("path", cfg.SQLitePath))
		return storage.NewSQLiteStorage(ctx, cfg.SQLitePath, cfg.Name)
	case "postgres":
		logger.Info("Using PostgreSQL storage")
		return storage.NewPostgresStorage(ctx, storage.DatabaseConfig(cfg.Database), cfg.Name, logger)
	case "redis":
		logger.Info("Using Redis storage")
		return storage.NewRedisStorage(ctx, cfg.RedisURL, cfg.Name)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// openHub restores the persisted snapshot and starts autosaving every change.
func (a *App) openHub(ctx context.Context) (*Hub, error) {
	cfg := a.Config

	backend, err := openStorage(ctx, cfg.Storage, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	snap, err := backend.Load(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		backend.Close()
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	saver := storage.NewAutoSaver(backend, a.Logger)
	st := store.New(store.WithOnChange(saver.Notify), store.WithLogger(a.Logger))
	if err == nil {
		st.Restore(snap)
	}
	if st.GitHubUsername() == "" && cfg.GitHub.Username != "" {
		st.SetGitHubUsername(cfg.GitHub.Username)
	}

	gh := github.NewClient(cfg.GitHub.Token, github.WithBaseURL(cfg.GitHub.BaseURL), github.WithLogger(a.Logger))
	tagger := classifier.NewService(classifier.Options{
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
		MaxTags:     cfg.Classifier.MaxTags,
	}, nil, a.Logger)
	capturer := capture.NewCapturer(a.Logger,
		capture.WithHTTPClient(&http.Client{Timeout: cfg.Capture.Timeout}),
		capture.WithUserAgent(cfg.Capture.UserAgent),
	)
	svc := ingest.NewService(st, tagger, gh, capturer, ingest.Config{
		ContentOwner: cfg.GitHub.ContentOwner,
		ContentRepo:  cfg.GitHub.ContentRepo,
		OpenAIKey:    cfg.OpenAI.APIKey,
	}, a.Logger)

	return &Hub{
		Store:   st,
		Ingest:  svc,
		GitHub:  gh,
		Syncer:  github.NewSyncer(gh, st, a.Logger),
		storage: backend,
		saver:   saver,
		logger:  a.Logger,
	}, nil
}

// Close flushes the last snapshot before releasing the backend.
func (h *Hub) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := h.saver.Close(ctx); err != nil {
		h.logger.Error("Failed to flush snapshot", zap.Error(err))
	}
	if err := h.storage.Close(); err != nil {
		h.logger.Error("Failed to close storage", zap.Error(err))
	}
}
