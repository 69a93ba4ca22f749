// Package server exposes the hub over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/ingest"
	"github.com/xaenox/knowledge-hub/internal/store"
)

// Syncer is satisfied by github.Syncer.
type Syncer interface {
	Sync(ctx context.Context, username string) (store.MergeResult, error)
}

// DefaultMaxUploadSize bounds a multipart upload body.
const DefaultMaxUploadSize = 100 << 20

type Server struct {
	store     *store.Store
	ingest    *ingest.Service
	syncer    Syncer
	apiKeys   map[string]struct{}
	maxUpload int64
	logger    *zap.Logger
	started   time.Time
}

type Option func(*Server)

// WithMaxUploadSize caps the request body of /api/upload. Non-positive values keep the default.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// New builds the API. syncer may be nil, in which case /api/sync answers 503.
// An empty apiKeys set disables authentication.
func New(st *store.Store, svc *ingest.Service, syncer Syncer, apiKeys map[string]struct{}, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		store:     st,
		ingest:    svc,
		syncer:    syncer,
		apiKeys:   apiKeys,
		maxUpload: DefaultMaxUploadSize,
		logger:    logger,
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.HandleFunc("GET /api/items", s.handleListItems)
	mux.HandleFunc("POST /api/items", s.handleCreateItem)
	mux.HandleFunc("GET /api/items/{id}", s.handleGetItem)
	mux.HandleFunc("PATCH /api/items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/items/{id}", s.handleDeleteItem)
	mux.HandleFunc("PUT /api/items/{id}/position", s.handleUpdatePosition)
	mux.HandleFunc("GET /api/items/{id}/html", s.handleItemHTML)
	mux.HandleFunc("POST /api/items/{id}/gist", s.handlePublishGist)
	mux.HandleFunc("POST /api/items/{id}/checklists", s.handleAddChecklist)
	mux.HandleFunc("POST /api/items/{id}/checklists/{cid}/items", s.handleAddChecklistItem)
	mux.HandleFunc("PATCH /api/items/{id}/checklists/{cid}/items/{iid}/toggle", s.handleToggleChecklistItem)

	mux.HandleFunc("GET /api/tags", s.handleTags)
	mux.HandleFunc("GET /api/tags/pool", s.handleTagPool)
	mux.HandleFunc("GET /api/folders", s.handleFolders)
	mux.HandleFunc("GET /api/folders/{id}/items", s.handleFolderItems)
	mux.HandleFunc("GET /api/board", s.handleBoard)
	mux.HandleFunc("GET /api/board/{column}", s.handleBoardColumn)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("POST /api/documents", s.handleCreateDocument)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("POST /api/sync", s.handleSync)
	mux.HandleFunc("POST /api/capture", s.handleCapture)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("POST /api/classify", s.handleClassify)

	var h http.Handler = mux
	if len(s.apiKeys) > 0 {
		h = authMiddleware(s.apiKeys)(h)
	}
	return loggingMiddleware(s.logger)(h)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server is listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Server is shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
