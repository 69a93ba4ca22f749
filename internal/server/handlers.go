package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/capture"
	"github.com/xaenox/knowledge-hub/internal/github"
	"github.com/xaenox/knowledge-hub/internal/ingest"
	"github.com/xaenox/knowledge-hub/internal/markdown"
	"github.com/xaenox/knowledge-hub/internal/models"
	"github.com/xaenox/knowledge-hub/internal/routing"
	"github.com/xaenox/knowledge-hub/internal/store"
)

const (
	maxJSONBody     = 8 << 20
	maxUploadMemory = 32 << 20
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"items":          s.store.Len(),
		"githubUsername": s.store.GitHubUsername(),
		"uptime":         time.Since(s.started).Round(time.Second).String(),
	})
}

// handleListItems updates the ambient search and filter from whichever query
// parameters are present, then returns the filtered view.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("q") {
		s.store.SetSearchQuery(q.Get("q"))
	}

	var patch store.FilterPatch
	if q.Has("type") {
		t := models.ContentType(q.Get("type"))
		if t != "" && !t.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown type %q", t))
			return
		}
		patch.Type = &t
	}
	if q.Has("folder") {
		folder := q.Get("folder")
		patch.Folder = &folder
	}
	if q.Has("tags") {
		tags := splitList(q.Get("tags"))
		patch.Tags = &tags
	}
	s.store.SetActiveFilter(patch)

	writeJSON(w, http.StatusOK, map[string]any{
		"items":  s.store.Filtered(),
		"query":  s.store.SearchQuery(),
		"filter": s.store.ActiveFilter(),
	})
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var item models.ContentItem
	if !decodeJSON(w, r, &item) {
		return
	}
	if strings.TrimSpace(item.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if !item.Type.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown type %q", item.Type))
		return
	}
	if item.ID != "" && github.IsGitHubItem(&item) {
		writeError(w, http.StatusBadRequest, "ids starting with repo- or gist- are reserved for github sync")
		return
	}
	if item.StorageLocation == "" {
		item.StorageLocation = models.StorageLocal
	}
	if item.ID == "" {
		item.ID = models.NewItemID(string(item.Type))
	}
	writeJSON(w, http.StatusCreated, s.store.Add(item))
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch store.ItemPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Type != nil && !patch.Type.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown type %q", *patch.Type))
		return
	}
	item, ok := s.store.Update(r.PathValue("id"), patch)
	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if !s.store.Remove(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	var pos models.Position
	if !decodeJSON(w, r, &pos) {
		return
	}
	id := r.PathValue("id")
	if !s.store.UpdatePosition(id, pos) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	item, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.AllTags())
}

// handleTagPool returns the tags accumulated by every add, including those of removed items.
func (s *Server) handleTagPool(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Tags())
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	type folderView struct {
		models.SmartFolder
		Count int `json:"count"`
	}
	counts := s.store.FolderCounts()
	folders := s.store.Folders()
	out := make([]folderView, len(folders))
	for i, f := range folders {
		out[i] = folderView{SmartFolder: f, Count: counts[f.ID]}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFolderItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ByFolder(r.PathValue("id")))
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Board())
}

func (s *Server) handleBoardColumn(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ColumnItems(r.PathValue("column")))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":  s.store.Stats(),
		"pinned": s.store.Pinned(),
		"recent": s.store.Recent(5),
	})
}

// handleItemHTML renders the item's markdown content.
func (s *Server) handleItemHTML(w http.ResponseWriter, r *http.Request) {
	item, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, markdown.HTML([]byte(item.Content)))
}

type checklistRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleAddChecklist(w http.ResponseWriter, r *http.Request) {
	var req checklistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if _, ok := s.store.AddChecklist(id, req.Title); !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	item, _ := s.store.Get(id)
	writeJSON(w, http.StatusCreated, item)
}

type checklistItemRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAddChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req checklistItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	id := r.PathValue("id")
	if _, ok := s.store.AddChecklistItem(id, r.PathValue("cid"), req.Text); !ok {
		writeError(w, http.StatusNotFound, "item or checklist not found")
		return
	}
	item, _ := s.store.Get(id)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.store.ToggleChecklistItem(id, r.PathValue("cid"), r.PathValue("iid")) {
		writeError(w, http.StatusNotFound, "checklist entry not found")
		return
	}
	item, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, item)
}

type gistRequest struct {
	Public bool `json:"public"`
}

func (s *Server) handlePublishGist(w http.ResponseWriter, r *http.Request) {
	var req gistRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	item, err := s.ingest.PublishGist(r.Context(), r.PathValue("id"), req.Public)
	switch {
	case errors.Is(err, ingest.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ingest.ErrNoContent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ingest.ErrGitHubDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusCreated, item)
	}
}

type importRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Path  string `json:"path"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := s.ingest.ImportFile(r.Context(), req.Owner, req.Repo, req.Path)
	var statusErr *github.StatusError
	switch {
	case errors.Is(err, ingest.ErrEmptyFilename), errors.Is(err, ingest.ErrNoOwner):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ingest.ErrGitHubDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusCreated, item)
	}
}

type documentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusCreated, s.ingest.NewDocument(r.Context(), req.Title, req.Content))
}

type taskRequest struct {
	Column string `json:"column"`
	Title  string `json:"title"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusCreated, s.ingest.NewTask(req.Column, req.Title))
}

type syncRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "github sync is not configured")
		return
	}
	var req syncRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.syncer.Sync(r.Context(), req.Username)
	var statusErr *github.StatusError
	switch {
	case errors.Is(err, github.ErrNoUsername):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &statusErr):
		writeError(w, http.StatusBadGateway, err.Error())
	case err != nil:
		s.logger.Error("Failed to sync", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

type captureRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := s.ingest.CaptureWebsite(r.Context(), req.URL)
	if errors.Is(err, capture.ErrEmptyURL) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// handleUpload expects a multipart form with a "file" field.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	tooLarge := fmt.Sprintf("upload exceeds %s", routing.FormatFileSize(s.maxUpload))
	if r.ContentLength > s.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, tooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, tooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return
	}
	if int64(len(data)) > s.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, tooLarge)
		return
	}

	res, err := s.ingest.Upload(r.Context(), ingest.UploadRequest{
		Filename:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Data:      data,
	})
	switch {
	case errors.Is(err, ingest.ErrEmptyFilename):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ingest.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusCreated, res)
	}
}

type classifyRequest struct {
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
	Content   string `json:"content"`
}

// handleClassify previews routing and tags without storing anything. Size, when given,
// overrides the content length for routing.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}
	analysis, tags := s.ingest.Classify(r.Context(), req.Filename, req.MediaType, []byte(req.Content))
	if req.Size > 0 {
		analysis = routing.Classify(req.Filename, req.Size, req.MediaType)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis": analysis,
		"size":     routing.FormatFileSize(max(req.Size, int64(len(req.Content)))),
		"tags":     tags,
	})
}

// decodeJSON reads a single JSON value and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request payload: %v", err))
		return false
	}
	if t, err := dec.Token(); err != io.EOF || t != nil {
		writeError(w, http.StatusBadRequest, "request body must only contain a single JSON object")
		return false
	}
	return true
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
