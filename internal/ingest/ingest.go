package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/capture"
	"github.com/xaenox/knowledge-hub/internal/classifier"
	"github.com/xaenox/knowledge-hub/internal/github"
	"github.com/xaenox/knowledge-hub/internal/markdown"
	"github.com/xaenox/knowledge-hub/internal/models"
	"github.com/xaenox/knowledge-hub/internal/routing"
	"github.com/xaenox/knowledge-hub/internal/store"
)

var (
	ErrDriveNotConfigured = errors.New("google drive storage is not configured")
	ErrEmptyFilename      = errors.New("filename is empty")
	ErrTooLarge           = errors.New("file exceeds the storage limit")
	ErrItemNotFound       = errors.New("item not found")
	ErrNoContent          = errors.New("item has no content to publish")
	ErrGitHubDisabled     = errors.New("github token is not configured")
	ErrNoOwner            = errors.New("no repository owner configured")
)

const (
	assetsDir       = "assets"
	maxStoredText   = 64 * 1024
	defaultDocTitle = "Untitled Document"
	defaultTaskName = "New Task"
)

// Tagger is satisfied by classifier.Service.
type Tagger interface {
	Generate(ctx context.Context, in classifier.Input, apiKey string) models.TagResult
}

// GitHub is satisfied by github.Client.
type GitHub interface {
	HasToken() bool
	UploadFile(ctx context.Context, owner, repo, path, filename string, content []byte) (string, error)
	CreateGist(ctx context.Context, description string, files map[string]string, public bool) (github.Gist, error)
	GetFileContent(ctx context.Context, owner, repo, path string) (string, error)
}

// Capturer is satisfied by capture.Capturer.
type Capturer interface {
	Capture(ctx context.Context, rawURL string) (*capture.Result, error)
}

type Config struct {
	// ContentOwner/ContentRepo is where uploaded files are committed.
	ContentOwner string
	ContentRepo  string
	OpenAIKey    string
}

type Service struct {
	store    *store.Store
	tagger   Tagger
	gh       GitHub
	capturer Capturer
	config   Config
	logger   *zap.Logger
}

// NewService wires the flows. gh and capturer may be nil.
func NewService(st *store.Store, tagger Tagger, gh GitHub, capturer Capturer, config Config, logger *zap.Logger) *Service {
	return &Service{
		store:    st,
		tagger:   tagger,
		gh:       gh,
		capturer: capturer,
		config:   config,
		logger:   logger,
	}
}

type UploadRequest struct {
	Filename  string
	MediaType string
	Data      []byte
}

type UploadResult struct {
	Item     models.ContentItem `json:"item"`
	Analysis routing.Analysis   `json:"analysis"`
	Uploaded bool               `json:"uploaded"`
	// Warning is set when the bytes could not be placed in their target storage.
	// The item is still added.
	Warning string `json:"warning,omitempty"`
	Err     error  `json:"-"`
}

// Upload classifies a file, tags it, pushes github-bound bytes to the content repo and adds the item.
// Only an empty filename or a file far beyond every storage limit is rejected.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	filename := path.Base(strings.TrimSpace(req.Filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, ErrEmptyFilename
	}
	size := int64(len(req.Data))
	analysis := routing.Classify(filename, size, req.MediaType)
	if size > routing.GoogleDriveLimit {
		return nil, fmt.Errorf("%s is %s: %w", filename, routing.FormatFileSize(size), ErrTooLarge)
	}

	text, isText := extractText(filename, req.MediaType, req.Data)
	tags := s.tagger.Generate(ctx, classifier.Input{
		Content:  text,
		Type:     analysis.Type,
		Filename: filename,
	}, s.config.OpenAIKey)

	item := models.ContentItem{
		ID:              models.NewItemID("upload"),
		Type:            analysis.Type,
		Title:           titleFromFilename(filename),
		Description:     tags.Description,
		StorageLocation: analysis.StorageLocation,
		Tags:            tags.Tags,
		Metadata: map[string]any{
			"filename": filename,
			"size":     size,
			"mimeType": req.MediaType,
		},
		Folder: tags.SuggestedFolder,
	}
	if isText {
		item.Content = truncate(string(req.Data), maxStoredText)
	}

	result := &UploadResult{Analysis: analysis}
	switch analysis.StorageLocation {
	case models.StorageGitHub:
		if url, err := s.uploadToGitHub(ctx, filename, req.Data); err != nil {
			result.Err = err
			result.Warning = err.Error()
		} else if url != "" {
			item.URL = url
			item.StoragePath = assetsDir + "/" + filename
			result.Uploaded = true
		}
	case models.StorageGoogleDrive:
		result.Err = ErrDriveNotConfigured
		result.Warning = ErrDriveNotConfigured.Error()
	}

	result.Item = s.store.Add(item)
	s.logger.Info("Ingested upload",
		zap.String("item_id", result.Item.ID),
		zap.String("filename", filename),
		zap.String("type", string(analysis.Type)),
		zap.String("storage", string(analysis.StorageLocation)),
		zap.Bool("uploaded", result.Uploaded))
	return result, nil
}

// uploadToGitHub returns "" without error when no token or content repo is configured.
func (s *Service) uploadToGitHub(ctx context.Context, filename string, data []byte) (string, error) {
	if s.gh == nil || !s.gh.HasToken() || s.config.ContentRepo == "" {
		return "", nil
	}
	owner := s.contentOwner()
	if owner == "" {
		return "", nil
	}

	url, err := s.gh.UploadFile(ctx, owner, s.config.ContentRepo, assetsDir+"/"+filename, filename, data)
	if err != nil {
		s.logger.Error("Failed to upload file to GitHub", zap.Error(err), zap.String("filename", filename))
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	return url, nil
}

func (s *Service) contentOwner() string {
	if s.config.ContentOwner != "" {
		return s.config.ContentOwner
	}
	return s.store.GitHubUsername()
}

// NewDocument stores a markdown document written in the hub. An empty title is taken
// from the first heading.
func (s *Service) NewDocument(ctx context.Context, title, content string) models.ContentItem {
	title = strings.TrimSpace(title)
	if title == "" {
		title = markdown.Title([]byte(content), defaultDocTitle)
	}
	tags := s.tagger.Generate(ctx, classifier.Input{
		Content:  content,
		Type:     models.MarkdownContent,
		Filename: title + ".md",
	}, s.config.OpenAIKey)

	item := s.store.Add(models.ContentItem{
		ID:              models.NewItemID("md"),
		Type:            models.MarkdownContent,
		Title:           title,
		Content:         content,
		Description:     tags.Description,
		StorageLocation: models.StorageLocal,
		Tags:            tags.Tags,
		Metadata:        documentStats(content),
		Folder:          tags.SuggestedFolder,
	})
	s.logger.Info("Created document", zap.String("item_id", item.ID), zap.String("title", title))
	return item
}

// UpdateDocument re-tags an edited document. It reports false for unknown ids.
func (s *Service) UpdateDocument(ctx context.Context, id, title, content string) (models.ContentItem, bool) {
	current, ok := s.store.Get(id)
	if !ok {
		return models.ContentItem{}, false
	}
	if strings.TrimSpace(title) == "" {
		title = current.Title
	}
	tags := s.tagger.Generate(ctx, classifier.Input{
		Content:  content,
		Type:     models.MarkdownContent,
		Filename: title + ".md",
	}, s.config.OpenAIKey)

	return s.store.Update(id, store.ItemPatch{
		Title:       &title,
		Content:     &content,
		Description: &tags.Description,
		Tags:        &tags.Tags,
		Metadata:    documentStats(content),
	})
}

// NewTask adds an untagged board card to column.
func (s *Service) NewTask(column, title string) models.ContentItem {
	if column == "" {
		column = store.DefaultColumns[0].ID
	}
	if strings.TrimSpace(title) == "" {
		title = defaultTaskName
	}
	return s.store.Add(models.ContentItem{
		ID:              models.NewItemID("task"),
		Type:            models.DocumentContent,
		Title:           title,
		StorageLocation: models.StorageLocal,
		Tags:            []models.Tag{},
		Metadata:        map[string]any{},
		BoardColumn:     column,
	})
}

// CaptureWebsite crawls rawURL and adds the resulting webapp or website item.
func (s *Service) CaptureWebsite(ctx context.Context, rawURL string) (models.ContentItem, error) {
	if s.capturer == nil {
		return models.ContentItem{}, errors.New("website capture is not configured")
	}
	res, err := s.capturer.Capture(ctx, rawURL)
	if err != nil {
		return models.ContentItem{}, err
	}
	return s.store.Add(res.ToItem()), nil
}

// Classify reports routing and tags for a file without storing anything.
func (s *Service) Classify(ctx context.Context, filename, mediaType string, data []byte) (routing.Analysis, models.TagResult) {
	analysis := routing.Classify(filename, int64(len(data)), mediaType)
	text, _ := extractText(filename, mediaType, data)
	tags := s.tagger.Generate(ctx, classifier.Input{Content: text, Type: analysis.Type, Filename: filename}, s.config.OpenAIKey)
	return analysis, tags
}

var textExtensions = map[string]bool{
	".md": true, ".mdx": true, ".markdown": true, ".txt": true, ".json": true,
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".py": true,
	".swift": true, ".rs": true, ".go": true,
}

// extractText returns the text the tagger should see: the file body for text-like files
// (plain text for markdown), otherwise the filename.
func extractText(filename, mediaType string, data []byte) (string, bool) {
	ext := routing.Extension(filename)
	if !strings.HasPrefix(mediaType, "text/") && !textExtensions[ext] {
		return filename, false
	}
	if !utf8.Valid(data) {
		return filename, false
	}
	if ext == ".md" || ext == ".mdx" || ext == ".markdown" {
		if doc := markdown.Parse(data); doc.Text != "" {
			return doc.Text, true
		}
	}
	return string(data), true
}

// titleFromFilename drops the extension. Dotfiles such as .gitignore keep their full name.
func titleFromFilename(filename string) string {
	if stem := strings.TrimSuffix(filename, path.Ext(filename)); strings.TrimSpace(stem) != "" {
		return stem
	}
	return filename
}

const excerptLength = 160

func documentStats(content string) map[string]any {
	doc := markdown.Parse([]byte(content))
	stats := map[string]any{
		"wordCount": len(strings.Fields(content)),
		"charCount": utf8.RuneCountInString(content),
		"excerpt":   markdown.Excerpt(doc.Text, excerptLength),
	}
	if len(doc.Headings) > 0 {
		stats["headings"] = doc.Headings
	}
	if len(doc.Links) > 0 {
		stats["links"] = doc.Links
	}
	return stats
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
