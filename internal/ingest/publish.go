package ingest

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/classifier"
	"github.com/xaenox/knowledge-hub/internal/github"
	"github.com/xaenox/knowledge-hub/internal/markdown"
	"github.com/xaenox/knowledge-hub/internal/models"
	"github.com/xaenox/knowledge-hub/internal/routing"
)

// PublishGist shares the content of item id as a new gist and adds the gist to the hub.
// The source item is left as it is.
func (s *Service) PublishGist(ctx context.Context, id string, public bool) (models.ContentItem, error) {
	item, ok := s.store.Get(id)
	if !ok {
		return models.ContentItem{}, fmt.Errorf("%s: %w", id, ErrItemNotFound)
	}
	if strings.TrimSpace(item.Content) == "" {
		return models.ContentItem{}, fmt.Errorf("%s: %w", id, ErrNoContent)
	}
	if s.gh == nil || !s.gh.HasToken() {
		return models.ContentItem{}, ErrGitHubDisabled
	}

	description := item.Description
	if description == "" {
		description = item.Title
	}
	filename := gistFilename(item)
	gist, err := s.gh.CreateGist(ctx, description, map[string]string{filename: item.Content}, public)
	if err != nil {
		s.logger.Error("Failed to create gist", zap.Error(err), zap.String("item_id", id))
		return models.ContentItem{}, fmt.Errorf("create gist for %s: %w", id, err)
	}

	added := s.store.Add(github.GistToItem(gist))
	s.logger.Info("Published gist", zap.String("item_id", id), zap.String("gist_id", gist.ID))
	return added, nil
}

// gistFilename prefers the uploaded filename, then the title with an extension for the type.
func gistFilename(item models.ContentItem) string {
	if name, ok := item.Metadata["filename"].(string); ok && name != "" {
		return name
	}
	name := strings.TrimSpace(item.Title)
	if name == "" {
		name = "snippet"
	}
	if routing.Extension(name) != "" {
		return name
	}
	switch item.Type {
	case models.MarkdownContent, models.DocumentContent:
		return name + ".md"
	default:
		return name + ".txt"
	}
}

// ImportFile copies a text file from a GitHub repository into the hub as a tagged item.
// An empty owner falls back to the content owner.
func (s *Service) ImportFile(ctx context.Context, owner, repo, filePath string) (models.ContentItem, error) {
	if s.gh == nil {
		return models.ContentItem{}, ErrGitHubDisabled
	}
	if owner == "" {
		owner = s.contentOwner()
	}
	if owner == "" {
		return models.ContentItem{}, ErrNoOwner
	}
	if repo == "" {
		repo = s.config.ContentRepo
	}
	filePath = strings.Trim(filePath, "/")
	filename := path.Base(filePath)
	if repo == "" || filePath == "" {
		return models.ContentItem{}, fmt.Errorf("repository and path are required: %w", ErrEmptyFilename)
	}

	content, err := s.gh.GetFileContent(ctx, owner, repo, filePath)
	if err != nil {
		return models.ContentItem{}, fmt.Errorf("import %s/%s/%s: %w", owner, repo, filePath, err)
	}

	analysis := routing.Classify(filename, int64(len(content)), "")
	text, _ := extractText(filename, "text/plain", []byte(content))
	tags := s.tagger.Generate(ctx, classifier.Input{
		Content:  text,
		Type:     analysis.Type,
		Filename: filename,
	}, s.config.OpenAIKey)

	title := titleFromFilename(filename)
	if analysis.Type == models.MarkdownContent {
		title = markdown.Title([]byte(content), title)
	}
	metadata := documentStats(content)
	metadata["filename"] = filename
	metadata["repo"] = owner + "/" + repo

	item := s.store.Add(models.ContentItem{
		ID:              models.NewItemID("import"),
		Type:            analysis.Type,
		Title:           title,
		Description:     tags.Description,
		Content:         truncate(content, maxStoredText),
		URL:             fmt.Sprintf("https://github.com/%s/%s/blob/HEAD/%s", owner, repo, filePath),
		StorageLocation: models.StorageGitHub,
		StoragePath:     filePath,
		Tags:            tags.Tags,
		Metadata:        metadata,
		Folder:          tags.SuggestedFolder,
	})
	s.logger.Info("Imported file", zap.String("item_id", item.ID), zap.String("repo", owner+"/"+repo), zap.String("path", filePath))
	return item, nil
}
