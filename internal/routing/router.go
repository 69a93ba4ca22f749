// Package routing decides what kind of content a file is and where its bytes should live.
package routing

import (
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/xaenox/knowledge-hub/internal/models"
)

const (
	MB = 1024 * 1024
	GB = 1024 * MB

	GitHubLimit          = 100 * MB
	GitHubImageLimit     = 10 * MB
	GoogleDriveLimit     = 5 * GB
	ReleaseBinaryMinimum = 10 * MB
	VideoLimit           = 50 * MB
)

var extensionTypes = map[string]models.ContentType{
	// code
	".ts": models.SnippetContent, ".tsx": models.SnippetContent, ".js": models.SnippetContent,
	".jsx": models.SnippetContent, ".py": models.SnippetContent, ".swift": models.SnippetContent,
	".rs": models.SnippetContent, ".go": models.SnippetContent, ".java": models.SnippetContent,
	".cpp": models.SnippetContent, ".c": models.SnippetContent, ".h": models.SnippetContent,
	".css": models.SnippetContent, ".scss": models.SnippetContent, ".html": models.SnippetContent,
	// documents
	".md": models.MarkdownContent, ".mdx": models.MarkdownContent,
	".pdf": models.DocumentContent, ".doc": models.DocumentContent, ".docx": models.DocumentContent,
	".txt": models.DocumentContent, ".rtf": models.DocumentContent,
	// images
	".png": models.ImageContent, ".jpg": models.ImageContent, ".jpeg": models.ImageContent,
	".gif": models.ImageContent, ".webp": models.ImageContent, ".svg": models.ImageContent,
	".ico": models.ImageContent,
	// video
	".mp4": models.VideoContent, ".mov": models.VideoContent, ".webm": models.VideoContent,
	".avi": models.VideoContent,
	// data
	".json": models.FileContent, ".xml": models.FileContent, ".yaml": models.FileContent,
	".yml": models.FileContent, ".csv": models.FileContent, ".sql": models.FileContent,
	// binaries
	".app": models.FileContent, ".dmg": models.FileContent, ".exe": models.FileContent,
	".zip": models.FileContent,
}

var packagedBinaries = map[string]bool{".app": true, ".dmg": true, ".exe": true, ".zip": true}

// Analysis is the routing decision for one file.
type Analysis struct {
	Type            models.ContentType     `json:"type"`
	StorageLocation models.StorageLocation `json:"storageLocation"`
	// MaxAllowedSize is the ceiling of the chosen target. It is advisory.
	MaxAllowedSize int64 `json:"maxAllowedSize"`
	ShouldCompress bool  `json:"shouldCompress"`
}

// Extension returns the lower-cased extension including the dot, or "" when there is none.
func Extension(filename string) string {
	ext := path.Ext(filename)
	if ext == "." {
		return ""
	}
	return strings.ToLower(ext)
}

// TypeFor returns the content type for a filename, consulting mediaType only for unknown extensions.
func TypeFor(filename, mediaType string) models.ContentType {
	if t, ok := extensionTypes[Extension(filename)]; ok {
		return t
	}
	return typeForMediaType(mediaType)
}

func typeForMediaType(mediaType string) models.ContentType {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return models.ImageContent
	case strings.HasPrefix(mt, "video/"):
		return models.VideoContent
	case mt == "text/markdown" || mt == "text/x-markdown":
		return models.MarkdownContent
	case mt == "application/pdf", strings.HasPrefix(mt, "text/"):
		return models.DocumentContent
	}
	return models.FileContent
}

// Classify decides the content type and storage target of a file. Zero-byte files are valid.
func Classify(filename string, size int64, mediaType string) Analysis {
	ext := Extension(filename)
	contentType := TypeFor(filename, mediaType)

	location := models.StorageGitHub
	switch {
	case size > GitHubLimit:
		location = models.StorageGoogleDrive
	case packagedBinaries[ext] && size > ReleaseBinaryMinimum:
		location = models.StorageGitHubReleases
	case contentType == models.ImageContent && size > GitHubImageLimit:
		location = models.StorageGoogleDrive
	case contentType == models.VideoContent && size > VideoLimit:
		location = models.StorageGoogleDrive
	}

	return Analysis{
		Type:            contentType,
		StorageLocation: location,
		MaxAllowedSize:  MaxSizeFor(location),
	}
}

// MaxSizeFor returns the size ceiling of a storage target.
func MaxSizeFor(location models.StorageLocation) int64 {
	if location == models.StorageGoogleDrive {
		return GoogleDriveLimit
	}
	return GitHubLimit
}

// FormatFileSize renders a byte count with one decimal, e.g. "1.5 MB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(value*10)/10, 'f', -1, 64) + " " + units[i]
}
