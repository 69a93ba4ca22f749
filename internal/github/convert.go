package github

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/knowledge-hub/internal/models"
)

const (
	topicColor   = "#6366f1"
	defaultColor = "#6b7280"
	maxTopicTags = 3
	maxFileTags  = 3
)

var languageColors = map[string]string{
	"typescript": "#3178c6",
	"javascript": "#f7df1e",
	"python":     "#3776ab",
	"swift":      "#f05138",
	"rust":       "#dea584",
	"go":         "#00add8",
	"java":       "#b07219",
	"c++":        "#f34b7d",
	"c":          "#555555",
	"ruby":       "#cc342d",
	"php":        "#4f5d95",
	"html":       "#e34f26",
	"css":        "#1572b6",
	"dart":       "#0175c2",
}

// LanguageColor returns the display color of a programming language.
func LanguageColor(language string) string {
	if c, ok := languageColors[strings.ToLower(language)]; ok {
		return c
	}
	return defaultColor
}

type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

type Repo struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     string    `json:"description"`
	HTMLURL         string    `json:"html_url"`
	Homepage        string    `json:"homepage"`
	Language        string    `json:"language"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	UpdatedAt       time.Time `json:"updated_at"`
	Topics          []string  `json:"topics"`
	Owner           Owner     `json:"owner"`
}

type GistFile struct {
	Filename string `json:"filename"`
	Language string `json:"language"`
	Size     int64  `json:"size"`
	RawURL   string `json:"raw_url"`
}

// GistFiles keeps the files in the order the API lists them.
type GistFiles []GistFile

func (f *GistFiles) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("gist files: expected object, got %v", tok)
	}

	files := GistFiles{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		var file GistFile
		if err := dec.Decode(&file); err != nil {
			return err
		}
		if file.Filename == "" {
			file.Filename, _ = keyTok.(string)
		}
		files = append(files, file)
	}
	*f = files
	return nil
}

func (f GistFiles) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, file := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(file.Filename)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(file)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type Gist struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	HTMLURL     string    `json:"html_url"`
	Files       GistFiles `json:"files"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Public      bool      `json:"public"`
}

// RepoToItem converts a repository. The id is derived from the numeric repo id so
// repeated syncs update the same item.
func RepoToItem(repo Repo) models.ContentItem {
	tags := make([]models.Tag, 0, 1+maxTopicTags)
	if repo.Language != "" {
		lang := strings.ToLower(repo.Language)
		tags = append(tags, models.Tag{ID: "lang-" + lang, Name: lang, Color: LanguageColor(lang)})
	}
	for i, topic := range repo.Topics {
		if i == maxTopicTags {
			break
		}
		tags = append(tags, models.Tag{ID: "topic-" + topic, Name: topic, Color: topicColor})
	}

	var homepage any
	if repo.Homepage != "" {
		homepage = repo.Homepage
	}

	return models.ContentItem{
		ID:              fmt.Sprintf("repo-%d", repo.ID),
		Type:            models.RepoContent,
		Title:           repo.Name,
		Description:     repo.Description,
		URL:             repo.HTMLURL,
		StorageLocation: models.StorageGitHub,
		StoragePath:     repo.FullName,
		Tags:            tags,
		Metadata: map[string]any{
			"homepage": homepage,
			"stars":    repo.StargazersCount,
			"forks":    repo.ForksCount,
		},
		CreatedAt: repo.UpdatedAt,
		UpdatedAt: repo.UpdatedAt,
		GitHub: &models.GitHubInfo{
			Owner:    repo.Owner.Login,
			Repo:     repo.Name,
			Stars:    repo.StargazersCount,
			Language: repo.Language,
			Topics:   append([]string(nil), repo.Topics...),
		},
	}
}

func GistToItem(gist Gist) models.ContentItem {
	title := gist.Description
	if title == "" && len(gist.Files) > 0 {
		title = gist.Files[0].Filename
	}
	if title == "" {
		title = "Untitled Gist"
	}

	names := make([]string, len(gist.Files))
	files := make([]map[string]any, len(gist.Files))
	tags := make([]models.Tag, 0, maxFileTags)
	for i, f := range gist.Files {
		names[i] = f.Filename
		files[i] = map[string]any{"name": f.Filename, "language": f.Language, "size": f.Size}
		if i < maxFileTags {
			lang := strings.ToLower(f.Language)
			if lang == "" {
				lang = "text"
			}
			tags = append(tags, models.Tag{ID: "gist-file-" + f.Filename, Name: lang, Color: LanguageColor(lang)})
		}
	}

	plural := ""
	if len(gist.Files) > 1 {
		plural = "s"
	}

	return models.ContentItem{
		ID:              "gist-" + gist.ID,
		Type:            models.GistContent,
		Title:           title,
		Description:     fmt.Sprintf("%d file%s: %s", len(gist.Files), plural, strings.Join(names, ", ")),
		URL:             gist.HTMLURL,
		StorageLocation: models.StorageGitHub,
		StoragePath:     gist.ID,
		Tags:            tags,
		Metadata: map[string]any{
			"files":  files,
			"public": gist.Public,
		},
		CreatedAt: gist.CreatedAt,
		UpdatedAt: gist.UpdatedAt,
	}
}

// IsGitHubItem reports whether item came from a repo or gist listing.
func IsGitHubItem(item *models.ContentItem) bool {
	return strings.HasPrefix(item.ID, "repo-") || strings.HasPrefix(item.ID, "gist-")
}
