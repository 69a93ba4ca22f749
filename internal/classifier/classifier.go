package classifier

import (
	"context"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/xaenox/knowledge-hub/internal/models"
)

const DefaultMaxTags = 5

// Input is the content a tag set is generated for.
type Input struct {
	Content  string
	Type     models.ContentType
	Filename string
}

// Tagger produces tags, a description and a folder suggestion. Implementations never fail.
type Tagger interface {
	GenerateTags(ctx context.Context, in Input) models.TagResult
}

var Palette = []string{
	"#ef4444", "#f97316", "#eab308", "#22c55e", "#14b8a6",
	"#06b6d4", "#3b82f6", "#6366f1", "#8b5cf6", "#d946ef",
	"#ec4899", "#f43f5e",
}

// ColorFor picks a palette color from the tag id, so equal ids get equal colors.
func ColorFor(id string) string {
	return Palette[xxhash.Sum64String(id)%uint64(len(Palette))]
}

type signature struct {
	name     string
	patterns []string
}

// Matched against filename and content.
var languageSignatures = []signature{
	{"typescript", []string{".ts", ".tsx", "interface ", "type "}},
	{"javascript", []string{".js", ".jsx", "const ", "function "}},
	{"python", []string{".py", "def ", "import ", "class "}},
	{"swift", []string{".swift", "func ", "struct ", "class "}},
	{"rust", []string{".rs", "fn ", "impl ", "pub "}},
	{"react", []string{"react", "usestate", "useeffect", "<component"}},
	{"nextjs", []string{"next", "getstaticprops", "getserverside"}},
	{"tailwind", []string{"tailwind", "classname="}},
}

// Matched against content only.
var topicSignatures = []signature{
	{"api", []string{"api", "endpoint", "fetch", "axios"}},
	{"database", []string{"database", "sql", "mongodb", "prisma"}},
	{"ui", []string{"component", "button", "modal", "form"}},
	{"auth", []string{"auth", "login", "password", "jwt"}},
	{"ai", []string{"openai", "gpt", "claude", "llm", "ml"}},
	{"desktop", []string{"electron", "tauri", "native", "macos"}},
	{"mobile", []string{"ios", "android", "react-native", "flutter"}},
}

type LocalTagger struct {
	maxTags int
}

func NewLocalTagger(maxTags int) *LocalTagger {
	if maxTags <= 0 {
		maxTags = DefaultMaxTags
	}
	return &LocalTagger{maxTags: maxTags}
}

func (c *LocalTagger) GenerateTags(_ context.Context, in Input) models.TagResult {
	return generateLocal(in, c.maxTags)
}

// GenerateLocal is the deterministic rule based tagger with the default tag limit.
func GenerateLocal(content string, contentType models.ContentType, filename string) models.TagResult {
	return generateLocal(Input{Content: content, Type: contentType, Filename: filename}, DefaultMaxTags)
}

func generateLocal(in Input, maxTags int) models.TagResult {
	content := strings.ToLower(in.Content)
	filename := strings.ToLower(in.Filename)

	tags := []models.Tag{localTag("tag-type-"+string(in.Type), string(in.Type))}

	for _, sig := range languageSignatures {
		if matchesAny(sig.patterns, filename, content) {
			tags = append(tags, localTag("tag-lang-"+sig.name, sig.name))
		}
	}
	for _, sig := range topicSignatures {
		if matchesAny(sig.patterns, content) {
			tags = append(tags, localTag("tag-topic-"+sig.name, sig.name))
		}
	}

	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	return models.TagResult{
		Tags:            tags,
		Description:     in.Type.Title() + " file: " + in.Filename,
		SuggestedFolder: SuggestFolder(in.Type),
	}
}

// SuggestFolder maps a content type to its default smart folder.
func SuggestFolder(t models.ContentType) string {
	switch t {
	case models.RepoContent:
		return "projects"
	case models.SnippetContent, models.GistContent:
		return "snippets"
	case models.DocumentContent, models.MarkdownContent:
		return "documents"
	case models.ImageContent, models.VideoContent:
		return "media"
	}
	return "resources"
}

func localTag(id, name string) models.Tag {
	return models.Tag{ID: id, Name: name, Color: ColorFor(id)}
}

func matchesAny(patterns []string, haystacks ...string) bool {
	for _, p := range patterns {
		p = strings.ToLower(p)
		for _, h := range haystacks {
			if h != "" && strings.Contains(h, p) {
				return true
			}
		}
	}
	return false
}
