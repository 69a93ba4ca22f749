package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/models"
)

var ErrEmptyURL = errors.New("url is empty")

const (
	maxTags        = 5
	deployedColor  = "#22c55e"
	defaultMaxBody = 5 << 20
)

var tagColors = []string{"#3b82f6", "#8b5cf6", "#ec4899", "#f97316", "#22c55e", "#14b8a6"}

// Result is everything learned about a site in one capture.
type Result struct {
	Metadata    models.WebsiteMetadata
	Tags        []models.Tag
	Title       string
	Description string
}

type Capturer struct {
	httpClient *http.Client
	userAgent  string
	maxBody    int64
	now        func() time.Time
	logger     *zap.Logger
}

type Option func(*Capturer)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Capturer) { c.httpClient = httpClient }
}

func WithUserAgent(ua string) Option {
	return func(c *Capturer) { c.userAgent = ua }
}

func WithClock(now func() time.Time) Option {
	return func(c *Capturer) { c.now = now }
}

func NewCapturer(logger *zap.Logger, opts ...Option) *Capturer {
	c := &Capturer{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  "knowledge-hub/1.0",
		maxBody:    defaultMaxBody,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeURL adds https:// when rawURL has no http(s) scheme.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if strings.HasPrefix(rawURL, "http") {
		return rawURL
	}
	return "https://" + rawURL
}

// Capture fetches the page at rawURL once and derives title, tech stack, routes and tags from it.
func (c *Capturer) Capture(ctx context.Context, rawURL string) (*Result, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, ErrEmptyURL
	}
	target := NormalizeURL(rawURL)
	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("failed to capture website: invalid url %q", rawURL)
	}

	html, err := c.fetch(ctx, target)
	if err != nil {
		c.logger.Warn("Failed to fetch website", zap.String("url", target), zap.Error(err))
		return nil, fmt.Errorf("failed to capture website: %w", err)
	}

	title := ExtractTitle(html)
	if title == "" {
		title = parsed.Hostname()
	}
	stack := DetectTechStack(html, target)
	pages := ExtractRoutes(target, html)
	crawled := c.now()

	metadata := models.WebsiteMetadata{
		BaseURL:       target,
		Pages:         pages,
		TechStack:     stack,
		Framework:     Framework(stack),
		IsDeployed:    true,
		DeploymentURL: target,
		LastCrawled:   &crawled,
	}

	c.logger.Info("Captured website",
		zap.String("url", target),
		zap.Int("pages", len(pages)),
		zap.Strings("tech", stack))

	return &Result{
		Metadata:    metadata,
		Tags:        GenerateWebsiteTags(metadata),
		Title:       title,
		Description: Describe(metadata),
	}, nil
}

func (c *Capturer) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// GenerateWebsiteTags builds the page-count tag, one tag per technology and the deployed tag, capped at five.
func GenerateWebsiteTags(metadata models.WebsiteMetadata) []models.Tag {
	tags := make([]models.Tag, 0, 2+len(metadata.TechStack))
	next := 0
	color := func() string {
		c := tagColors[next%len(tagColors)]
		next++
		return c
	}

	name := "single-page"
	if len(metadata.Pages) > 1 {
		name = "multi-page"
	}
	tags = append(tags, models.Tag{ID: "type-webapp", Name: name, Color: color()})

	for _, tech := range metadata.TechStack {
		lower := strings.ToLower(tech)
		tags = append(tags, models.Tag{
			ID:    "tech-" + strings.Join(strings.Fields(lower), "-"),
			Name:  lower,
			Color: color(),
		})
	}
	if metadata.IsDeployed {
		tags = append(tags, models.Tag{ID: "deployed", Name: "deployed", Color: deployedColor})
	}

	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return tags
}

// Describe renders e.g. "Next.js app with 3 pages. Built with Next.js, Vercel, Tailwind".
func Describe(metadata models.WebsiteMetadata) string {
	framework := metadata.Framework
	if framework == "" {
		framework = "Web"
	}
	n := len(metadata.Pages)
	plural := "s"
	if n == 1 {
		plural = ""
	}
	desc := fmt.Sprintf("%s app with %d page%s", framework, n, plural)
	if len(metadata.TechStack) > 0 {
		stack := metadata.TechStack
		if len(stack) > 3 {
			stack = stack[:3]
		}
		desc += ". Built with " + strings.Join(stack, ", ")
	}
	return desc
}

// ToItem turns a capture into a content item: a webapp when more than one page was found, else a website.
func (r *Result) ToItem() models.ContentItem {
	typ := models.WebsiteContent
	if len(r.Metadata.Pages) > 1 {
		typ = models.WebappContent
	}
	website := r.Metadata.Clone()
	return models.ContentItem{
		ID:              models.NewItemID("webapp"),
		Type:            typ,
		Title:           r.Title,
		Description:     r.Description,
		URL:             r.Metadata.BaseURL,
		StorageLocation: models.StorageExternal,
		Tags:            append([]models.Tag{}, r.Tags...),
		Metadata: map[string]any{
			"pageCount": len(r.Metadata.Pages),
			"techStack": append([]string{}, r.Metadata.TechStack...),
			"framework": r.Metadata.Framework,
		},
		Website: &website,
		Folder:  "projects",
	}
}
