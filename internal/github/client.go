package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.github.com"

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to %s: %d", e.Op, e.StatusCode)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

// WithBaseURL points the client at another API root, such as a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a client. An empty token sends unauthenticated requests.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasToken reports whether write operations can be attempted.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// FetchRepos lists the public repositories of username, most recently updated first.
func (c *Client) FetchRepos(ctx context.Context, username string) ([]Repo, error) {
	var repos []Repo
	path := fmt.Sprintf("/users/%s/repos?per_page=100&sort=updated", url.PathEscape(username))
	if err := c.getJSON(ctx, "fetch repos", path, &repos); err != nil {
		return nil, err
	}
	c.logger.Debug("Fetched repos", zap.String("username", username), zap.Int("count", len(repos)))
	return repos, nil
}

func (c *Client) FetchGists(ctx context.Context, username string) ([]Gist, error) {
	var gists []Gist
	path := fmt.Sprintf("/users/%s/gists?per_page=100", url.PathEscape(username))
	if err := c.getJSON(ctx, "fetch gists", path, &gists); err != nil {
		return nil, err
	}
	c.logger.Debug("Fetched gists", zap.String("username", username), zap.Int("count", len(gists)))
	return gists, nil
}

// UploadFile commits content to owner/repo at path and returns the file's html URL.
func (c *Client) UploadFile(ctx context.Context, owner, repo, path, filename string, content []byte) (string, error) {
	body := map[string]string{
		"message": "Add " + filename,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	var out struct {
		Content struct {
			HTMLURL string `json:"html_url"`
		} `json:"content"`
	}
	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(owner), url.PathEscape(repo), escapePath(path))
	if err := c.sendJSON(ctx, "upload file", http.MethodPut, endpoint, body, &out); err != nil {
		return "", err
	}
	c.logger.Info("Uploaded file to GitHub",
		zap.String("repo", owner+"/"+repo),
		zap.String("path", path),
		zap.Int("bytes", len(content)))
	return out.Content.HTMLURL, nil
}

// CreateGist publishes files (name to content) as a new gist.
func (c *Client) CreateGist(ctx context.Context, description string, files map[string]string, public bool) (Gist, error) {
	payload := struct {
		Description string                       `json:"description"`
		Public      bool                         `json:"public"`
		Files       map[string]map[string]string `json:"files"`
	}{
		Description: description,
		Public:      public,
		Files:       make(map[string]map[string]string, len(files)),
	}
	for name, content := range files {
		payload.Files[name] = map[string]string{"content": content}
	}

	var gist Gist
	if err := c.sendJSON(ctx, "create gist", http.MethodPost, "/gists", payload, &gist); err != nil {
		return Gist{}, err
	}
	return gist, nil
}

// GetFileContent returns the raw content of a file in owner/repo.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path string) (string, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(owner), url.PathEscape(repo), escapePath(path))
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github.v3.raw")

	resp, err := c.do(req, "fetch file")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", op, err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", op, err)
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", op, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends req and turns non-2xx responses into a StatusError.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func escapePath(path string) string {
	parts := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
