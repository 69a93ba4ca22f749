package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/models"
)

const previewLength = 1000

const systemPrompt = `You are a content tagger. Analyze the content and return JSON with:
- tags: array of 3-5 relevant tags (lowercase, hyphenated)
- description: one sentence summary
- suggestedFolder: one of [projects, snippets, documents, media, resources]

Respond ONLY with valid JSON.`

// Folders are the suggestions a remote answer may carry.
var Folders = []string{"projects", "snippets", "documents", "media", "resources"}

var ErrMalformedResponse = errors.New("malformed classifier response")

type GPTResponse struct {
	Tags            []string `json:"tags"`
	Description     string   `json:"description"`
	SuggestedFolder string   `json:"suggestedFolder"`
}

// FallbackSink receives every failure that made the remote path fall back to local rules.
type FallbackSink interface {
	ReportFallback(in Input, err error)
}

type logSink struct {
	logger *zap.Logger
}

func (s logSink) ReportFallback(in Input, err error) {
	s.logger.Warn("AI tagging failed, using local rules",
		zap.Error(err),
		zap.String("filename", in.Filename),
		zap.String("type", string(in.Type)))
}

// LogSink reports fallbacks as zap warnings.
func LogSink(logger *zap.Logger) FallbackSink {
	return logSink{logger: logger}
}

type Options struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	MaxTags     int
}

// GPTClassifier asks an OpenAI compatible chat completion endpoint for tags.
type GPTClassifier struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	maxTags     int
	local       *LocalTagger
	sink        FallbackSink
	logger      *zap.Logger
}

func NewGPTClassifier(apiKey string, opts Options, sink FallbackSink, logger *zap.Logger) *GPTClassifier {
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 200
	}
	if opts.MaxTags <= 0 {
		opts.MaxTags = DefaultMaxTags
	}
	if sink == nil {
		sink = LogSink(logger)
	}
	return &GPTClassifier{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		maxTags:     opts.MaxTags,
		local:       NewLocalTagger(opts.MaxTags),
		sink:        sink,
		logger:      logger,
	}
}

// GenerateTags never fails: any remote problem is reported to the sink and answered locally.
func (c *GPTClassifier) GenerateTags(ctx context.Context, in Input) models.TagResult {
	result, err := c.classifyRemote(ctx, in)
	if err != nil {
		c.sink.ReportFallback(in, err)
		return c.local.GenerateTags(ctx, in)
	}
	return result
}

func (c *GPTClassifier) classifyRemote(ctx context.Context, in Input) (models.TagResult, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: fmt.Sprintf("File: %s\nType: %s\nContent preview:\n%s", in.Filename, in.Type, preview(in.Content)),
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return models.TagResult{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.TagResult{}, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	parsed, err := parseResponse(raw)
	if err != nil {
		c.logger.Debug("Rejected classifier response", zap.String("response", raw))
		return models.TagResult{}, err
	}

	tags := make([]models.Tag, 0, len(parsed.Tags))
	for _, name := range parsed.Tags {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tags = append(tags, models.Tag{
			ID:          models.NewItemID("tag"),
			Name:        name,
			Color:       ColorFor(name),
			AIGenerated: true,
		})
	}
	if len(tags) > c.maxTags {
		tags = tags[:c.maxTags]
	}

	return models.TagResult{
		Tags:            tags,
		Description:     parsed.Description,
		SuggestedFolder: parsed.SuggestedFolder,
	}, nil
}

func parseResponse(raw string) (GPTResponse, error) {
	var parsed GPTResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return parsed, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Tags) == 0 {
		return parsed, fmt.Errorf("%w: no tags", ErrMalformedResponse)
	}
	if !validFolder(parsed.SuggestedFolder) {
		return parsed, fmt.Errorf("%w: unknown folder %q", ErrMalformedResponse, parsed.SuggestedFolder)
	}
	return parsed, nil
}

func validFolder(folder string) bool {
	for _, f := range Folders {
		if f == folder {
			return true
		}
	}
	return false
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) > previewLength {
		return string(runes[:previewLength])
	}
	return content
}

// Service picks the remote classifier when an API key is supplied and the local rules otherwise.
type Service struct {
	opts   Options
	sink   FallbackSink
	logger *zap.Logger
	local  *LocalTagger

	mu      sync.Mutex
	remotes map[string]*GPTClassifier
}

func NewService(opts Options, sink FallbackSink, logger *zap.Logger) *Service {
	if sink == nil {
		sink = LogSink(logger)
	}
	return &Service{
		opts:    opts,
		sink:    sink,
		logger:  logger,
		local:   NewLocalTagger(opts.MaxTags),
		remotes: make(map[string]*GPTClassifier),
	}
}

// Generate never touches the network when apiKey is empty.
func (s *Service) Generate(ctx context.Context, in Input, apiKey string) models.TagResult {
	if apiKey == "" {
		return s.local.GenerateTags(ctx, in)
	}
	return s.remote(apiKey).GenerateTags(ctx, in)
}

func (s *Service) remote(apiKey string) *GPTClassifier {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.remotes[apiKey]; ok {
		return c
	}
	c := NewGPTClassifier(apiKey, s.opts, s.sink, s.logger)
	s.remotes[apiKey] = c
	return c
}
