package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/ingest"
	"github.com/xaenox/knowledge-hub/internal/models"
	"github.com/xaenox/knowledge-hub/internal/routing"
	"github.com/xaenox/knowledge-hub/internal/store"
)

const (
	recentLimit     = 5
	maxDownloadSize = 20 << 20 // Bot API download ceiling
)

// Syncer is satisfied by github.Syncer.
type Syncer interface {
	Sync(ctx context.Context, username string) (store.MergeResult, error)
}

type Bot struct {
	api        *tgbotapi.BotAPI
	store      *store.Store
	ingest     *ingest.Service
	syncer     Syncer
	httpClient *http.Client
	// allowed restricts who may write to the hub. Empty allows everyone.
	allowed map[int64]bool
	logger  *zap.Logger
}

func New(token string, st *store.Store, svc *ingest.Service, syncer Syncer, allowedUsers []int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	allowed := make(map[int64]bool, len(allowedUsers))
	for _, id := range allowedUsers {
		allowed[id] = true
	}

	return &Bot{
		api:        api,
		store:      st,
		ingest:     svc,
		syncer:     syncer,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		allowed:    allowed,
		logger:     logger,
	}, nil
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Telegram bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From != nil && len(b.allowed) > 0 && !b.allowed[message.From.ID] {
		b.logger.Warn("Ignoring message from unknown user", zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "Sorry, this hub is private.")
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	switch {
	case message.Document != nil:
		doc := message.Document
		b.handleFile(ctx, message, doc.FileID, doc.FileName, doc.MimeType, int64(doc.FileSize))
	case len(message.Photo) > 0:
		photo := message.Photo[len(message.Photo)-1]
		name := fmt.Sprintf("photo-%d.jpg", message.MessageID)
		b.handleFile(ctx, message, photo.FileID, name, "image/jpeg", int64(photo.FileSize))
	default:
		b.handleText(ctx, message)
	}
}

func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	if link, ok := extractURL(content); ok {
		item, err := b.ingest.CaptureWebsite(ctx, link)
		if err != nil {
			b.logger.Error("Failed to capture website",
				zap.Error(err),
				zap.String("url", link),
				zap.Int64("chat_id", message.Chat.ID))
			b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't capture that website.")
			return
		}
		b.sendItemResponse(message.Chat.ID, message.MessageID, item)
		return
	}

	item := b.ingest.NewDocument(ctx, "", content)
	b.sendItemResponse(message.Chat.ID, message.MessageID, item)
}

func (b *Bot) handleFile(ctx context.Context, message *tgbotapi.Message, fileID, filename, mimeType string, size int64) {
	if size > maxDownloadSize {
		b.sendErrorMessage(message.Chat.ID, fmt.Sprintf("%s is %s, Telegram only lets me fetch files up to %s.",
			filename, routing.FormatFileSize(size), routing.FormatFileSize(maxDownloadSize)))
		return
	}

	data, err := b.download(ctx, fileID)
	if err != nil {
		b.logger.Error("Failed to download file",
			zap.Error(err),
			zap.String("filename", filename),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't download your file. Please try again.")
		return
	}

	res, err := b.ingest.Upload(ctx, ingest.UploadRequest{Filename: filename, MediaType: mimeType, Data: data})
	if err != nil {
		b.logger.Error("Failed to ingest file", zap.Error(err), zap.String("filename", filename))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't save your file. Please try again.")
		return
	}
	b.sendItemResponse(message.Chat.ID, message.MessageID, res.Item)
	if res.Warning != "" {
		b.sendMessage(message.Chat.ID, "Note: "+res.Warning)
	}
}

func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	link, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.sendMessage(message.Chat.ID, welcomeText)
	case "help":
		b.sendMessage(message.Chat.ID, helpText)
	case "tags":
		b.sendMarkdown(message.Chat.ID, formatTags(b.store.AllTags()))
	case "recent":
		b.sendMarkdown(message.Chat.ID, formatRecent(b.store.Recent(recentLimit)))
	case "folders":
		b.sendMarkdown(message.Chat.ID, formatFolders(b.store.Folders(), b.store.FolderCounts()))
	case "sync":
		b.handleSync(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleSync(ctx context.Context, message *tgbotapi.Message) {
	if b.syncer == nil {
		b.sendMessage(message.Chat.ID, "GitHub sync is not configured.")
		return
	}
	result, err := b.syncer.Sync(ctx, strings.TrimSpace(message.CommandArguments()))
	if err != nil {
		b.logger.Error("Failed to sync from bot", zap.Error(err), zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sync failed: "+err.Error())
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Synced GitHub: %d added, %d updated, %d removed.",
		result.Added, result.Updated, result.Removed))
}

const welcomeText = `Welcome to your Knowledge Hub! 📚
Send me links, notes, photos or documents and I'll file them with tags.

Use /help to see all available commands.`

const helpText = `Available commands:
/start - Start the bot
/help - Show this help message
/tags - Show all tags
/recent - Show the latest items
/folders - Show smart folders
/sync [username] - Pull repos and gists from GitHub

You can send:
- Links (captured as websites)
- Text notes
- Photos and documents

Everything is classified and tagged automatically.`

// extractURL returns the message as a URL when it is a single link.
func extractURL(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) != 1 {
		return "", false
	}
	candidate := fields[0]
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		return "", false
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" || (!strings.Contains(u.Host, ".") && u.Hostname() != "localhost") {
		return "", false
	}
	return candidate, true
}

func formatTags(tags []models.Tag) string {
	if len(tags) == 0 {
		return escapeMarkdown("There are no tags yet.")
	}
	response := "*Tags:*\n"
	for _, tag := range tags {
		response += escapeMarkdown(hashtag(tag.Name)) + "\n"
	}
	return response
}

func formatRecent(items []models.ContentItem) string {
	if len(items) == 0 {
		return escapeMarkdown("There are no items yet.")
	}
	response := "*Recent items:*\n\n"
	for _, item := range items {
		response += formatItem(item) + "\n"
	}
	return response
}

func formatFolders(folders []models.SmartFolder, counts map[string]int) string {
	response := "*Folders:*\n"
	for _, f := range folders {
		response += escapeMarkdown(fmt.Sprintf("%s %s (%d)", f.Icon, f.Name, counts[f.ID])) + "\n"
	}
	return response
}

func formatItem(item models.ContentItem) string {
	text := fmt.Sprintf("*%s* _%s_\n", escapeMarkdown(item.Title), escapeMarkdown(string(item.Type)))
	if item.Description != "" {
		text += escapeMarkdown(item.Description) + "\n"
	}
	if len(item.Tags) > 0 {
		tags := make([]string, len(item.Tags))
		for i, tag := range item.Tags {
			tags[i] = escapeMarkdown(hashtag(tag.Name))
		}
		text += fmt.Sprintf("Tags: %s\n", strings.Join(tags, " "))
	}
	if item.URL != "" {
		text += escapeMarkdown(item.URL) + "\n"
	}
	return text
}

func hashtag(name string) string {
	return "#" + strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

// escapeMarkdown escapes the MarkdownV2 special characters.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendItemResponse(chatID int64, replyToID int, item models.ContentItem) {
	text := "Saved ✅\n\n" + formatItem(item)
	if item.Folder != "" {
		text += fmt.Sprintf("Folder: %s\n", escapeMarkdown(item.Folder))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "MarkdownV2"
	msg.ReplyToMessageID = replyToID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send item response",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("item_id", item.ID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "MarkdownV2"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
