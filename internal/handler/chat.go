package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/histamine-helper/internal/config"
	"github.com/set-night/histamine-helper/internal/domain"
	"github.com/set-night/histamine-helper/internal/middleware"
	"github.com/set-night/histamine-helper/internal/service"
	tg "github.com/set-night/histamine-helper/internal/telegram"
)

const (
	relayTimeout = 30 * time.Second
	titleTimeout = config.ProxyTimeout + 5*time.Second
)

// HandlePhoto starts a new chat about the photo. The caption, if any, replaces the default question.
func (h *Handler) HandlePhoto(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg.Chat.Type != "private" {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := msg.Chat.ID

	fileID, ok := tg.ImageFileID(msg)
	if !ok {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "📎 Please send a photo or an image file (JPEG, PNG, GIF or WebP).",
		})
		return
	}

	image, err := tg.DownloadFile(ctx, b, fileID)
	if err != nil {
		slog.Error("download photo", "error", err, "chat_id", chatID)
		h.tgLogger.LogError(err, "download photo")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Could not download the photo. Please try again.",
		})
		return
	}
	if err := service.CheckImage(image); err != nil {
		slog.Warn("rejected photo", "error", err, "chat_id", chatID)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ This image is too large or in an unsupported format. Please send a regular photo.",
		})
		return
	}

	prompt := strings.TrimSpace(msg.Caption)
	if prompt == "" {
		prompt = config.DefaultPhotoPrompt
	}

	session, err := h.startSession(ctx, b, chatID, user)
	if err != nil {
		slog.Error("start session", "error", err, "chat_id", chatID)
		return
	}
	h.send(ctx, b, chatID, session, prompt, image)
}

// HandleText continues the active chat, starting one if there is none.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg.Chat.Type != "private" {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := msg.Chat.ID

	session, ok := h.registry.Get(chatID)
	if !ok {
		var err error
		session, err = h.startSession(ctx, b, chatID, user)
		if err != nil {
			slog.Error("start session", "error", err, "chat_id", chatID)
			return
		}
	}
	h.send(ctx, b, chatID, session, msg.Text, nil)
}

func (h *Handler) send(ctx context.Context, b *bot.Bot, chatID int64, session *service.ChatSession, text string, image []byte) {
	// The reply arrives after this update has been handled.
	err := session.Send(context.WithoutCancel(ctx), text, image)
	if errors.Is(err, domain.ErrEmptyMessage) {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "✏️ Send a question or a photo of a food item.",
		})
		return
	}
	if err != nil {
		slog.Error("send chat message", "error", err, "chat_id", chatID)
	}
}

// quotaSeed is the quota a new session starts from when the chat has no active one.
func (h *Handler) quotaSeed(ctx context.Context, user *domain.User) domain.Quota {
	seed, err := h.historyService.LatestQuota(ctx, user.ID)
	if err != nil {
		slog.Error("load latest quota", "error", err, "user_id", user.ID)
	}
	seed.DailyLimit = h.subscriptionService.DailyLimit(user)
	if seed.SentToday < seed.DailyLimit {
		seed.LimitReached = false
	}
	return seed
}

func (h *Handler) startSession(ctx context.Context, b *bot.Bot, chatID int64, user *domain.User) (*service.ChatSession, error) {
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	session := h.registry.Start(chatID, h.quotaSeed(ctx, user))
	h.observe(b, chatID, user, session)
	return session, nil
}

func (h *Handler) observe(b *bot.Bot, chatID int64, user *domain.User, session *service.ChatSession) {
	session.Subscribe(h.historyService.Recorder(user.ID))
	session.Subscribe(h.relay(b, chatID, session))
}

// relay mirrors session events into the Telegram chat. Observers of one session
// never run concurrently, so the closure state needs no lock.
func (h *Handler) relay(b *bot.Bot, chatID int64, session *service.ChatSession) service.Observer {
	var stopTyping context.CancelFunc
	titleRequested := session.Title() != ""

	return func(e service.Event) {
		switch e.Kind {
		case service.EventSendingChanged:
			if e.Chat.Sending && stopTyping == nil {
				stopTyping = tg.StartTyping(context.Background(), b, chatID)
			} else if !e.Chat.Sending && stopTyping != nil {
				stopTyping()
				stopTyping = nil
			}

		case service.EventMessageAppended:
			if e.Message.Role != domain.RoleAssistant {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
			defer cancel()
			if err := tg.SendLongMessage(ctx, b, chatID, e.Message.Text, nil); err != nil {
				slog.Error("relay assistant message", "error", err, "chat_id", chatID)
			}

			if !titleRequested && isAnswer(e.Message.Text) {
				titleRequested = true
				go h.generateTitle(session)
			}

		case service.EventTitleChanged:
			slog.Info("chat titled", "session_id", e.Chat.ID, "title", e.Chat.Title)
		}
	}
}

func (h *Handler) generateTitle(session *service.ChatSession) {
	ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
	defer cancel()
	if _, err := session.GenerateTitle(ctx); err != nil {
		slog.Warn("generate title", "error", err, "session_id", session.ID())
	}
}

// isAnswer excludes the replies that do not come from the model.
func isAnswer(text string) bool {
	switch {
	case text == config.QuotaExceededText, text == config.UnknownFormatText:
		return false
	case strings.HasPrefix(text, "Error: "):
		return false
	}
	return true
}
