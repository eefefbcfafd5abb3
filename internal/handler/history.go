package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/set-night/histamine-helper/internal/config"
	"github.com/set-night/histamine-helper/internal/domain"
	"github.com/set-night/histamine-helper/internal/middleware"
	tg "github.com/set-night/histamine-helper/internal/telegram"
)

const (
	callbackChatOpen    = "chat_open_"
	callbackChatDelete  = "chat_delete_"
	callbackHistoryPage = "history_page_"
)

func (h *Handler) handleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	h.sendHistoryPage(ctx, b, update.Message.Chat.ID, user, 0, 0)
}

// sendHistoryPage edits messageID when it is set, otherwise sends a new message.
func (h *Handler) sendHistoryPage(ctx context.Context, b *bot.Bot, chatID int64, user *domain.User, page int, messageID int) {
	total, err := h.historyService.Count(ctx, user.ID)
	if err != nil {
		slog.Error("count chats", "error", err, "user_id", user.ID)
		return
	}

	totalPages := tg.TotalPages(total, config.HistoryPerPage)
	if page >= totalPages {
		page = totalPages - 1
	}
	if page < 0 {
		page = 0
	}

	chats, err := h.historyService.List(ctx, user.ID, config.HistoryPerPage, page*config.HistoryPerPage)
	if err != nil {
		slog.Error("list chats", "error", err, "user_id", user.ID)
		return
	}

	text := fmt.Sprintf("📂 *Chat history* (%d)", total)
	if total == 0 {
		text = "📂 *Chat history*\n\nNo saved chats yet. Send a photo of a food item to start one."
	}

	var rows [][]models.InlineKeyboardButton
	for _, c := range chats {
		title := c.Title
		if title == "" {
			title = config.DefaultChatTitle
		}
		label := fmt.Sprintf("%s · %s", title, c.Date.In(h.cfg.Location()).Format("02 Jan 15:04"))
		rows = append(rows, tg.ButtonRow(
			tg.InlineButton(label, callbackChatOpen+c.ID.String()),
			tg.InlineButton("🗑", callbackChatDelete+c.ID.String()),
		))
	}
	if totalPages > 1 {
		rows = append(rows, tg.PaginationRow(page, totalPages, callbackHistoryPage))
	}

	keyboard := tg.InlineKeyboard(rows...)
	if messageID != 0 {
		tg.EditOrSend(ctx, b, chatID, messageID, text, keyboard)
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: keyboard,
	})
}

func (h *Handler) handleHistoryPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	page, err := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, callbackHistoryPage))
	if err != nil {
		return
	}

	chatID, messageID := callbackTarget(update.CallbackQuery)
	h.sendHistoryPage(ctx, b, chatID, user, page, messageID)
}

// handleChatOpen makes a saved chat the active one and shows where it left off.
func (h *Handler) handleChatOpen(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	id, err := uuid.Parse(strings.TrimPrefix(update.CallbackQuery.Data, callbackChatOpen))
	if err != nil {
		return
	}
	chatID, _ := callbackTarget(update.CallbackQuery)

	chat, err := h.historyService.Get(ctx, user.ID, id)
	if err != nil {
		text := "❌ Could not open the chat."
		if errors.Is(err, domain.ErrChatNotFound) {
			text = "❌ This chat no longer exists."
		} else {
			slog.Error("open chat", "error", err, "chat_id", id)
		}
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
		return
	}

	session := h.registry.Resume(chatID, *chat, h.quotaSeed(ctx, user))
	h.observe(b, chatID, user, session)

	title := chat.Title
	if title == "" {
		title = config.DefaultChatTitle
	}
	if img := chat.FirstImage(); img != nil {
		if err := tg.SendPhotoBytes(ctx, b, chatID, img, title); err != nil {
			slog.Warn("send chat photo", "error", err, "chat_id", id)
		}
	} else {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "💬 " + title})
	}

	if reply := chat.LastAssistantText(); reply != "" {
		if err := tg.SendLongMessage(ctx, b, chatID, reply, nil); err != nil {
			slog.Error("send last reply", "error", err, "chat_id", id)
		}
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "↩️ Chat reopened. Ask a follow-up question.",
	})
}

func (h *Handler) handleChatDelete(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})
		return
	}

	id, err := uuid.Parse(strings.TrimPrefix(update.CallbackQuery.Data, callbackChatDelete))
	if err != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})
		return
	}
	chatID, messageID := callbackTarget(update.CallbackQuery)

	answer := "🗑 Chat deleted"
	if err := h.historyService.Delete(ctx, user.ID, id); err != nil {
		answer = "❌ Could not delete the chat"
		if !errors.Is(err, domain.ErrChatNotFound) {
			slog.Error("delete chat", "error", err, "chat_id", id)
		}
	} else if s, ok := h.registry.Get(chatID); ok && s.ID() == id {
		h.registry.End(chatID)
	}

	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            answer,
	})
	h.sendHistoryPage(ctx, b, chatID, user, 0, messageID)
}
