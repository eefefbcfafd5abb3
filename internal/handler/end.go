package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/histamine-helper/internal/middleware"
)

// handleNew closes the active chat. It stays in /history.
func (h *Handler) handleNew(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	if middleware.GetUser(ctx) == nil {
		return
	}

	chatID := update.Message.Chat.ID
	text := "🔄 Started a new chat. Send a photo of a food item or ask a question."
	if _, ok := h.registry.End(chatID); !ok {
		text = "Send a photo of a food item or ask a question to start a chat."
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}
