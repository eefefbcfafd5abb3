package handler

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/new", bot.MatchTypePrefix, h.handleNew)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/history", bot.MatchTypePrefix, h.handleHistory)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/premium", bot.MatchTypePrefix, h.handlePremium)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/restore", bot.MatchTypePrefix, h.handleRestore)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stat", bot.MatchTypePrefix, h.handleStat)

	// History callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackChatOpen, bot.MatchTypePrefix, h.handleChatOpen)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackChatDelete, bot.MatchTypePrefix, h.handleChatDelete)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackHistoryPage, bot.MatchTypePrefix, h.handleHistoryPage)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cur", bot.MatchTypeExact, h.handleNoop)

	// Subscription callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackSubscribe, bot.MatchTypePrefix, h.handleSubscribe)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackTrial, bot.MatchTypePrefix, h.handleTrial)

	// Free text continues the active chat
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || strings.HasPrefix(update.Message.Text, "/") {
			return
		}
		h.HandleText(ctx, b, update)
	})

	// Photos, image documents and payments arrive through HandleDefault.
}

// HandleDefault routes updates that no registered handler matches.
func (h *Handler) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	switch {
	case update.PreCheckoutQuery != nil:
		h.HandlePreCheckout(ctx, b, update)
	case update.Message == nil:
		return
	case update.Message.SuccessfulPayment != nil:
		h.HandleSuccessfulPayment(ctx, b, update)
	case len(update.Message.Photo) > 0 || update.Message.Document != nil:
		h.HandlePhoto(ctx, b, update)
	}
}

// handleNoop acknowledges callbacks of non-interactive buttons such as page indicators.
func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
	}
}

// callbackTarget returns the chat and message a callback button belongs to.
func callbackTarget(q *models.CallbackQuery) (int64, int) {
	if msg := q.Message.Message; msg != nil {
		return msg.Chat.ID, msg.ID
	}
	return q.From.ID, 0
}
