package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/histamine-helper/internal/repository"
)

// RateLimit drops messages beyond limit per chat per minute.
// Payment service messages are never limited.
func RateLimit(queries *repository.Queries, limit int) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.SuccessfulPayment != nil {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID

			count, err := queries.CheckAndIncrementRateLimit(ctx, chatID)
			if err != nil {
				slog.Error("rate limit check failed", "error", err, "chat_id", chatID)
				next(ctx, b, update)
				return
			}

			if int(count) > limit {
				slog.Debug("rate limited", "chat_id", chatID, "count", count, "limit", limit)
				// warn once per window
				if int(count) == limit+1 {
					b.SendMessage(ctx, &bot.SendMessageParams{
						ChatID: chatID,
						Text:   "⏳ Too many messages. Please wait a minute.",
					})
				}
				return
			}

			next(ctx, b, update)
		}
	}
}
