package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/histamine-helper/internal/telegram"
)

// Recover stops a handler panic from killing the polling loop. The panic is logged
// with its stack and the update and chat ids, and mirrored to the error topic of
// the log chat.
func Recover(tgLogger *telegram.TelegramLogger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					chatID := updateChatID(update)
					slog.Error("panic recovered in handler",
						"panic", r,
						"update_id", update.ID,
						"chat_id", chatID,
						"stack", string(debug.Stack()),
					)
					tgLogger.LogError(fmt.Errorf("panic: %v", r), fmt.Sprintf("update %d, chat %d", update.ID, chatID))
				}
			}()
			next(ctx, b, update)
		}
	}
}

func updateChatID(update *models.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.ID
	case update.PreCheckoutQuery != nil && update.PreCheckoutQuery.From != nil:
		return update.PreCheckoutQuery.From.ID
	}
	return 0
}
