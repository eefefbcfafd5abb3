package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/histamine-helper/internal/domain"
	"github.com/set-night/histamine-helper/internal/service"
	"github.com/set-night/histamine-helper/internal/telegram"
)

type ctxKey string

const UserKey ctxKey = "user"

// GetUser extracts user from context.
func GetUser(ctx context.Context) *domain.User {
	u, ok := ctx.Value(UserKey).(*domain.User)
	if !ok {
		return nil
	}
	return u
}

// WithUser is used by handlers that reload the user after a change.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, UserKey, u)
}

// UserLoader returns middleware that loads the sender into context, registering new users.
func UserLoader(userService *service.UserService, tgLogger *telegram.TelegramLogger, cfg interface{ IsAdmin(int64) bool }) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			var from *models.User

			switch {
			case update.Message != nil:
				from = update.Message.From
			case update.CallbackQuery != nil:
				from = &update.CallbackQuery.From
			case update.PreCheckoutQuery != nil:
				from = update.PreCheckoutQuery.From
			}

			if from == nil {
				next(ctx, b, update)
				return
			}

			user, created, err := userService.FindOrCreate(ctx, from.ID, from.FirstName, from.Username, cfg.IsAdmin(from.ID))
			if err != nil {
				slog.Error("load user", "error", err, "telegram_id", from.ID)
			} else {
				ctx = WithUser(ctx, user)
				if created {
					tgLogger.LogRegistration(from.ID, from.FirstName, from.Username)
				}
			}

			next(ctx, b, update)
		}
	}
}
