package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/set-night/histamine-helper/internal/middleware"
)

func (h *Handler) handleStat(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil || !user.IsAdmin {
		return
	}

	chatID := update.Message.Chat.ID

	totalUsers, _ := h.userService.Count(ctx)

	now := time.Now().In(h.cfg.Location())
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := todayStart.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	todayUsers, _ := h.queries.CountUsersCreatedAfter(ctx, pgtype.Timestamptz{Time: todayStart, Valid: true})
	weekUsers, _ := h.queries.CountUsersCreatedAfter(ctx, pgtype.Timestamptz{Time: weekStart, Valid: true})
	monthUsers, _ := h.queries.CountUsersCreatedAfter(ctx, pgtype.Timestamptz{Time: monthStart, Valid: true})
	subscribed, _ := h.queries.CountSubscribedUsers(ctx)
	payments, stars, _ := h.queries.SumTransactions(ctx)
	chats, _ := h.historyService.Count(ctx, user.ID)

	text := fmt.Sprintf(
		"📊 *Stats*\n\n"+
			"👥 *Users:*\n"+
			"Total: %d\n"+
			"Today: %d\n"+
			"This week: %d\n"+
			"This month: %d\n"+
			"Subscribed: %d\n\n"+
			"⭐ *Payments:* %d (%d stars)\n"+
			"💬 *Your saved chats:* %d",
		totalUsers,
		todayUsers,
		weekUsers,
		monthUsers,
		subscribed,
		payments,
		stars,
		chats,
	)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	})
}
