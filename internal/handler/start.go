package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/histamine-helper/internal/domain"
	"github.com/set-night/histamine-helper/internal/middleware"
)

var introSteps = []string{
	"📸 *Snap & Scan*: Take a photo of food labels (or the food itself!) for instant analysis.",
	"💬 *Ask Questions*: Get answers to any food sensitivity-related questions, or ask for tasty substitutions and recipes.",
	"🔬 *Get Detailed Info*: Our AI model is finetuned to give you the most accurate and up-to-date histamine sensitivity information.",
	"✅ *Make Better Choices*: Easily decide which foods are safe for you! Your chat history is saved to revisit later.",
}

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	var sb strings.Builder
	fmt.Fprintf(&sb, "👋 Hi, *%s*! I'm Histamine Helper.\n\n", user.FirstName)
	sb.WriteString(strings.Join(introSteps, "\n\n"))
	sb.WriteString("\n\n📋 *Commands:*\n" +
		"/new — Start a new chat\n" +
		"/history — Saved chats\n" +
		"/premium — More questions per day\n" +
		"/restore — Restore purchases\n\n")
	sb.WriteString(h.quotaStatus(ctx, chatID, user))

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      sb.String(),
		ParseMode: models.ParseModeMarkdownV1,
	})
}

// quotaStatus describes today's remaining questions.
func (h *Handler) quotaStatus(ctx context.Context, chatID int64, user *domain.User) string {
	quota := h.quotaSeed(ctx, user)
	if s, ok := h.registry.Get(chatID); ok {
		quota = s.Quota()
	}
	return formatQuota(quota, time.Now(), h.cfg.Location())
}

func formatQuota(q domain.Quota, now time.Time, loc *time.Location) string {
	sent := q.SentToday
	if !domain.SameDay(q.LastSendDate, now, loc) {
		sent = 0
	}
	left := max(q.DailyLimit-sent, 0)
	if left == 0 {
		return "⏳ You've used all questions for today. Come back tomorrow or try /premium."
	}
	return fmt.Sprintf("🔢 Questions left today: *%d* of %d", left, q.DailyLimit)
}
