package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/histamine-helper/internal/domain"
	"github.com/set-night/histamine-helper/internal/middleware"
	"github.com/set-night/histamine-helper/internal/service"
	tg "github.com/set-night/histamine-helper/internal/telegram"
)

const (
	callbackSubscribe = "sub_"
	callbackTrial     = "trial_"

	// invoicePrefix marks invoice payloads; the plan id follows it.
	invoicePrefix = "sub_"
)

func (h *Handler) handlePremium(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	text, keyboard := h.premiumScreen(user)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: keyboard,
	})
}

func (h *Handler) premiumScreen(user *domain.User) (string, *models.InlineKeyboardMarkup) {
	status := "Free"
	if user.IsSubscribed() {
		status = fmt.Sprintf("Active until %s", user.SubscribedUntil.In(h.cfg.Location()).Format("02 Jan 2006"))
	}

	text := fmt.Sprintf(
		"⭐ *Premium*\n\n"+
			"Status: *%s*\n\n"+
			"*Benefits:*\n"+
			"• Questions per day: %d → %d\n"+
			"• Unlimited food scans within the daily limit\n",
		status,
		h.cfg.DailyLimitFree,
		h.cfg.DailyLimitSubscribed,
	)

	var rows [][]models.InlineKeyboardButton
	for _, p := range service.GetPlans() {
		rows = append(rows, tg.ButtonRow(
			tg.InlineButton(
				fmt.Sprintf("%s: $%s/%s (%d ⭐)", p.Name, p.Price.StringFixed(2), p.Period, service.StarsPrice(p.Price)),
				callbackSubscribe+p.ID,
			),
		))
		if p.HasTrial && !user.TrialUsed {
			rows = append(rows, tg.ButtonRow(
				tg.InlineButton("🎁 Start free trial", callbackTrial+p.ID),
			))
		}
	}
	return text, tg.InlineKeyboard(rows...)
}

func (h *Handler) handleSubscribe(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	chatID, _ := callbackTarget(update.CallbackQuery)

	plan, err := service.FindPlan(strings.TrimPrefix(update.CallbackQuery.Data, callbackSubscribe))
	if err != nil {
		return
	}

	if !h.cfg.StarsEnabled {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Purchases are temporarily unavailable.",
		})
		return
	}

	stars := service.StarsPrice(plan.Price)
	_, err = b.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:      chatID,
		Title:       plan.Name,
		Description: fmt.Sprintf("Histamine Helper Premium, $%s per %s", plan.Price.StringFixed(2), plan.Period),
		Payload:     invoicePrefix + plan.ID,
		Currency:    "XTR",
		Prices: []models.LabeledPrice{
			{Label: plan.Name, Amount: stars},
		},
	})
	if err != nil {
		slog.Error("send invoice", "error", err, "plan", plan.ID)
		h.tgLogger.LogError(err, "send invoice")
	}
}

func (h *Handler) handleTrial(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID, _ := callbackTarget(update.CallbackQuery)

	plan, err := service.FindPlan(strings.TrimPrefix(update.CallbackQuery.Data, callbackTrial))
	if err != nil {
		return
	}

	until, err := h.subscriptionService.StartTrial(ctx, user.ID, plan)
	if err != nil {
		text := "❌ Could not start the trial."
		if errors.Is(err, domain.ErrTrialUnavailable) {
			text = "The free trial has already been used."
		} else {
			slog.Error("start trial", "error", err, "user_id", user.ID)
		}
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
		return
	}

	user.SubscribedUntil = &until
	user.TrialUsed = true
	h.applyDailyLimit(chatID, user)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      fmt.Sprintf("🎁 Trial active until *%s*. Enjoy!", until.In(h.cfg.Location()).Format("02 Jan 2006")),
		ParseMode: models.ParseModeMarkdownV1,
	})
}

// handleRestore re-reads the subscription from the database and applies it.
func (h *Handler) handleRestore(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	loaded := middleware.GetUser(ctx)
	if loaded == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, err := h.userService.GetByID(ctx, loaded.ID)
	if err != nil {
		slog.Error("restore purchases", "error", err, "user_id", loaded.ID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Could not restore purchases."})
		return
	}
	h.applyDailyLimit(chatID, user)

	payments, err := h.queries.ListUserTransactions(ctx, user.ID)
	if err != nil {
		slog.Error("list transactions", "error", err, "user_id", user.ID)
	}

	text := "No active subscription found. See /premium."
	if user.IsSubscribed() {
		text = fmt.Sprintf("✅ Premium restored, active until *%s*.", user.SubscribedUntil.In(h.cfg.Location()).Format("02 Jan 2006"))
	}
	if len(payments) > 0 {
		text += fmt.Sprintf("\nPurchases on record: %d", len(payments))
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	})
}

// HandlePreCheckout accepts only invoices this bot issued at the current price.
func (h *Handler) HandlePreCheckout(ctx context.Context, b *bot.Bot, update *models.Update) {
	q := update.PreCheckoutQuery

	params := &bot.AnswerPreCheckoutQueryParams{PreCheckoutQueryID: q.ID, OK: true}
	plan, err := planFromPayload(q.InvoicePayload)
	switch {
	case err != nil:
		params.OK = false
		params.ErrorMessage = "Unknown product."
	case q.Currency != "XTR" || q.TotalAmount != service.StarsPrice(plan.Price):
		params.OK = false
		params.ErrorMessage = "The price has changed. Please open /premium again."
	}

	if !params.OK {
		slog.Warn("pre-checkout rejected", "payload", q.InvoicePayload, "amount", q.TotalAmount)
	}
	if _, err := b.AnswerPreCheckoutQuery(ctx, params); err != nil {
		slog.Error("answer pre-checkout", "error", err)
	}
}

// HandleSuccessfulPayment records the payment and extends the subscription.
func (h *Handler) HandleSuccessfulPayment(ctx context.Context, b *bot.Bot, update *models.Update) {
	payment := update.Message.SuccessfulPayment
	chatID := update.Message.Chat.ID

	user := middleware.GetUser(ctx)
	if user == nil {
		slog.Error("payment from unknown user", "chat_id", chatID, "charge_id", payment.TelegramPaymentChargeID)
		return
	}

	plan, err := planFromPayload(payment.InvoicePayload)
	if err != nil {
		slog.Error("parse payment payload", "error", err, "payload", payment.InvoicePayload)
		return
	}

	until, err := h.subscriptionService.Activate(ctx, user.ID, plan, payment.TelegramPaymentChargeID, payment.TotalAmount)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentAlreadyTaken) {
			slog.Warn("duplicate payment", "charge_id", payment.TelegramPaymentChargeID)
			return
		}
		slog.Error("activate subscription", "error", err, "user_id", user.ID)
		h.tgLogger.LogError(err, "activate subscription")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Payment received but activation failed. Use /restore or contact support.",
		})
		return
	}

	user.SubscribedUntil = &until
	h.applyDailyLimit(chatID, user)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      fmt.Sprintf("✅ *%s* active until *%s*. Thank you!", plan.Name, until.In(h.cfg.Location()).Format("02 Jan 2006")),
		ParseMode: models.ParseModeMarkdownV1,
	})

	h.tgLogger.LogSubscription(user.TelegramID, plan.Name, payment.TotalAmount, until)
}

// applyDailyLimit updates the active chat so a purchase takes effect immediately.
func (h *Handler) applyDailyLimit(chatID int64, user *domain.User) {
	if s, ok := h.registry.Get(chatID); ok {
		s.SetDailyLimit(h.subscriptionService.DailyLimit(user))
	}
}

func planFromPayload(payload string) (domain.Plan, error) {
	id, ok := strings.CutPrefix(payload, invoicePrefix)
	if !ok {
		return domain.Plan{}, domain.ErrPlanNotFound
	}
	return service.FindPlan(id)
}
