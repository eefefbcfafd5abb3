package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/set-night/histamine-helper/internal/config"
)

// TelegramLogger mirrors operational events into forum topics of a log chat.
type TelegramLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

// NewTelegramLogger returns a logger that stays silent until Attach is called.
func NewTelegramLogger(cfg *config.Config) *TelegramLogger {
	return &TelegramLogger{cfg: cfg}
}

// Attach sets the bot used to deliver logs. Call it before the bot starts.
func (l *TelegramLogger) Attach(b *bot.Bot) {
	l.bot = b
}

type LogType string

const (
	LogTypeError        LogType = "error"
	LogTypeRegistration LogType = "registration"
	LogTypeSubscription LogType = "subscription"
)

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l == nil || l.bot == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.topicID(logType)
	if topicID == 0 {
		return
	}

	if len([]rune(message)) > config.MaxTelegramMessageLen {
		message = string([]rune(message)[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *TelegramLogger) LogError(err error, where string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		where, err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

func (l *TelegramLogger) LogRegistration(telegramID int64, name, username string) {
	msg := fmt.Sprintf("👤 *New Registration*\n\n*ID:* `%d`\n*Name:* %s", telegramID, name)
	if username != "" {
		msg += fmt.Sprintf("\n*Username:* @%s", username)
	}
	l.Log(LogTypeRegistration, msg)
}

func (l *TelegramLogger) LogSubscription(telegramID int64, plan string, stars int, until time.Time) {
	msg := fmt.Sprintf("⭐ *Subscription*\n\n*User:* `%d`\n*Plan:* %s\n*Stars:* %d\n*Until:* %s",
		telegramID, plan, stars, until.Format("2006-01-02 15:04"))
	l.Log(LogTypeSubscription, msg)
}

func (l *TelegramLogger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeRegistration:
		return l.cfg.LogTopicRegistration
	case LogTypeSubscription:
		return l.cfg.LogTopicSubscription
	default:
		return 0
	}
}
