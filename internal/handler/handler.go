package handler

import (
	"github.com/go-telegram/bot"

	"github.com/set-night/histamine-helper/internal/config"
	"github.com/set-night/histamine-helper/internal/repository"
	"github.com/set-night/histamine-helper/internal/service"
	"github.com/set-night/histamine-helper/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot                 *bot.Bot
	cfg                 *config.Config
	userService         *service.UserService
	historyService      *service.HistoryService
	subscriptionService *service.SubscriptionService
	registry            *service.SessionRegistry
	queries             *repository.Queries
	tgLogger            *telegram.TelegramLogger
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot                 *bot.Bot
	Cfg                 *config.Config
	UserService         *service.UserService
	HistoryService      *service.HistoryService
	SubscriptionService *service.SubscriptionService
	Registry            *service.SessionRegistry
	Queries             *repository.Queries
	TgLogger            *telegram.TelegramLogger
}

func New(deps Deps) *Handler {
	return &Handler{
		bot:                 deps.Bot,
		cfg:                 deps.Cfg,
		userService:         deps.UserService,
		historyService:      deps.HistoryService,
		subscriptionService: deps.SubscriptionService,
		registry:            deps.Registry,
		queries:             deps.Queries,
		tgLogger:            deps.TgLogger,
	}
}
