package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	histaminehelper "github.com/set-night/histamine-helper"
	"github.com/set-night/histamine-helper/internal/config"
	"github.com/set-night/histamine-helper/internal/handler"
	"github.com/set-night/histamine-helper/internal/middleware"
	"github.com/set-night/histamine-helper/internal/repository"
	"github.com/set-night/histamine-helper/internal/service"
	"github.com/set-night/histamine-helper/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(histaminehelper.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	queries := repository.New(pool)

	// Initialize services
	userService := service.NewUserService(pool, queries)
	historyService := service.NewHistoryService(pool, queries)
	subscriptionService := service.NewSubscriptionService(pool, queries, cfg)
	proxy := service.NewProxyClient(cfg.ProxyURL, cfg.ProxySecretKey)
	registry := service.NewSessionRegistry(proxy,
		service.WithLocation(cfg.Location()),
		service.WithTitleModel(cfg.TitleModel),
	)

	// The logger gets its bot once created; the handler only runs after b.Start.
	tgLogger := telegram.NewTelegramLogger(cfg)
	var h *handler.Handler

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(tgLogger),
			middleware.Logging(),
			middleware.RateLimit(queries, cfg.RateLimitPerMinute),
			middleware.UserLoader(userService, tgLogger, cfg),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleDefault(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}

	tgLogger.Attach(b)

	h = handler.New(handler.Deps{
		Bot:                 b,
		Cfg:                 cfg,
		UserService:         userService,
		HistoryService:      historyService,
		SubscriptionService: subscriptionService,
		Registry:            registry,
		Queries:             queries,
		TgLogger:            tgLogger,
	})
	h.Register()

	// Start cleanup goroutine for rate limits and idle chat sessions
	go func() {
		ticker := time.NewTicker(config.RateLimitCleanup)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := queries.CleanupRateLimits(context.Background()); err != nil {
					slog.Error("cleanup rate limits", "error", err)
				}
				registry.EvictIdle(time.Now(), config.SessionIdleTTL)
			}
		}
	}()

	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	// Let pending replies reach the chat and history before the pool closes.
	done := make(chan struct{})
	go func() {
		registry.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(config.ProxyTimeout + config.HistorySaveWait):
		slog.Warn("shutdown with replies still pending")
	}

	slog.Info("bot stopped gracefully")
}

