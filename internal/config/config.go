package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Proxy
	ProxyURL       string `env:"PROXY_URL" envDefault:"https://thedropout.club/api/openai_proxy"`
	ProxySecretKey string `env:"PROXY_SECRET_KEY"`
	TitleModel     string `env:"TITLE_MODEL" envDefault:"gpt-4o-mini"`

	// Quota
	DailyLimitFree       int    `env:"DAILY_LIMIT_FREE" envDefault:"10"`
	DailyLimitSubscribed int    `env:"DAILY_LIMIT_SUBSCRIBED" envDefault:"100"`
	QuotaTimezone        string `env:"QUOTA_TIMEZONE" envDefault:"Local"`
	RateLimitPerMinute   int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`

	// Payment: Telegram Stars
	StarsEnabled bool `env:"STARS_ENABLED" envDefault:"true"`

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// Logging
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// Telegram logging
	LogTelegramChatID    int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError        int   `env:"LOG_TOPIC_ERROR"`
	LogTopicRegistration int   `env:"LOG_TOPIC_REGISTRATION"`
	LogTopicSubscription int   `env:"LOG_TOPIC_SUBSCRIPTION"`

	location *time.Location
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DailyLimitFree <= 0 || c.DailyLimitSubscribed <= 0 {
		return fmt.Errorf("daily limits must be positive (free=%d, subscribed=%d)", c.DailyLimitFree, c.DailyLimitSubscribed)
	}
	loc, err := time.LoadLocation(c.QuotaTimezone)
	if err != nil {
		return fmt.Errorf("load quota timezone %q: %w", c.QuotaTimezone, err)
	}
	c.location = loc
	return nil
}

// Location is the timezone that decides where a quota day starts and ends.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
