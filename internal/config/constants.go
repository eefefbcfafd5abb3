package config

import "time"

const (
	// Proxy request timeout
	ProxyTimeout = 60 * time.Second

	// Header carrying the shared secret
	SecretHeader = "X-Secret-Key"

	// Image preparation
	MaxImageEdge     = 1000
	ImageJPEGQuality = 40
	MaxImagePixels   = 50_000_000

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// History
	HistoryPerPage  = 5
	HistorySaveWait = 5 * time.Second

	// Telegram Stars conversion rate
	XTRToDollarRate = 0.013

	// Free trial for plans that offer one
	TrialDuration = 3 * 24 * time.Hour

	// Stale rate limit windows and idle chat sessions are purged on this interval
	RateLimitCleanup = 10 * time.Minute

	// Chat sessions idle this long are dropped from memory
	SessionIdleTTL = 30 * time.Minute
)

// Fixed transcript texts.
const (
	QuotaExceededText  = "You've reached the maximum number of messages for today. Please try again tomorrow."
	UnknownFormatText  = "Received response in unknown format"
	DefaultPhotoPrompt = "Is this histamine friendly?"
	DefaultChatTitle   = "New Chat"
	TitlePrompt        = "Pick a food item from the conversation to label this, use only the food item (or list of food items) as the label:"
)
