package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/histamine-helper/internal/config"
	"github.com/set-night/histamine-helper/internal/domain"
)

func TestFormatQuota(t *testing.T) {
	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

	fresh := domain.Quota{DailyLimit: 10}
	assert.Contains(t, formatQuota(fresh, now, time.UTC), "*10* of 10")

	today := domain.Quota{DailyLimit: 10, SentToday: 7, LastSendDate: now.Add(-time.Hour)}
	assert.Contains(t, formatQuota(today, now, time.UTC), "*3* of 10")

	yesterday := domain.Quota{DailyLimit: 10, SentToday: 10, LastSendDate: now.Add(-24 * time.Hour)}
	assert.Contains(t, formatQuota(yesterday, now, time.UTC), "*10* of 10")

	spent := domain.Quota{DailyLimit: 2, SentToday: 2, LastSendDate: now}
	assert.Contains(t, formatQuota(spent, now, time.UTC), "Come back tomorrow")
}

func TestIsAnswer(t *testing.T) {
	assert.True(t, isAnswer("Tomatoes are high in histamine."))
	assert.False(t, isAnswer(config.QuotaExceededText))
	assert.False(t, isAnswer(config.UnknownFormatText))
	assert.False(t, isAnswer("Error: proxy request: timeout"))
}

func TestPlanFromPayload(t *testing.T) {
	plan, err := planFromPayload("sub_annual")
	require.NoError(t, err)
	assert.Equal(t, "annual", plan.ID)

	_, err = planFromPayload("topup_5")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)

	_, err = planFromPayload("sub_lifetime")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
}
