package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/histamine-helper/internal/config"
	"github.com/set-night/histamine-helper/internal/domain"
)

func TestStarsPrice(t *testing.T) {
	assert.Equal(t, 384, StarsPrice(decimal.RequireFromString("4.99")))
	assert.Equal(t, 3846, StarsPrice(decimal.RequireFromString("49.99")))
	assert.Equal(t, 77, StarsPrice(decimal.RequireFromString("1")))
}

func TestFindPlan(t *testing.T) {
	weekly, err := FindPlan("weekly")
	require.NoError(t, err)
	assert.False(t, weekly.HasTrial)
	assert.Equal(t, 7*24*time.Hour, weekly.Duration)

	annual, err := FindPlan("annual")
	require.NoError(t, err)
	assert.True(t, annual.HasTrial)
	assert.True(t, annual.Price.Equal(decimal.RequireFromString("49.99")))

	_, err = FindPlan("lifetime")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
}

func TestExtendFrom(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour

	assert.Equal(t, now.Add(week), ExtendFrom(nil, now, week))

	past := now.Add(-time.Hour)
	assert.Equal(t, now.Add(week), ExtendFrom(&past, now, week))

	future := now.Add(48 * time.Hour)
	assert.Equal(t, future.Add(week), ExtendFrom(&future, now, week))
}

func TestSubscriptionService_DailyLimit(t *testing.T) {
	cfg := &config.Config{DailyLimitFree: 10, DailyLimitSubscribed: 100}
	s := NewSubscriptionService(nil, nil, cfg)

	until := time.Now().Add(time.Hour)
	expired := time.Now().Add(-time.Hour)

	assert.Equal(t, 10, s.DailyLimit(nil))
	assert.Equal(t, 10, s.DailyLimit(&domain.User{}))
	assert.Equal(t, 10, s.DailyLimit(&domain.User{SubscribedUntil: &expired}))
	assert.Equal(t, 100, s.DailyLimit(&domain.User{SubscribedUntil: &until}))
}
