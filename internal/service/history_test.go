package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/set-night/histamine-helper/internal/domain"
)

func TestShouldRecord(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		e    Event
		want bool
	}{
		{"user message", Event{Kind: EventMessageAppended, Message: domain.NewMessage(domain.RoleUser, "q", nil, now)}, false},
		{"assistant message", Event{Kind: EventMessageAppended, Message: domain.NewMessage(domain.RoleAssistant, "a", nil, now)}, true},
		{"sending changed", Event{Kind: EventSendingChanged}, false},
		{"title changed", Event{Kind: EventTitleChanged}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRecord(tt.e))
		})
	}
}

func TestTimestamptzConversion(t *testing.T) {
	assert.False(t, timeToPgTimestamptz(time.Time{}).Valid)
	assert.True(t, pgTimestamptzToTime(timeToPgTimestamptz(time.Time{})).IsZero())
	assert.Nil(t, pgTimestamptzToTimePtr(timeToPgTimestamptz(time.Time{})))

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := pgTimestamptzToTimePtr(timeToPgTimestamptz(now))
	if assert.NotNil(t, got) {
		assert.True(t, now.Equal(*got))
	}
}
