package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	b := time.Date(2026, 3, 11, 0, 30, 0, 0, time.UTC)
	west := time.FixedZone("UTC-5", -5*60*60)

	assert.False(t, SameDay(a, b, time.UTC))
	assert.True(t, SameDay(a, b, west))
	assert.True(t, SameDay(a, a.Add(-23*time.Hour), time.UTC))
	assert.False(t, SameDay(time.Time{}, b, time.UTC))
}

func TestChatAccessors(t *testing.T) {
	now := time.Now()
	chat := Chat{Messages: []Message{
		NewMessage(RoleUser, "what about this?", []byte("img"), now),
		NewMessage(RoleAssistant, "first answer", nil, now),
		NewMessage(RoleUser, "and cooked?", nil, now),
		NewMessage(RoleAssistant, "second answer", nil, now),
	}}

	assert.Equal(t, []byte("img"), chat.FirstImage())
	assert.Equal(t, "second answer", chat.LastAssistantText())

	var empty Chat
	assert.Nil(t, empty.FirstImage())
	assert.Equal(t, "", empty.LastAssistantText())
}

func TestUserIsSubscribed(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	assert.False(t, (&User{}).IsSubscribed())
	assert.False(t, (&User{SubscribedUntil: &past}).IsSubscribed())
	assert.True(t, (&User{SubscribedUntil: &future}).IsSubscribed())
}
