package domain

import (
	"time"

	"github.com/google/uuid"
)

// Quota tracks sends within one calendar day.
type Quota struct {
	DailyLimit   int
	SentToday    int
	LastSendDate time.Time // zero until the first counted send
	LimitReached bool      // the quota notice was already appended for LastSendDate's day
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// Chat is a point-in-time copy of a chat session.
type Chat struct {
	ID       uuid.UUID
	Title    string
	Date     time.Time // last activity
	Sending  bool
	Quota    Quota
	Messages []Message
}

func (c Chat) FirstImage() []byte {
	for _, m := range c.Messages {
		if m.HasImage() {
			return m.Image
		}
	}
	return nil
}

func (c Chat) LastAssistantText() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i].Text
		}
	}
	return ""
}

// ChatSummary is a history listing entry.
type ChatSummary struct {
	ID           uuid.UUID
	Title        string
	Date         time.Time
	MessageCount int
}
