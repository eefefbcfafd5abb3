package domain

import (
	"time"
)

type User struct {
	ID              int64
	TelegramID      int64
	IsAdmin         bool
	FirstName       string
	Username        string
	SubscribedUntil *time.Time
	TrialUsed       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (u *User) IsSubscribed() bool {
	if u.SubscribedUntil == nil {
		return false
	}
	return u.SubscribedUntil.After(time.Now())
}
