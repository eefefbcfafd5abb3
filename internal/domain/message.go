package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is immutable once appended to a transcript.
type Message struct {
	ID        uuid.UUID
	Role      Role
	Text      string
	Image     []byte // original bytes as captured, any supported image format
	CreatedAt time.Time
}

func NewMessage(role Role, text string, image []byte, at time.Time) Message {
	return Message{
		ID:        uuid.New(),
		Role:      role,
		Text:      text,
		Image:     image,
		CreatedAt: at,
	}
}

func (m Message) HasImage() bool {
	return len(m.Image) > 0
}
