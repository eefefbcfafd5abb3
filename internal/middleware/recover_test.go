package middleware

import (
	"context"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
)

func TestRecover_SwallowsPanic(t *testing.T) {
	called := false
	next := func(ctx context.Context, b *bot.Bot, update *models.Update) {
		called = true
		panic("boom")
	}

	update := &models.Update{ID: 9, Message: &models.Message{Chat: models.Chat{ID: 77}}}
	assert.NotPanics(t, func() {
		Recover(nil)(next)(context.Background(), nil, update)
	})
	assert.True(t, called)
}

func TestUpdateChatID(t *testing.T) {
	assert.Equal(t, int64(77), updateChatID(&models.Update{
		Message: &models.Message{Chat: models.Chat{ID: 77}},
	}))
	assert.Equal(t, int64(5), updateChatID(&models.Update{
		CallbackQuery: &models.CallbackQuery{
			Message: models.MaybeInaccessibleMessage{Message: &models.Message{Chat: models.Chat{ID: 5}}},
		},
	}))
	assert.Equal(t, int64(0), updateChatID(&models.Update{
		CallbackQuery: &models.CallbackQuery{},
	}))
	assert.Equal(t, int64(0), updateChatID(&models.Update{}))
}
