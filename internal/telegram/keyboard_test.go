package telegram

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, 5))
	assert.Equal(t, 1, TotalPages(5, 5))
	assert.Equal(t, 2, TotalPages(6, 5))
	assert.Equal(t, 1, TotalPages(3, 0))
}

func TestPaginationRow(t *testing.T) {
	first := PaginationRow(0, 3, "history_page_")
	require.Len(t, first, 2)
	assert.Equal(t, "1/3", first[0].Text)
	assert.Equal(t, "history_page_1", first[1].CallbackData)

	middle := PaginationRow(1, 3, "history_page_")
	require.Len(t, middle, 3)
	assert.Equal(t, "history_page_0", middle[0].CallbackData)
	assert.Equal(t, "history_page_2", middle[2].CallbackData)
}

func TestImageFileID(t *testing.T) {
	id, ok := ImageFileID(&models.Message{Photo: []models.PhotoSize{{FileID: "small"}, {FileID: "large"}}})
	assert.True(t, ok)
	assert.Equal(t, "large", id)

	id, ok = ImageFileID(&models.Message{Document: &models.Document{FileID: "doc", MimeType: "image/webp"}})
	assert.True(t, ok)
	assert.Equal(t, "doc", id)

	_, ok = ImageFileID(&models.Message{Document: &models.Document{FileID: "pdf", MimeType: "application/pdf"}})
	assert.False(t, ok)

	_, ok = ImageFileID(&models.Message{Text: "hi"})
	assert.False(t, ok)
}
