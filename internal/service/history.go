package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/set-night/histamine-helper/internal/config"
	"github.com/set-night/histamine-helper/internal/domain"
	"github.com/set-night/histamine-helper/internal/repository"
)

// HistoryService stores chat snapshots with append-or-replace-by-id semantics.
type HistoryService struct {
	db      *pgxpool.Pool
	queries *repository.Queries
}

func NewHistoryService(db *pgxpool.Pool, queries *repository.Queries) *HistoryService {
	return &HistoryService{db: db, queries: queries}
}

// Save upserts the chat row and inserts any messages not stored yet.
func (s *HistoryService) Save(ctx context.Context, userID int64, chat domain.Chat) error {
	var title *string
	if chat.Title != "" {
		title = &chat.Title
	}

	return repository.InTx(ctx, s.db, s.queries, func(qtx *repository.Queries) error {
		if err := qtx.UpsertChat(ctx, repository.UpsertChatParams{
			ID:           uuidToPg(chat.ID),
			UserID:       userID,
			Title:        title,
			DailyLimit:   int32(chat.Quota.DailyLimit),
			SentToday:    int32(chat.Quota.SentToday),
			LastSendDate: timeToPgTimestamptz(chat.Quota.LastSendDate),
			LimitReached: chat.Quota.LimitReached,
			ActivityAt:   timeToPgTimestamptz(chat.Date),
		}); err != nil {
			return fmt.Errorf("upsert chat: %w", err)
		}

		stored, err := qtx.CountChatMessages(ctx, uuidToPg(chat.ID))
		if err != nil {
			return fmt.Errorf("count messages: %w", err)
		}

		// messages are append-only, so everything past the stored count is new
		for i := int(stored); i < len(chat.Messages); i++ {
			m := chat.Messages[i]
			var text *string
			if m.Text != "" {
				t := m.Text
				text = &t
			}
			if err := qtx.InsertChatMessage(ctx, repository.InsertChatMessageParams{
				ID:        uuidToPg(m.ID),
				ChatID:    uuidToPg(chat.ID),
				Position:  int32(i),
				Role:      string(m.Role),
				Text:      text,
				Image:     m.Image,
				CreatedAt: timeToPgTimestamptz(m.CreatedAt),
			}); err != nil {
				return fmt.Errorf("insert message: %w", err)
			}
		}
		return nil
	})
}

func (s *HistoryService) Get(ctx context.Context, userID int64, chatID uuid.UUID) (*domain.Chat, error) {
	row, err := s.queries.GetChat(ctx, repository.GetChatParams{ID: uuidToPg(chatID), UserID: userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChatNotFound
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}

	msgs, err := s.queries.GetChatMessages(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	chat := rowToChat(row)
	chat.Messages = make([]domain.Message, len(msgs))
	for i, m := range msgs {
		chat.Messages[i] = rowToMessage(m)
	}
	return chat, nil
}

func (s *HistoryService) List(ctx context.Context, userID int64, limit, offset int) ([]domain.ChatSummary, error) {
	rows, err := s.queries.ListChats(ctx, repository.ListChatsParams{
		UserID: userID,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	items := make([]domain.ChatSummary, len(rows))
	for i, r := range rows {
		items[i] = domain.ChatSummary{
			ID:           uuid.UUID(r.ID.Bytes),
			Title:        derefString(r.Title),
			Date:         pgTimestamptzToTime(r.ActivityAt),
			MessageCount: int(r.MessageCount),
		}
	}
	return items, nil
}

func (s *HistoryService) Count(ctx context.Context, userID int64) (int64, error) {
	return s.queries.CountChats(ctx, userID)
}

func (s *HistoryService) Delete(ctx context.Context, userID int64, chatID uuid.UUID) error {
	n, err := s.queries.DeleteChat(ctx, repository.DeleteChatParams{ID: uuidToPg(chatID), UserID: userID})
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if n == 0 {
		return domain.ErrChatNotFound
	}
	return nil
}

// LatestQuota returns the quota state of the user's most recently active chat.
func (s *HistoryService) LatestQuota(ctx context.Context, userID int64) (domain.Quota, error) {
	row, err := s.queries.GetLatestChat(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quota{}, nil
		}
		return domain.Quota{}, fmt.Errorf("get latest chat: %w", err)
	}
	return rowToChat(row).Quota, nil
}

// Recorder persists the session after each assistant message and each title change.
func (s *HistoryService) Recorder(userID int64) Observer {
	return func(e Event) {
		if !ShouldRecord(e) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), config.HistorySaveWait)
		defer cancel()
		if err := s.Save(ctx, userID, e.Chat); err != nil {
			slog.Error("save chat history", "error", err, "chat_id", e.Chat.ID, "user_id", userID)
		}
	}
}

// ShouldRecord reports whether an event completes a turn worth persisting.
func ShouldRecord(e Event) bool {
	switch e.Kind {
	case EventTitleChanged:
		return true
	case EventMessageAppended:
		return e.Message.Role == domain.RoleAssistant
	default:
		return false
	}
}

func rowToChat(row repository.Chat) *domain.Chat {
	return &domain.Chat{
		ID:    uuid.UUID(row.ID.Bytes),
		Title: derefString(row.Title),
		Date:  pgTimestamptzToTime(row.ActivityAt),
		Quota: domain.Quota{
			DailyLimit:   int(row.DailyLimit),
			SentToday:    int(row.SentToday),
			LastSendDate: pgTimestamptzToTime(row.LastSendDate),
			LimitReached: row.LimitReached,
		},
	}
}

func rowToMessage(row repository.ChatMessage) domain.Message {
	return domain.Message{
		ID:        uuid.UUID(row.ID.Bytes),
		Role:      domain.Role(row.Role),
		Text:      derefString(row.Text),
		Image:     row.Image,
		CreatedAt: pgTimestamptzToTime(row.CreatedAt),
	}
}
