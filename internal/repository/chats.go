package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type Chat struct {
	ID           pgtype.UUID
	UserID       int64
	Title        *string
	DailyLimit   int32
	SentToday    int32
	LastSendDate pgtype.Timestamptz
	LimitReached bool
	ActivityAt   pgtype.Timestamptz
	CreatedAt    pgtype.Timestamptz
}

type ChatMessage struct {
	ID        pgtype.UUID
	ChatID    pgtype.UUID
	Position  int32
	Role      string
	Text      *string
	Image     []byte
	CreatedAt pgtype.Timestamptz
}

type ChatListRow struct {
	ID           pgtype.UUID
	Title        *string
	ActivityAt   pgtype.Timestamptz
	MessageCount int64
}

const chatColumns = `id, user_id, title, daily_limit, sent_today, last_send_date, limit_reached, activity_at, created_at`

func scanChat(row pgx.Row) (Chat, error) {
	var c Chat
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Title,
		&c.DailyLimit,
		&c.SentToday,
		&c.LastSendDate,
		&c.LimitReached,
		&c.ActivityAt,
		&c.CreatedAt,
	)
	return c, err
}

type UpsertChatParams struct {
	ID           pgtype.UUID
	UserID       int64
	Title        *string
	DailyLimit   int32
	SentToday    int32
	LastSendDate pgtype.Timestamptz
	LimitReached bool
	ActivityAt   pgtype.Timestamptz
}

func (q *Queries) UpsertChat(ctx context.Context, arg UpsertChatParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO chats (id, user_id, title, daily_limit, sent_today, last_send_date, limit_reached, activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			daily_limit = EXCLUDED.daily_limit,
			sent_today = EXCLUDED.sent_today,
			last_send_date = EXCLUDED.last_send_date,
			limit_reached = EXCLUDED.limit_reached,
			activity_at = EXCLUDED.activity_at`,
		arg.ID, arg.UserID, arg.Title, arg.DailyLimit, arg.SentToday, arg.LastSendDate, arg.LimitReached, arg.ActivityAt,
	)
	return err
}

type InsertChatMessageParams struct {
	ID        pgtype.UUID
	ChatID    pgtype.UUID
	Position  int32
	Role      string
	Text      *string
	Image     []byte
	CreatedAt pgtype.Timestamptz
}

// InsertChatMessage is a no-op for messages that are already stored.
func (q *Queries) InsertChatMessage(ctx context.Context, arg InsertChatMessageParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO chat_messages (id, chat_id, position, role, text, image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		arg.ID, arg.ChatID, arg.Position, arg.Role, arg.Text, arg.Image, arg.CreatedAt,
	)
	return err
}

func (q *Queries) CountChatMessages(ctx context.Context, chatID pgtype.UUID) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE chat_id = $1`, chatID).Scan(&n)
	return n, err
}

type GetChatParams struct {
	ID     pgtype.UUID
	UserID int64
}

func (q *Queries) GetChat(ctx context.Context, arg GetChatParams) (Chat, error) {
	row := q.db.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1 AND user_id = $2`, arg.ID, arg.UserID)
	return scanChat(row)
}

func (q *Queries) GetLatestChat(ctx context.Context, userID int64) (Chat, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+chatColumns+` FROM chats
		WHERE user_id = $1
		ORDER BY activity_at DESC
		LIMIT 1`, userID)
	return scanChat(row)
}

func (q *Queries) GetChatMessages(ctx context.Context, chatID pgtype.UUID) ([]ChatMessage, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, chat_id, position, role, text, image, created_at
		FROM chat_messages
		WHERE chat_id = $1
		ORDER BY position ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Position, &m.Role, &m.Text, &m.Image, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

type ListChatsParams struct {
	UserID int64
	Limit  int32
	Offset int32
}

func (q *Queries) ListChats(ctx context.Context, arg ListChatsParams) ([]ChatListRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT c.id, c.title, c.activity_at,
			(SELECT COUNT(*) FROM chat_messages m WHERE m.chat_id = c.id)
		FROM chats c
		WHERE c.user_id = $1
		ORDER BY c.activity_at DESC
		LIMIT $2 OFFSET $3`, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ChatListRow
	for rows.Next() {
		var r ChatListRow
		if err := rows.Scan(&r.ID, &r.Title, &r.ActivityAt, &r.MessageCount); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) CountChats(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM chats WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

type DeleteChatParams struct {
	ID     pgtype.UUID
	UserID int64
}

func (q *Queries) DeleteChat(ctx context.Context, arg DeleteChatParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM chats WHERE id = $1 AND user_id = $2`, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
