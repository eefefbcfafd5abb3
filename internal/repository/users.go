package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID              int64
	TelegramID      int64
	FirstName       string
	Username        string
	IsAdmin         bool
	SubscribedUntil pgtype.Timestamptz
	TrialUsed       bool
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

const userColumns = `id, telegram_id, first_name, username, is_admin, subscribed_until, trial_used, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.TelegramID,
		&u.FirstName,
		&u.Username,
		&u.IsAdmin,
		&u.SubscribedUntil,
		&u.TrialUsed,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (q *Queries) GetUserByTelegramID(ctx context.Context, telegramID int64) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserForUpdate must run inside a transaction.
func (q *Queries) GetUserForUpdate(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	return scanUser(row)
}

type CreateUserParams struct {
	TelegramID int64
	FirstName  string
	Username   string
	IsAdmin    bool
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, first_name, username, is_admin)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO UPDATE SET updated_at = NOW()
		RETURNING `+userColumns,
		arg.TelegramID, arg.FirstName, arg.Username, arg.IsAdmin,
	)
	return scanUser(row)
}

type UpdateUserProfileParams struct {
	ID        int64
	FirstName string
	Username  string
	IsAdmin   bool
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE users SET first_name = $2, username = $3, is_admin = $4, updated_at = NOW()
		WHERE id = $1`,
		arg.ID, arg.FirstName, arg.Username, arg.IsAdmin,
	)
	return err
}

type SetUserSubscribedUntilParams struct {
	ID              int64
	SubscribedUntil pgtype.Timestamptz
}

func (q *Queries) SetUserSubscribedUntil(ctx context.Context, arg SetUserSubscribedUntilParams) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET subscribed_until = $2, updated_at = NOW() WHERE id = $1`,
		arg.ID, arg.SubscribedUntil)
	return err
}

func (q *Queries) MarkUserTrialUsed(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET trial_used = TRUE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (q *Queries) CountUsersCreatedAfter(ctx context.Context, after pgtype.Timestamptz) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE created_at >= $1`, after).Scan(&n)
	return n, err
}

func (q *Queries) CountSubscribedUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE subscribed_until > NOW()`).Scan(&n)
	return n, err
}
