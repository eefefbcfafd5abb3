package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID        int64
	UserID    int64
	Plan      string
	AmountUSD decimal.Decimal
	Stars     int32
	ChargeID  string
	CreatedAt pgtype.Timestamptz
}

type CreateTransactionParams struct {
	UserID    int64
	Plan      string
	AmountUSD decimal.Decimal
	Stars     int32
	ChargeID  string
}

// CreateTransaction returns pgx.ErrNoRows when the charge id was already recorded.
func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	var t Transaction
	err := q.db.QueryRow(ctx, `
		INSERT INTO transactions (user_id, plan, amount_usd, stars, charge_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (charge_id) DO NOTHING
		RETURNING id, user_id, plan, amount_usd, stars, charge_id, created_at`,
		arg.UserID, arg.Plan, arg.AmountUSD, arg.Stars, arg.ChargeID,
	).Scan(&t.ID, &t.UserID, &t.Plan, &t.AmountUSD, &t.Stars, &t.ChargeID, &t.CreatedAt)
	return t, err
}

func (q *Queries) ListUserTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, plan, amount_usd, stars, charge_id, created_at
		FROM transactions WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Plan, &t.AmountUSD, &t.Stars, &t.ChargeID, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// SumTransactions returns the number of payments and the stars collected.
func (q *Queries) SumTransactions(ctx context.Context) (int64, int64, error) {
	var count, stars int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(stars), 0) FROM transactions`).Scan(&count, &stars)
	return count, stars, err
}
