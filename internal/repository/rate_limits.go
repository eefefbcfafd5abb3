package repository

import "context"

// CheckAndIncrementRateLimit counts a request in the chat's current one-minute window and returns the new count.
func (q *Queries) CheckAndIncrementRateLimit(ctx context.Context, chatID int64) (int32, error) {
	var count int32
	err := q.db.QueryRow(ctx, `
		INSERT INTO rate_limits (chat_id, window_start, count)
		VALUES ($1, NOW(), 1)
		ON CONFLICT (chat_id) DO UPDATE SET
			count = CASE WHEN rate_limits.window_start < NOW() - INTERVAL '1 minute'
				THEN 1 ELSE rate_limits.count + 1 END,
			window_start = CASE WHEN rate_limits.window_start < NOW() - INTERVAL '1 minute'
				THEN NOW() ELSE rate_limits.window_start END
		RETURNING count`, chatID).Scan(&count)
	return count, err
}

func (q *Queries) CleanupRateLimits(ctx context.Context) error {
	_, err := q.db.Exec(ctx, `DELETE FROM rate_limits WHERE window_start < NOW() - INTERVAL '5 minutes'`)
	return err
}
