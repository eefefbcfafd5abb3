package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/set-night/histamine-helper/internal/config"
	"github.com/set-night/histamine-helper/internal/domain"
	"github.com/set-night/histamine-helper/internal/repository"
)

type SubscriptionService struct {
	db      *pgxpool.Pool
	queries *repository.Queries
	cfg     *config.Config
}

func NewSubscriptionService(db *pgxpool.Pool, queries *repository.Queries, cfg *config.Config) *SubscriptionService {
	return &SubscriptionService{db: db, queries: queries, cfg: cfg}
}

func GetPlans() []domain.Plan {
	return []domain.Plan{
		{
			ID:       "weekly",
			Name:     "Weekly Plan",
			Period:   "week",
			Duration: 7 * 24 * time.Hour,
			Price:    decimal.RequireFromString("4.99"),
			HasTrial: false,
		},
		{
			ID:       "annual",
			Name:     "Annual Plan",
			Period:   "year",
			Duration: 365 * 24 * time.Hour,
			Price:    decimal.RequireFromString("49.99"),
			HasTrial: true,
		},
	}
}

func FindPlan(id string) (domain.Plan, error) {
	for _, p := range GetPlans() {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Plan{}, domain.ErrPlanNotFound
}

// StarsPrice converts a USD price to Telegram Stars, rounding up.
func StarsPrice(usd decimal.Decimal) int {
	rate := decimal.NewFromFloat(config.XTRToDollarRate)
	return int(usd.Div(rate).Ceil().IntPart())
}

// DailyLimit is the per-day send quota the user is entitled to.
func (s *SubscriptionService) DailyLimit(user *domain.User) int {
	if user != nil && user.IsSubscribed() {
		return s.cfg.DailyLimitSubscribed
	}
	return s.cfg.DailyLimitFree
}

// Activate records a paid subscription and extends it from max(now, current end).
// A charge id that was already recorded returns domain.ErrPaymentAlreadyTaken.
func (s *SubscriptionService) Activate(ctx context.Context, userID int64, plan domain.Plan, chargeID string, stars int) (time.Time, error) {
	var until time.Time
	err := repository.InTx(ctx, s.db, s.queries, func(qtx *repository.Queries) error {
		user, err := qtx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		if _, err := qtx.CreateTransaction(ctx, repository.CreateTransactionParams{
			UserID:    userID,
			Plan:      plan.ID,
			AmountUSD: plan.Price,
			Stars:     int32(stars),
			ChargeID:  chargeID,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrPaymentAlreadyTaken
			}
			return fmt.Errorf("create transaction: %w", err)
		}

		until = ExtendFrom(pgTimestamptzToTimePtr(user.SubscribedUntil), time.Now(), plan.Duration)
		return s.setSubscribedUntil(ctx, qtx, userID, until)
	})
	if err != nil {
		return time.Time{}, err
	}
	return until, nil
}

// StartTrial grants the trial period once per user for plans that offer one.
func (s *SubscriptionService) StartTrial(ctx context.Context, userID int64, plan domain.Plan) (time.Time, error) {
	if !plan.HasTrial {
		return time.Time{}, domain.ErrTrialUnavailable
	}

	var until time.Time
	err := repository.InTx(ctx, s.db, s.queries, func(qtx *repository.Queries) error {
		user, err := qtx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if user.TrialUsed {
			return domain.ErrTrialUnavailable
		}

		until = ExtendFrom(pgTimestamptzToTimePtr(user.SubscribedUntil), time.Now(), config.TrialDuration)
		if err := s.setSubscribedUntil(ctx, qtx, userID, until); err != nil {
			return err
		}
		if err := qtx.MarkUserTrialUsed(ctx, userID); err != nil {
			return fmt.Errorf("mark trial used: %w", err)
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return until, nil
}

func (s *SubscriptionService) setSubscribedUntil(ctx context.Context, qtx *repository.Queries, userID int64, until time.Time) error {
	if err := qtx.SetUserSubscribedUntil(ctx, repository.SetUserSubscribedUntilParams{
		ID:              userID,
		SubscribedUntil: timeToPgTimestamptz(until),
	}); err != nil {
		return fmt.Errorf("set subscription: %w", err)
	}
	return nil
}

// ExtendFrom adds d to current when it is still in the future, otherwise to now.
func ExtendFrom(current *time.Time, now time.Time, d time.Duration) time.Time {
	if current != nil && current.After(now) {
		return current.Add(d)
	}
	return now.Add(d)
}
