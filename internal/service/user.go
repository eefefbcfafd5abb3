package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/set-night/histamine-helper/internal/domain"
	"github.com/set-night/histamine-helper/internal/repository"
)

type UserService struct {
	db      *pgxpool.Pool
	queries *repository.Queries
}

func NewUserService(db *pgxpool.Pool, queries *repository.Queries) *UserService {
	return &UserService{db: db, queries: queries}
}

// FindOrCreate returns the user and whether it was created by this call.
func (s *UserService) FindOrCreate(ctx context.Context, telegramID int64, firstName, username string, isAdmin bool) (*domain.User, bool, error) {
	row, err := s.queries.GetUserByTelegramID(ctx, telegramID)
	if err == nil {
		user := rowToUser(row)
		if user.FirstName != firstName || user.Username != username || user.IsAdmin != isAdmin {
			if err := s.queries.UpdateUserProfile(ctx, repository.UpdateUserProfileParams{
				ID:        user.ID,
				FirstName: firstName,
				Username:  username,
				IsAdmin:   isAdmin,
			}); err != nil {
				slog.Warn("update user profile", "error", err, "user_id", user.ID)
			} else {
				user.FirstName, user.Username, user.IsAdmin = firstName, username, isAdmin
			}
		}
		return user, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("get user: %w", err)
	}

	row, err = s.queries.CreateUser(ctx, repository.CreateUserParams{
		TelegramID: telegramID,
		FirstName:  firstName,
		Username:   username,
		IsAdmin:    isAdmin,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	slog.Info("user registered", "telegram_id", telegramID, "user_id", row.ID)
	return rowToUser(row), true, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return rowToUser(row), nil
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.queries.CountUsers(ctx)
}

func rowToUser(row repository.User) *domain.User {
	return &domain.User{
		ID:              row.ID,
		TelegramID:      row.TelegramID,
		IsAdmin:         row.IsAdmin,
		FirstName:       row.FirstName,
		Username:        row.Username,
		SubscribedUntil: pgTimestamptzToTimePtr(row.SubscribedUntil),
		TrialUsed:       row.TrialUsed,
		CreatedAt:       pgTimestamptzToTime(row.CreatedAt),
		UpdatedAt:       pgTimestamptzToTime(row.UpdatedAt),
	}
}
