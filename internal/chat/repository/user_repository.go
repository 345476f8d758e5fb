package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"realtime_chat_service/internal/chat/domain"
)

// UserRepository definition user snapshot reads/writes
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	// UpdateStatusSnapshot persist the cold-read status/last_seen snapshot;
	// the live truth stays in the presence connection counts
	UpdateStatusSnapshot(ctx context.Context, userID string, status domain.UserStatus, lastSeen time.Time) error
}

type userRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository create a UserRepository
func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, `
		SELECT id, username, COALESCE(email, ''), COALESCE(avatar_url, ''), status, last_seen
		FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Username, &u.Email, &u.AvatarURL, &u.Status, &u.LastSeen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) UpdateStatusSnapshot(ctx context.Context, userID string, status domain.UserStatus, lastSeen time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET status = $2, last_seen = $3 WHERE id = $1`,
		userID, status, lastSeen)
	return err
}
