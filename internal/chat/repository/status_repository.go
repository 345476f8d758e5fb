package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"realtime_chat_service/internal/chat/domain"
)

// StatusRepository delivery status ledger.
// Transitions are monotonic: sent < delivered < read. A missing entry or a
// not-strictly-ahead status is a no-op, not an error.
type StatusRepository interface {
	// UpdateStatus returns the updated entry on a real transition, nil on a no-op
	UpdateStatus(ctx context.Context, messageID, userID string, status domain.DeliveryStatus) (*domain.DeliveryStatusEntry, error)
	ListByMessage(ctx context.Context, messageID string) ([]domain.DeliveryStatusEntry, error)
}

type statusRepository struct {
	db *pgxpool.Pool
}

// NewStatusRepository create a StatusRepository
func NewStatusRepository(db *pgxpool.Pool) StatusRepository {
	return &statusRepository{db: db}
}

// UpdateStatus 單一 UPDATE 帶著 rank 守衛,同一 (message,user) 併發更新也不會讓
// 晚到的 delivered 蓋掉已經 read 的列
func (r *statusRepository) UpdateStatus(ctx context.Context, messageID, userID string, status domain.DeliveryStatus) (*domain.DeliveryStatusEntry, error) {
	var e domain.DeliveryStatusEntry
	err := r.db.QueryRow(ctx, `
		UPDATE message_statuses SET status = $3, updated_at = $4
		WHERE message_id = $1 AND user_id = $2
		AND CASE status WHEN 'sent' THEN 1 WHEN 'delivered' THEN 2 ELSE 3 END
		  < CASE $3::text WHEN 'sent' THEN 1 WHEN 'delivered' THEN 2 ELSE 3 END
		RETURNING message_id, user_id, status, updated_at`,
		messageID, userID, status, time.Now().UTC()).
		Scan(&e.MessageID, &e.UserID, &e.Status, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *statusRepository) ListByMessage(ctx context.Context, messageID string) ([]domain.DeliveryStatusEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT message_id, user_id, status, updated_at
		FROM message_statuses WHERE message_id = $1
		ORDER BY user_id`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.DeliveryStatusEntry
	for rows.Next() {
		var e domain.DeliveryStatusEntry
		if err := rows.Scan(&e.MessageID, &e.UserID, &e.Status, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
