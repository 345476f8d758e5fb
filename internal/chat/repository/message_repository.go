package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"realtime_chat_service/internal/chat/domain"
)

// MessageRepository definition message persistence and assembly
type MessageRepository interface {
	// CreateWithStatuses message row + one `sent` entry per recipient in one
	// transaction, so no reader sees the message without its entries
	CreateWithStatuses(ctx context.Context, msg *domain.Message, recipientIDs []string) error
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	// FindViewByID assembled message: sender identity, reply summary, entries
	FindViewByID(ctx context.Context, messageID string) (*domain.MessageView, error)
	// ListByConversation history page, newest first (created_at desc, id desc)
	ListByConversation(ctx context.Context, conversationID string, page, pageSize int) ([]domain.MessageView, error)
	LastMessage(ctx context.Context, conversationID string) (*domain.MessageView, error)
	// SoftDelete sender-only soft delete
	SoftDelete(ctx context.Context, messageID, senderID string) error
	// UnreadCount messages from others with no `read` entry for the user.
	// 沒有 entry 的訊息 (加入前就存在的) 也算未讀,這是刻意保留的行為
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
	// UnreadCounts unread count grouped by conversation for one user
	UnreadCounts(ctx context.Context, userID string) ([]domain.ConversationUnread, error)
}

type messageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository create a MessageRepository
func NewMessageRepository(db *pgxpool.Pool) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) CreateWithStatuses(ctx context.Context, msg *domain.Message, recipientIDs []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO messages(id, conversation_id, sender_id, type, content,
		                     file_url, file_name, file_size, reply_to_message_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Type, msg.Content,
		msg.FileURL, msg.FileName, msg.FileSize, msg.ReplyToMessageID, msg.CreatedAt)
	if err != nil {
		return err
	}

	for _, userID := range recipientIDs {
		_, err = tx.Exec(ctx, `
			INSERT INTO message_statuses(message_id, user_id, status, updated_at)
			VALUES ($1, $2, $3, $4)`,
			msg.ID, userID, domain.StatusSent, msg.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *messageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	var m domain.Message
	err := r.db.QueryRow(ctx, `
		SELECT id, conversation_id, sender_id, type, COALESCE(content, ''),
		       COALESCE(file_url, ''), COALESCE(file_name, ''), COALESCE(file_size, 0),
		       reply_to_message_id, created_at, is_deleted, deleted_at
		FROM messages WHERE id = $1`, messageID).
		Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Type, &m.Content,
			&m.FileURL, &m.FileName, &m.FileSize,
			&m.ReplyToMessageID, &m.CreatedAt, &m.IsDeleted, &m.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

const messageViewQuery = `
	SELECT m.id, m.conversation_id, m.sender_id, m.type, COALESCE(m.content, ''),
	       COALESCE(m.file_url, ''), COALESCE(m.file_name, ''), COALESCE(m.file_size, 0),
	       m.reply_to_message_id, m.created_at, m.is_deleted, m.deleted_at,
	       u.username, COALESCE(u.avatar_url, ''),
	       rm.id, rm.sender_id, ru.username, rm.type, COALESCE(rm.content, ''), rm.created_at
	FROM messages m
	JOIN users u ON u.id = m.sender_id
	LEFT JOIN messages rm ON rm.id = m.reply_to_message_id
	LEFT JOIN users ru ON ru.id = rm.sender_id`

func (r *messageRepository) scanView(row pgx.Row) (*domain.MessageView, error) {
	var v domain.MessageView
	var replyID, replySender, replyUsername, replyContent *string
	var replyType *domain.MessageType
	var replyCreated *time.Time
	err := row.Scan(&v.ID, &v.ConversationID, &v.SenderID, &v.Type, &v.Content,
		&v.FileURL, &v.FileName, &v.FileSize,
		&v.ReplyToMessageID, &v.CreatedAt, &v.IsDeleted, &v.DeletedAt,
		&v.SenderUsername, &v.SenderAvatarURL,
		&replyID, &replySender, &replyUsername, &replyType, &replyContent, &replyCreated)
	if err != nil {
		return nil, err
	}
	if replyID != nil {
		v.ReplyTo = &domain.ReplySummary{
			ID:             *replyID,
			SenderID:       *replySender,
			SenderUsername: *replyUsername,
			Type:           *replyType,
			Content:        *replyContent,
			CreatedAt:      *replyCreated,
		}
	}
	return &v, nil
}

func (r *messageRepository) loadStatuses(ctx context.Context, messageID string) ([]domain.DeliveryStatusEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ms.message_id, ms.user_id, u.username, ms.status, ms.updated_at
		FROM message_statuses ms
		JOIN users u ON u.id = ms.user_id
		WHERE ms.message_id = $1
		ORDER BY ms.user_id`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.DeliveryStatusEntry
	for rows.Next() {
		var e domain.DeliveryStatusEntry
		if err := rows.Scan(&e.MessageID, &e.UserID, &e.Username, &e.Status, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *messageRepository) FindViewByID(ctx context.Context, messageID string) (*domain.MessageView, error) {
	v, err := r.scanView(r.db.QueryRow(ctx, messageViewQuery+` WHERE m.id = $1`, messageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if v.Statuses, err = r.loadStatuses(ctx, messageID); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string, page, pageSize int) ([]domain.MessageView, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	rows, err := r.db.Query(ctx, messageViewQuery+`
		WHERE m.conversation_id = $1 AND NOT m.is_deleted
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2 OFFSET $3`, conversationID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []domain.MessageView
	for rows.Next() {
		v, err := r.scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].Statuses, err = r.loadStatuses(ctx, views[i].ID); err != nil {
			return nil, err
		}
	}
	return views, nil
}

func (r *messageRepository) LastMessage(ctx context.Context, conversationID string) (*domain.MessageView, error) {
	v, err := r.scanView(r.db.QueryRow(ctx, messageViewQuery+`
		WHERE m.conversation_id = $1 AND NOT m.is_deleted
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT 1`, conversationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (r *messageRepository) SoftDelete(ctx context.Context, messageID, senderID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages SET is_deleted = true, deleted_at = $3
		WHERE id = $1 AND sender_id = $2 AND NOT is_deleted`,
		messageID, senderID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *messageRepository) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages m
		WHERE m.conversation_id = $1 AND m.sender_id <> $2 AND NOT m.is_deleted
		AND NOT EXISTS (
			SELECT 1 FROM message_statuses ms
			WHERE ms.message_id = m.id AND ms.user_id = $2 AND ms.status = 'read'
		)`, conversationID, userID).Scan(&count)
	return count, err
}

func (r *messageRepository) UnreadCounts(ctx context.Context, userID string) ([]domain.ConversationUnread, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.conversation_id, COUNT(*)
		FROM messages m
		JOIN memberships mb ON mb.conversation_id = m.conversation_id AND mb.user_id = $1 AND mb.is_active
		JOIN conversations c ON c.id = m.conversation_id AND NOT c.is_deleted
		WHERE m.sender_id <> $1 AND NOT m.is_deleted
		AND NOT EXISTS (
			SELECT 1 FROM message_statuses ms
			WHERE ms.message_id = m.id AND ms.user_id = $1 AND ms.status = 'read'
		)
		GROUP BY m.conversation_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []domain.ConversationUnread
	for rows.Next() {
		var c domain.ConversationUnread
		if err := rows.Scan(&c.ConversationID, &c.UnreadCount); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
