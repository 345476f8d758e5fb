package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"realtime_chat_service/internal/chat/domain"
)

// MembershipRepository conversation membership directory.
// 讀取路徑直接打 DB,不做快取,寫入 commit 後下一次讀一定看得到
type MembershipRepository interface {
	// ActiveConversations conversation ids the user is an active member of
	ActiveConversations(ctx context.Context, userID string) ([]string, error)
	// IsActiveMember check (user, conversation) has an active membership
	IsActiveMember(ctx context.Context, userID, conversationID string) (bool, error)
	// ActiveMemberIDs user ids of all active members of a conversation
	ActiveMemberIDs(ctx context.Context, conversationID string) ([]string, error)
	// ActiveMembers active member rows joined with the user snapshot
	ActiveMembers(ctx context.Context, conversationID string) ([]domain.MemberInfo, error)

	CreateConversation(ctx context.Context, conv *domain.Conversation, memberIDs []string) error
	FindConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	FindMembership(ctx context.Context, conversationID, userID string) (*domain.Membership, error)
	// AddMember insert or reactivate the single (user, conversation) row
	AddMember(ctx context.Context, conversationID, userID string, role domain.ConversationRole) error
	// RemoveMember soft leave: is_active=false, left_at stamped
	RemoveMember(ctx context.Context, conversationID, userID string) error
	UpdateRole(ctx context.Context, conversationID, userID string, role domain.ConversationRole) error
	SoftDeleteConversation(ctx context.Context, conversationID string) error
}

type membershipRepository struct {
	db *pgxpool.Pool
}

// NewMembershipRepository create a MembershipRepository
func NewMembershipRepository(db *pgxpool.Pool) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) ActiveConversations(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.conversation_id
		FROM memberships m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.user_id = $1 AND m.is_active AND NOT c.is_deleted`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *membershipRepository) IsActiveMember(ctx context.Context, userID, conversationID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM memberships
			WHERE user_id = $1 AND conversation_id = $2 AND is_active
		)`, userID, conversationID).Scan(&exists)
	return exists, err
}

func (r *membershipRepository) ActiveMemberIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM memberships WHERE conversation_id = $1 AND is_active`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *membershipRepository) ActiveMembers(ctx context.Context, conversationID string) ([]domain.MemberInfo, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.user_id, u.username, COALESCE(u.avatar_url, ''), u.status, m.role, m.joined_at, m.is_active
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.conversation_id = $1 AND m.is_active
		ORDER BY m.joined_at`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.MemberInfo
	for rows.Next() {
		var mi domain.MemberInfo
		if err := rows.Scan(&mi.UserID, &mi.Username, &mi.AvatarURL, &mi.Status, &mi.Role, &mi.JoinedAt, &mi.IsActive); err != nil {
			return nil, err
		}
		members = append(members, mi)
	}
	return members, rows.Err()
}

// CreateConversation conversation row + owner row + member rows in one transaction
func (r *membershipRepository) CreateConversation(ctx context.Context, conv *domain.Conversation, memberIDs []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO conversations(id, name, type, description, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		conv.ID, conv.Name, conv.Type, conv.Description, conv.CreatedBy, conv.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO memberships(user_id, conversation_id, role, is_active, joined_at, last_read_at)
		VALUES ($1, $2, $3, true, $4, $4)`,
		conv.CreatedBy, conv.ID, domain.RoleOwner, conv.CreatedAt)
	if err != nil {
		return err
	}

	for _, id := range memberIDs {
		if id == conv.CreatedBy {
			continue
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO memberships(user_id, conversation_id, role, is_active, joined_at, last_read_at)
			VALUES ($1, $2, $3, true, $4, $4)`,
			id, conv.ID, domain.RoleMember, conv.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *membershipRepository) FindConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.QueryRow(ctx, `
		SELECT id, name, type, COALESCE(description, ''), COALESCE(avatar_url, ''),
		       created_by, created_at, updated_at, is_deleted, deleted_at
		FROM conversations WHERE id = $1`, conversationID).
		Scan(&c.ID, &c.Name, &c.Type, &c.Description, &c.AvatarURL,
			&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt, &c.IsDeleted, &c.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *membershipRepository) FindMembership(ctx context.Context, conversationID, userID string) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.QueryRow(ctx, `
		SELECT user_id, conversation_id, role, is_active, joined_at, left_at, last_read_at
		FROM memberships WHERE conversation_id = $1 AND user_id = $2`, conversationID, userID).
		Scan(&m.UserID, &m.ConversationID, &m.Role, &m.IsActive, &m.JoinedAt, &m.LeftAt, &m.LastReadAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepository) AddMember(ctx context.Context, conversationID, userID string, role domain.ConversationRole) error {
	now := time.Now().UTC()
	// 一對 (user, conversation) 只會有一列,重複加入走 reactivate
	_, err := r.db.Exec(ctx, `
		INSERT INTO memberships(user_id, conversation_id, role, is_active, joined_at, last_read_at)
		VALUES ($1, $2, $3, true, $4, $4)
		ON CONFLICT (user_id, conversation_id) DO UPDATE
		SET is_active = true, joined_at = $4, left_at = NULL, role = $3
		WHERE NOT memberships.is_active`, userID, conversationID, role, now)
	return err
}

func (r *membershipRepository) RemoveMember(ctx context.Context, conversationID, userID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE memberships SET is_active = false, left_at = $3
		WHERE conversation_id = $1 AND user_id = $2 AND is_active`,
		conversationID, userID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *membershipRepository) UpdateRole(ctx context.Context, conversationID, userID string, role domain.ConversationRole) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE memberships SET role = $3
		WHERE conversation_id = $1 AND user_id = $2 AND is_active`,
		conversationID, userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *membershipRepository) SoftDeleteConversation(ctx context.Context, conversationID string) error {
	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx, `
		UPDATE conversations SET is_deleted = true, deleted_at = $2, updated_at = $2
		WHERE id = $1 AND NOT is_deleted`, conversationID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
