package domain

import "time"

// ConversationType definition conversation type
type ConversationType string

const (
	// ConversationTypeDirect definition conversation 1 on 1
	ConversationTypeDirect ConversationType = "direct"
	// ConversationTypeGroup definition conversation group
	ConversationTypeGroup ConversationType = "group"
)

// ConversationRole definition member role in a conversation
type ConversationRole string

const (
	// RoleOwner conversation owner, the only role allowed to delete it
	RoleOwner ConversationRole = "owner"
	// RoleMember regular member
	RoleMember ConversationRole = "member"
)

// Conversation definition conversation
type Conversation struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Type        ConversationType `json:"type"`
	Description string           `json:"description,omitempty"`
	AvatarURL   string           `json:"avatar_url,omitempty"`
	CreatedBy   string           `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	IsDeleted   bool             `json:"is_deleted"`
	DeletedAt   *time.Time       `json:"deleted_at,omitempty"`
}

// Membership binds a user to a conversation.
// 一個 (user, conversation) 終生只有一列,離開設 is_active=false,重新加入復用同一列
type Membership struct {
	UserID         string           `json:"user_id"`
	ConversationID string           `json:"conversation_id"`
	Role           ConversationRole `json:"role"`
	IsActive       bool             `json:"is_active"`
	JoinedAt       time.Time        `json:"joined_at"`
	LeftAt         *time.Time       `json:"left_at,omitempty"`
	LastReadAt     time.Time        `json:"last_read_at"`
}

// MemberInfo active member row joined with the user snapshot
type MemberInfo struct {
	UserID    string           `json:"user_id"`
	Username  string           `json:"username"`
	AvatarURL string           `json:"avatar_url,omitempty"`
	Status    UserStatus       `json:"status"`
	Role      ConversationRole `json:"role"`
	JoinedAt  time.Time        `json:"joined_at"`
	IsActive  bool             `json:"is_active"`
}

// ConversationSummary conversation listing entry for one user
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	Members      []MemberInfo `json:"members"`
	LastMessage  *MessageView `json:"last_message,omitempty"`
	UnreadCount  int          `json:"unread_count"`
}

// ConversationUnread unread count by conversation
type ConversationUnread struct {
	ConversationID string `json:"conversation_id"`
	UnreadCount    int    `json:"unread_count"`
}
