package domain

import "time"

// MessageType definition message type
type MessageType string

const (
	// MessageTypeText plain text message
	MessageTypeText MessageType = "text"
	// MessageTypeImage image message, file fields hold the reference
	MessageTypeImage MessageType = "image"
	// MessageTypeFile generic file message
	MessageTypeFile MessageType = "file"
	// MessageTypeEmoji emoji-only message
	MessageTypeEmoji MessageType = "emoji"
	// MessageTypeSystem system message ("user joined" 之類)
	MessageTypeSystem MessageType = "system"
)

// DeliveryStatus per-recipient progress marker for a message
type DeliveryStatus string

const (
	// StatusSent entry created at message-creation time
	StatusSent DeliveryStatus = "sent"
	// StatusDelivered message reached the recipient's client
	StatusDelivered DeliveryStatus = "delivered"
	// StatusRead recipient read the message
	StatusRead DeliveryStatus = "read"
)

// Rank position in the sent < delivered < read order
func (s DeliveryStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// Valid check delivery status value
func (s DeliveryStatus) Valid() bool {
	return s.Rank() > 0
}

// Message definition chat message, immutable after creation except soft delete
type Message struct {
	ID               string      `json:"id"`
	ConversationID   string      `json:"conversation_id"`
	SenderID         string      `json:"sender_id"`
	Type             MessageType `json:"type"`
	Content          string      `json:"content,omitempty"`
	FileURL          string      `json:"file_url,omitempty"`
	FileName         string      `json:"file_name,omitempty"`
	FileSize         int64       `json:"file_size,omitempty"`
	ReplyToMessageID *string     `json:"reply_to_message_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	IsDeleted        bool        `json:"is_deleted"`
	DeletedAt        *time.Time  `json:"deleted_at,omitempty"`
}

// DeliveryStatusEntry unique per (message, user), created only for active
// members other than the sender; status only moves forward
type DeliveryStatusEntry struct {
	MessageID string         `json:"message_id"`
	UserID    string         `json:"user_id"`
	Username  string         `json:"username,omitempty"`
	Status    DeliveryStatus `json:"status"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CreateMessageRequest payload for send_message
type CreateMessageRequest struct {
	ConversationID   string      `json:"conversation_id"`
	Type             MessageType `json:"type"`
	Content          string      `json:"content,omitempty"`
	FileURL          string      `json:"file_url,omitempty"`
	FileName         string      `json:"file_name,omitempty"`
	FileSize         int64       `json:"file_size,omitempty"`
	ReplyToMessageID *string     `json:"reply_to_message_id,omitempty"`
}

// ReplySummary short view of the message being replied to
type ReplySummary struct {
	ID             string      `json:"id"`
	SenderID       string      `json:"sender_id"`
	SenderUsername string      `json:"sender_username"`
	Type           MessageType `json:"type"`
	Content        string      `json:"content,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// MessageView assembled message pushed to the conversation group
type MessageView struct {
	Message
	SenderUsername  string                `json:"sender_username"`
	SenderAvatarURL string                `json:"sender_avatar_url,omitempty"`
	ReplyTo         *ReplySummary         `json:"reply_to,omitempty"`
	Statuses        []DeliveryStatusEntry `json:"statuses,omitempty"`
}
