package domain

import "time"

// Action websocket request action
type Action string

const (
	// ActionSendMessage websocket action send_message
	ActionSendMessage Action = "send_message"
	// ActionJoinConversation websocket action join_conversation
	ActionJoinConversation Action = "join_conversation"
	// ActionLeaveConversation websocket action leave_conversation
	ActionLeaveConversation Action = "leave_conversation"
	// ActionStartTyping websocket action start_typing
	ActionStartTyping Action = "start_typing"
	// ActionStopTyping websocket action stop_typing
	ActionStopTyping Action = "stop_typing"
	// ActionMarkRead websocket action mark_read
	ActionMarkRead Action = "mark_read"
	// ActionMarkDelivered websocket action mark_delivered
	ActionMarkDelivered Action = "mark_delivered"
	// ActionUpdateStatus websocket action update_status
	ActionUpdateStatus Action = "update_status"
	// ActionGetUnread websocket action get_unread
	ActionGetUnread Action = "get_unread"
)

// Server push event names, kept compatible with the web client
const (
	// EventReceiveMessage new message in a joined conversation
	EventReceiveMessage = "ReceiveMessage"
	// EventUserStatusChanged a user's presence changed
	EventUserStatusChanged = "UserStatusChanged"
	// EventUserStartedTyping someone started typing in a joined conversation
	EventUserStartedTyping = "UserStartedTyping"
	// EventUserStoppedTyping someone stopped typing
	EventUserStoppedTyping = "UserStoppedTyping"
	// EventMessageStatusUpdated a delivery status entry moved forward
	EventMessageStatusUpdated = "MessageStatusUpdated"
	// EventError caller-scoped failure
	EventError = "Error"
)

// WSRequest websocket Request
type WSRequest struct {
	Action           string `json:"action"`
	ConversationID   string `json:"conversation_id,omitempty"`
	Type             string `json:"type,omitempty"`
	Content          string `json:"content,omitempty"`
	FileURL          string `json:"file_url,omitempty"`
	FileName         string `json:"file_name,omitempty"`
	FileSize         int64  `json:"file_size,omitempty"`
	ReplyToMessageID string `json:"reply_to_message_id,omitempty"`
	MessageID        string `json:"message_id,omitempty"`
	Status           string `json:"status,omitempty"`
}

// WSResponse websocket request ack
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// WSPush server -> client push event
type WSPush struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// Envelope backplane event. Origin carries the publishing connection id so a
// session can drop its own typing/status events after cross-process fanout.
type Envelope struct {
	Event   string      `json:"event"`
	Origin  string      `json:"origin,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// StatusChangedPayload payload of UserStatusChanged
type StatusChangedPayload struct {
	UserID   string     `json:"user_id"`
	Status   UserStatus `json:"status"`
	LastSeen time.Time  `json:"last_seen"`
}

// TypingPayload payload of UserStartedTyping / UserStoppedTyping
type TypingPayload struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

// StatusUpdatedPayload payload of MessageStatusUpdated, addressed to the sender
type StatusUpdatedPayload struct {
	MessageID string         `json:"message_id"`
	UserID    string         `json:"user_id"`
	Status    DeliveryStatus `json:"status"`
	UpdatedAt time.Time      `json:"updated_at"`
}
