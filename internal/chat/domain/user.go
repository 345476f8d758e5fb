package domain

import "time"

// UserStatus definition user presence status
type UserStatus string

const (
	// UserStatusOnline user has at least one live connection
	UserStatusOnline UserStatus = "online"
	// UserStatusAway explicit override set by the user
	UserStatusAway UserStatus = "away"
	// UserStatusBusy explicit override set by the user
	UserStatusBusy UserStatus = "busy"
	// UserStatusOffline no live connection left
	UserStatusOffline UserStatus = "offline"
)

// Valid check status is one of the known presence states
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusOnline, UserStatusAway, UserStatusBusy, UserStatusOffline:
		return true
	}
	return false
}

// User definition chat user
// Status/LastSeen 只是快照,線上狀態真相在 presence 的連線計數
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	Status    UserStatus `json:"status"`
	LastSeen  time.Time  `json:"last_seen"`
}

// UserPresence live presence entry derived from the connection count
type UserPresence struct {
	UserID      string     `json:"user_id"`
	Status      UserStatus `json:"status"`
	LastSeen    time.Time  `json:"last_seen"`
	Connections int64      `json:"connections"`
}
