package types

import "time"

// ------------------------------
// Core Domain Entities
// ------------------------------

// UserProfile is the identity resolved for an authenticated session.
// It is immutable for the lifetime of a session and refetched wholesale
// on each new login.
type UserProfile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	AvatarURL   *string    `json:"avatarUrl"`
	Bio         *string    `json:"bio"`
	Disabled    bool       `json:"disabled"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

// LastMessage is the most recent message preview carried on a room summary.
type LastMessage struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoomSummary describes one room in a room list. Any list presented to a
// user is ordered descending by UpdatedAt.
type RoomSummary struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	IsPrivate   bool         `json:"isPrivate"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	LastMessage *LastMessage `json:"lastMessage,omitempty"`
	UnreadCount int          `json:"unreadCount,omitempty"`
}

// MessageAuthor identifies the sender of a message.
type MessageAuthor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MessageRecord is a single chat message. It belongs to exactly one room.
// The backend returns messages in descending-time order; server order is
// authoritative and timestamps are not guaranteed globally unique.
type MessageRecord struct {
	ID        string        `json:"id"`
	RoomID    string        `json:"roomId"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	EditedAt  *time.Time    `json:"editedAt,omitempty"`
	Author    MessageAuthor `json:"author"`
}
