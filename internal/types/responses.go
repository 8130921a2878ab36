package types

import "time"

// ------------------------------
// Response Types
// ------------------------------

// LoginResponse mirrors the credential-exchange endpoint response.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

// Page wraps one cursor-paginated response. NextCursor is opaque and must be
// round-tripped verbatim to request the following page; the client never
// parses or constructs cursor contents.
type Page[T any] struct {
	Items      []T       `json:"items"`
	NextCursor string    `json:"nextCursor,omitempty"`
	HasMore    bool      `json:"hasMore"`
	ServerTime time.Time `json:"serverTime"`
}

// RoomPage is the room-listing response shape.
type RoomPage = Page[RoomSummary]

// MessagePage is the message-feed response shape.
type MessagePage = Page[MessageRecord]

// ProbeStatus mirrors the liveness/readiness probe responses. Used only for
// connectivity diagnostics, never by the data path.
type ProbeStatus struct {
	Status     string    `json:"status"`
	ServerTime time.Time `json:"serverTime,omitzero"`
}
