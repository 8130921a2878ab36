package chatclient

import (
	"github.com/lihochat/chatclient/internal/session"
	"github.com/lihochat/chatclient/internal/types"
)

// Public type aliases so consumers can import only the chatclient package.
type (
	// Requests
	LoginRequest = types.LoginRequest

	// Domain entities
	UserProfile   = types.UserProfile
	RoomSummary   = types.RoomSummary
	LastMessage   = types.LastMessage
	MessageRecord = types.MessageRecord
	MessageAuthor = types.MessageAuthor

	// Responses
	LoginResponse = types.LoginResponse
	RoomPage      = types.RoomPage
	MessagePage   = types.MessagePage
	ProbeStatus   = types.ProbeStatus

	// Session
	Phase           = session.Phase
	SessionSnapshot = session.Snapshot
)

// Session phases re-exported for switch statements on Client.Phase().
const (
	Bootstrapping = session.Bootstrapping
	Anonymous     = session.Anonymous
	Authenticated = session.Authenticated
)

// Errors re-exported in errors.go
