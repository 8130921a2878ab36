// Package placeholder provides the local fallback dataset shown when the
// backend has nothing to offer. Content is embedded; only its shape and
// fallback role matter to the core. Generation is deterministic for a given
// identity and reference time, so re-rendering with equal inputs yields
// identical output.
package placeholder

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lihochat/chatclient/internal/types"
)

// Version is incremented whenever the seed dataset changes incompatibly.
const Version = "v1"

// seedFS holds the embedded seed assets.
//
//go:embed seed/*.json
var seedFS embed.FS

type seedRoom struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	IsPrivate         bool   `json:"isPrivate"`
	UpdatedAgoSeconds int    `json:"updatedAgoSeconds"`
	LastMessage       string `json:"lastMessage"`
	UnreadCount       int    `json:"unreadCount"`
}

type roomsFile struct {
	Version string     `json:"version"`
	Rooms   []seedRoom `json:"rooms"`
}

type seedMessage struct {
	OffsetSeconds int    `json:"offsetSeconds"`
	FromSelf      bool   `json:"fromSelf"`
	Content       string `json:"content"`
}

type messagesFile struct {
	Version  string        `json:"version"`
	Messages []seedMessage `json:"messages"`
}

// counterpart picks the demo peer for a seeded direct-message room.
func counterpart(profile *types.UserProfile) types.MessageAuthor {
	if profile != nil && strings.EqualFold(profile.Email, "alice@example.com") {
		return types.MessageAuthor{ID: "u-bob", Name: "Bob"}
	}
	return types.MessageAuthor{ID: "u-alice", Name: "Alice"}
}

// dmRoomID derives the seeded DM room id for a profile.
func dmRoomID(profile *types.UserProfile, other types.MessageAuthor) string {
	self := "anonymous"
	if profile != nil && profile.ID != "" {
		self = profile.ID
	}
	return fmt.Sprintf("dm:%s:%s", self, other.ID)
}

// Rooms returns the placeholder room list for profile, with timestamps
// anchored at now. The list includes one direct-message room seeded from the
// identity plus the embedded shared rooms. Order is the seed file's; the
// presentation merge applies the descending-updatedAt sort.
func Rooms(profile *types.UserProfile, now time.Time) ([]types.RoomSummary, error) {
	raw, err := fs.ReadFile(seedFS, "seed/rooms.json")
	if err != nil {
		return nil, fmt.Errorf("placeholder rooms missing: %w", err)
	}
	var file roomsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("placeholder rooms malformed: %w", err)
	}

	other := counterpart(profile)
	out := make([]types.RoomSummary, 0, len(file.Rooms)+1)
	out = append(out, types.RoomSummary{
		ID:        dmRoomID(profile, other),
		Name:      other.Name,
		IsPrivate: true,
		UpdatedAt: now.Add(-30 * time.Second),
		LastMessage: &types.LastMessage{
			Content:   "Hi! 👋",
			CreatedAt: now.Add(-30 * time.Second),
		},
		UnreadCount: 2,
	})
	for _, r := range file.Rooms {
		ago := time.Duration(r.UpdatedAgoSeconds) * time.Second
		out = append(out, types.RoomSummary{
			ID:        r.ID,
			Name:      r.Name,
			IsPrivate: r.IsPrivate,
			UpdatedAt: now.Add(-ago),
			LastMessage: &types.LastMessage{
				Content:   r.LastMessage,
				CreatedAt: now.Add(-ago),
			},
			UnreadCount: r.UnreadCount,
		})
	}
	return out, nil
}

// Messages returns the placeholder feed for one room, ascending by time.
// Message IDs are namespace UUIDs of the room and position, so equal inputs
// always produce identical records.
func Messages(roomID string, profile *types.UserProfile, now time.Time) ([]types.MessageRecord, error) {
	raw, err := fs.ReadFile(seedFS, "seed/messages.json")
	if err != nil {
		return nil, fmt.Errorf("placeholder messages missing: %w", err)
	}
	var file messagesFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("placeholder messages malformed: %w", err)
	}

	other := counterpart(profile)
	self := types.MessageAuthor{ID: "u-self", Name: "You"}
	if profile != nil && profile.ID != "" {
		self = types.MessageAuthor{ID: profile.ID, Name: profile.Name}
	}

	out := make([]types.MessageRecord, 0, len(file.Messages))
	for i, m := range file.Messages {
		author := other
		if m.FromSelf {
			author = self
		}
		id := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "liho:%s:%d", roomID, i))
		out = append(out, types.MessageRecord{
			ID:        id.String(),
			RoomID:    roomID,
			Content:   strings.ReplaceAll(m.Content, "{name}", other.Name),
			CreatedAt: now.Add(-time.Duration(m.OffsetSeconds) * time.Second),
			Author:    author,
		})
	}
	return out, nil
}
