package chatclient

import (
	"context"
	"sort"
	"time"

	"github.com/lihochat/chatclient/internal/pager"
	"github.com/lihochat/chatclient/placeholder"
)

// PresentRooms reconciles live room data against a placeholder set. Live
// data wins whenever it is non-empty; otherwise the placeholder set stands
// in wholesale. The two sources are never interleaved for one view.
//
// Pure function: no I/O, no memory of prior calls, and equal inputs always
// produce the identical ordered output. Neither input slice is mutated.
func PresentRooms(live, fallback []RoomSummary) []RoomSummary {
	src := live
	if len(src) == 0 {
		src = fallback
	}
	out := make([]RoomSummary, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// RoomsOrPlaceholder fetches the room list and, when the backend yields
// nothing (empty list, unreachable, or no cached success), substitutes the
// placeholder dataset seeded from the current identity. An empty live list
// and an unreachable backend are deliberately indistinguishable here; both
// present the placeholder set.
func (c *Client) RoomsOrPlaceholder(ctx context.Context) []RoomSummary {
	live, err := c.Rooms(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("room fetch failed, presenting placeholder data")
		live = nil
	}
	fallback, err := placeholder.Rooms(c.session.Identity(), time.Now())
	if err != nil {
		c.log.Error().Err(err).Msg("placeholder room data unavailable")
	}
	return PresentRooms(live, fallback)
}

// MessagesOrPlaceholder returns roomID's collected messages from walker if
// it has any, else the placeholder feed for the room. Same precedence rule
// as PresentRooms: live wins when non-empty, sources never mix.
func (c *Client) MessagesOrPlaceholder(walker *pager.Walker, roomID string) []MessageRecord {
	if live := walker.Messages(); len(live) > 0 {
		return live
	}
	fallback, err := placeholder.Messages(roomID, c.session.Identity(), time.Now())
	if err != nil {
		c.log.Error().Err(err).Msg("placeholder message data unavailable")
	}
	return fallback
}
