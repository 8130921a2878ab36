package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lihochat/chatclient/internal/apierror"
	"github.com/lihochat/chatclient/internal/types"
)

// ListRooms retrieves the caller's room list.
func ListRooms(ctx context.Context, httpClient *http.Client, baseURL string) (*types.RoomPage, error) {
	var page types.RoomPage
	u := fmt.Sprintf("%s/rooms", baseURL)
	if err := doJSON(ctx, httpClient, "list rooms", http.MethodGet, u, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListMessages retrieves one page of a room's message feed, newest first.
// cursor is the opaque continuation from the previous page, empty for the
// first page; it is round-tripped verbatim (only URL-escaped).
func ListMessages(ctx context.Context, httpClient *http.Client, baseURL, roomID string, limit int, cursor string) (*types.MessagePage, error) {
	if err := types.ValidateIDPresent(roomID, "roomId"); err != nil {
		return nil, apierror.FromValidation(err)
	}
	if err := types.ValidateLimit(limit); err != nil {
		return nil, apierror.FromValidation(err)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u := fmt.Sprintf("%s/rooms/%s/messages?%s", baseURL, url.PathEscape(roomID), q.Encode())

	var page types.MessagePage
	if err := doJSON(ctx, httpClient, "list messages", http.MethodGet, u, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
