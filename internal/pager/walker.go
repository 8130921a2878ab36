// Package pager walks a room's message feed backward in time using opaque
// server-issued cursors.
package pager

import (
	"context"
	"sync"

	"github.com/lihochat/chatclient/internal/types"
)

// PageFetcher fetches one message page. cursor is empty for the first page
// and otherwise the previous page's NextCursor, passed verbatim.
type PageFetcher func(ctx context.Context, cursor string) (*types.MessagePage, error)

// Walker accumulates message pages in fetch order (newest page first). It
// never guesses or synthesizes a cursor: pagination continues exactly where
// the server said it does and terminates when HasMore is false or the
// cursor is absent.
type Walker struct {
	mu     sync.Mutex
	fetch  PageFetcher
	pages  []*types.MessagePage
	cursor string
	done   bool
}

// New creates a Walker over fetch.
func New(fetch PageFetcher) *Walker {
	return &Walker{fetch: fetch}
}

// NextPage fetches the next older page. Once the feed is exhausted it is a
// no-op returning the same terminal page.
func (w *Walker) NextPage(ctx context.Context) (*types.MessagePage, error) {
	w.mu.Lock()
	if w.done {
		last := w.terminalLocked()
		w.mu.Unlock()
		return last, nil
	}
	cursor := w.cursor
	w.mu.Unlock()

	page, err := w.fetch(ctx, cursor)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		// A concurrent call finished the feed first; keep its terminal state.
		return w.terminalLocked(), nil
	}
	w.pages = append(w.pages, page)
	w.cursor = page.NextCursor
	if !page.HasMore || page.NextCursor == "" {
		w.done = true
	}
	return page, nil
}

// HasMore reports whether another page can still be fetched.
func (w *Walker) HasMore() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.done
}

// PageCount reports how many pages have been fetched.
func (w *Walker) PageCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pages)
}

// Messages returns the accumulated feed in ascending time order. The
// backend serves each page newest-first, so one reversal of the
// concatenated sequence is sufficient and authoritative; records are never
// re-sorted by timestamp, which is not guaranteed unique.
func (w *Walker) Messages() []types.MessageRecord {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0
	for _, p := range w.pages {
		n += len(p.Items)
	}
	out := make([]types.MessageRecord, 0, n)
	for _, p := range w.pages {
		out = append(out, p.Items...)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// terminalLocked returns the last page, or an empty terminal page when the
// feed was empty from the start.
func (w *Walker) terminalLocked() *types.MessagePage {
	if len(w.pages) > 0 {
		return w.pages[len(w.pages)-1]
	}
	return &types.MessagePage{HasMore: false}
}
