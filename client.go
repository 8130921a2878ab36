// Package chatclient is the client runtime for the Liho chat backend: it
// maintains the authenticated session, routes every request through one
// normalized transport, and serves paginated room and message data through a
// stale-while-revalidate query cache with a local placeholder fallback.
package chatclient

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lihochat/chatclient/internal/api"
	"github.com/lihochat/chatclient/internal/apierror"
	"github.com/lihochat/chatclient/internal/pager"
	"github.com/lihochat/chatclient/internal/querycache"
	"github.com/lihochat/chatclient/internal/refreshq"
	"github.com/lihochat/chatclient/internal/session"
	"github.com/lihochat/chatclient/internal/types"
)

// requestTimeout bounds every request. Generous because free-tier backends
// may cold start.
const requestTimeout = 30 * time.Second

// Staleness windows per resource.
const (
	roomsStaleTime    = 60 * time.Second
	messagesStaleTime = 30 * time.Second
)

// --------------------------------------------------------------------
// Client core
// --------------------------------------------------------------------

// Client is the composition root: one transport, one session, one cache.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Manager
	cache   *querycache.Cache
	exec    *refreshq.Executor
	log     zerolog.Logger

	store      session.TokenStore // set by options before wiring
	closedOnce uint32             // ensures Close is idempotent
}

// New constructs a Client for the backend at baseURL (the logical API
// prefix already resolved to a real origin by the deployment).
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, apierror.FromValidation(errValidation("baseURL cannot be empty"))
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		log:     zerolog.Nop(),
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.store == nil {
		store, err := session.NewFileTokenStore("")
		if err != nil {
			return nil, err
		}
		c.store = store
	}

	c.session = session.NewManager(c.store, c.log)

	// Wrap the transport so every request carries the session's current
	// bearer token. Installed above any debug transport so dumps show the
	// header actually sent.
	c.http.Transport = &bearerTransport{
		base:  baseTransport(c.http.Transport),
		token: c.session.Token,
	}
	c.session.Bind(c.http, c.baseURL)

	rqCfg, err := refreshq.LoadConfig()
	if err != nil {
		c.log.Warn().Err(err).Msg("refreshq env config invalid, using defaults")
		rqCfg = refreshq.Config{}
	}
	c.exec = refreshq.NewExecutor(rqCfg, c.log)

	qcCfg, err := querycache.LoadConfig()
	if err != nil {
		c.log.Warn().Err(err).Msg("querycache env config invalid, using defaults")
		qcCfg = querycache.Config{}
	}
	c.cache = querycache.New(qcCfg, c.exec, c.log)

	return c, nil
}

func baseTransport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}

// bearerTransport wraps an http.RoundTripper to attach the current session
// token as a bearer credential. An absent token is not an error: the
// request proceeds unauthenticated.
type bearerTransport struct {
	base  http.RoundTripper
	token func() string
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	if tok := t.token(); tok != "" {
		cloned.Header.Set("Authorization", "Bearer "+tok)
	}
	return t.base.RoundTrip(cloned)
}

// Close stops the background refresh executor and the cache. Safe to call
// multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	c.cache.Close()
	c.exec.Stop()
	return nil
}

// --------------------------------------------------------------------
// Session operations - delegated to internal/session
// --------------------------------------------------------------------

// Bootstrap validates any persisted token once at startup. It never fails;
// every failure path resolves to an anonymous session.
func (c *Client) Bootstrap(ctx context.Context) Phase {
	return c.session.Bootstrap(ctx)
}

// Login exchanges credentials for a session. The returned error, when not
// nil, is always a normalized *apierror.Error whose status class alone
// distinguishes wrong credentials (401), disabled account (403), rate
// limiting (429) and cold-start timeouts.
func (c *Client) Login(ctx context.Context, email, password string) error {
	err := c.session.Login(ctx, email, password)
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return err
	}
	loginsTotal.WithLabelValues("ok").Inc()
	return nil
}

// Logout clears the session and the persisted token. Never fails.
func (c *Client) Logout() {
	c.session.Logout()
}

// Session returns a read-only snapshot of the current session.
func (c *Client) Session() session.Snapshot { return c.session.Snapshot() }

// Phase returns the session lifecycle phase.
func (c *Client) Phase() Phase { return c.session.Phase() }

// Identity returns the validated profile, or nil outside Authenticated.
func (c *Client) Identity() *UserProfile { return c.session.Identity() }

// LoginCooldown reports how long login attempts are still rejected locally
// after a 429, zero when none is active.
func (c *Client) LoginCooldown() time.Duration { return c.session.CooldownRemaining() }

// OnSessionChange registers an observer for phase/token changes.
func (c *Client) OnSessionChange(fn session.Observer) { c.session.Subscribe(fn) }

// --------------------------------------------------------------------
// Room and message reads - through the query cache
// --------------------------------------------------------------------

// Rooms returns the room list, cached for 60 seconds, deduplicated across
// concurrent callers and retried per the uniform policy.
func (c *Client) Rooms(ctx context.Context) ([]RoomSummary, error) {
	page, err := querycache.Fetch(ctx, c.cache, querycache.NewKey("rooms"), roomsStaleTime,
		func(ctx context.Context) (*types.RoomPage, error) {
			roomFetchesTotal.Inc()
			return api.ListRooms(ctx, c.http, c.baseURL)
		})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// InvalidateRooms marks the room list stale so the next access refetches.
func (c *Client) InvalidateRooms() {
	c.cache.Invalidate(querycache.NewKey("rooms"))
}

// Messages returns a cursor walker over roomID's feed. Pages go through the
// query cache keyed by room, page size and cursor, so multiple walkers share
// in-flight fetches for the same continuation.
func (c *Client) Messages(roomID string, limit int) *pager.Walker {
	return pager.New(func(ctx context.Context, cursor string) (*types.MessagePage, error) {
		key := querycache.NewKey("messages", roomID, strconv.Itoa(limit), cursor)
		return querycache.Fetch(ctx, c.cache, key, messagesStaleTime,
			func(ctx context.Context) (*types.MessagePage, error) {
				messagePagesTotal.Inc()
				return api.ListMessages(ctx, c.http, c.baseURL, roomID, limit, cursor)
			})
	})
}

// InvalidateMessages marks every cached page of roomID's feed stale. The
// feed is pull-based; polling is driven by invalidation, not a socket.
func (c *Client) InvalidateMessages(roomID string) {
	c.cache.InvalidatePrefix(querycache.NewKey("messages", roomID))
}

// NotifyFocus revalidates stale cache entries when the client regains user
// focus.
func (c *Client) NotifyFocus() {
	c.cache.NotifyFocus()
}

// --------------------------------------------------------------------
// Connectivity diagnostics
// --------------------------------------------------------------------

// Livez checks backend liveness. Diagnostics only.
func (c *Client) Livez(ctx context.Context) (*ProbeStatus, error) {
	return api.Livez(ctx, c.http, c.baseURL)
}

// Readyz checks backend readiness. Diagnostics only.
func (c *Client) Readyz(ctx context.Context) (*ProbeStatus, error) {
	return api.Readyz(ctx, c.http, c.baseURL)
}

// errValidation adapts a message to an error without pulling fmt into the
// hot path.
type errValidation string

func (e errValidation) Error() string { return string(e) }
