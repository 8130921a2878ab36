// Package session owns the access token and the identity it resolves to.
// Exactly one Manager exists per running client; the rest of the system sees
// it only through the read-only snapshot accessors, the token accessor handed
// to the transport, and the explicit Bootstrap/Login/Logout operations.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lihochat/chatclient/internal/api"
	"github.com/lihochat/chatclient/internal/apierror"
	"github.com/lihochat/chatclient/internal/types"
)

// loginCooldown is how long login attempts are rejected locally after the
// backend answers 429.
const loginCooldown = 10 * time.Second

// Snapshot is a read-only view of the session at one instant.
type Snapshot struct {
	Phase    Phase
	Token    string
	Identity *types.UserProfile
}

// Observer is called after every phase or token change, outside the
// manager's lock. The latest value is always obtainable via Snapshot.
type Observer func(Snapshot)

// Manager is the session state machine.
type Manager struct {
	mu            sync.RWMutex
	phase         Phase
	token         string
	identity      *types.UserProfile
	cooldownUntil time.Time
	observers     []Observer

	store TokenStore
	httpc *http.Client
	base  string
	log   zerolog.Logger
	now   func() time.Time
}

// NewManager creates a Manager in the Bootstrapping phase. The transport
// must be attached with Bind before Bootstrap or Login are called.
func NewManager(store TokenStore, log zerolog.Logger) *Manager {
	return &Manager{
		phase: Bootstrapping,
		store: store,
		log:   log.With().Str("component", "session").Logger(),
		now:   time.Now,
	}
}

// Bind attaches the shared HTTP client and base URL. The client is expected
// to carry the bearer wrapper whose token accessor is this manager's Token
// method, so a token change is visible to the very next outgoing request.
func (m *Manager) Bind(httpc *http.Client, baseURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.httpc = httpc
	m.base = baseURL
}

// Token is the accessor handed to the transport wrapper. An empty string
// means "send the request unauthenticated".
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{Phase: m.phase, Token: m.token, Identity: m.identity}
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// Identity returns the validated profile, or nil outside Authenticated.
func (m *Manager) Identity() *types.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

// Subscribe registers an observer for phase/token changes.
func (m *Manager) Subscribe(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Bootstrap validates any persisted token once at startup. It never returns
// an error: every failure path resolves to Anonymous. When no token is
// persisted, no network call is made.
func (m *Manager) Bootstrap(ctx context.Context) Phase {
	tok, err := m.store.Load()
	if err != nil {
		m.log.Debug().Err(err).Msg("token store unreadable, starting anonymous")
		tok = ""
	}
	if tok == "" {
		m.transition(Anonymous, "", nil)
		return Anonymous
	}

	// Expose the token to the transport before validating it.
	m.setToken(tok)
	profile, err := api.Me(ctx, m.httpc, m.base)
	if err != nil || profile.ID == "" {
		if err != nil {
			m.log.Debug().Err(err).Msg("persisted token rejected")
		}
		_ = m.store.Clear()
		m.transition(Anonymous, "", nil)
		return Anonymous
	}

	m.transition(Authenticated, tok, profile)
	return Authenticated
}

// Login exchanges credentials for a token, persists it and resolves the
// identity. On any failure the session is left exactly as it was and the
// normalized error is returned for presentation; translating status classes
// into user-facing copy is the caller's concern.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if remaining := m.CooldownRemaining(); remaining > 0 {
		return &apierror.Error{
			StatusCode: http.StatusTooManyRequests,
			Code:       "login_cooldown",
			Message:    "too many attempts, retry after cooldown",
		}
	}

	prev := m.Snapshot()

	res, err := api.Login(ctx, m.httpc, m.base, email, password)
	if err != nil {
		if apierror.IsRateLimited(err) {
			m.startCooldown()
		}
		return err
	}

	if err := m.store.Save(res.AccessToken); err != nil {
		// Keep the session usable in memory even if persistence fails.
		m.log.Warn().Err(err).Msg("token persist failed")
	}
	// The new token must win for every request from here on, including the
	// identity fetch below.
	m.setToken(res.AccessToken)

	profile, err := api.Me(ctx, m.httpc, m.base)
	if err == nil && profile.ID == "" {
		err = &apierror.Error{Message: "login succeeded but identity is empty"}
	}
	if err != nil {
		// Roll the session back so a half-completed login is indistinguishable
		// from a failed one.
		_ = m.store.Clear()
		if prev.Token != "" {
			_ = m.store.Save(prev.Token)
		}
		m.transition(prev.Phase, prev.Token, prev.Identity)
		return err
	}

	m.transition(Authenticated, res.AccessToken, profile)
	return nil
}

// Logout clears the identity, the token and the persisted token. It is
// synchronous, unconditional and never fails.
func (m *Manager) Logout() {
	_ = m.store.Clear()
	m.transition(Anonymous, "", nil)
}

// CooldownRemaining reports how long login attempts are still rejected
// locally, zero when none is active.
func (m *Manager) CooldownRemaining() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d := m.cooldownUntil.Sub(m.now()); d > 0 {
		return d
	}
	return 0
}

func (m *Manager) startCooldown() {
	m.mu.Lock()
	m.cooldownUntil = m.now().Add(loginCooldown)
	m.mu.Unlock()
	m.log.Debug().Dur("cooldown", loginCooldown).Msg("rate limited, login cooldown started")
}

func (m *Manager) setToken(tok string) {
	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()
}

func (m *Manager) transition(p Phase, tok string, id *types.UserProfile) {
	m.mu.Lock()
	m.phase = p
	m.token = tok
	m.identity = id
	obs := make([]Observer, len(m.observers))
	copy(obs, m.observers)
	snap := Snapshot{Phase: p, Token: tok, Identity: id}
	m.mu.Unlock()

	m.log.Debug().Stringer("phase", p).Bool("identity", id != nil).Msg("session transition")
	for _, fn := range obs {
		fn(snap)
	}
}
