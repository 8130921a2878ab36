// Package querycache is a keyed, stale-time-aware cache of in-flight and
// completed requests with a uniform retry policy.
//
// Guarantees:
//   - at most one underlying request per key: callers arriving while a fetch
//     is in flight join it and receive the same eventual result;
//   - stale-while-revalidate: a stale entry is served immediately while a
//     background refresh runs on the refreshq executor;
//   - completion-order application: every fetch chain is tagged with a
//     per-key generation, and a superseded chain's result is discarded
//     rather than overwriting newer state;
//   - bounded retry: transient failures (5xx, network, timeout) are retried
//     up to MaxRetries times with exponential backoff, the 4xx class never.
//
// Entries are evicted only by process teardown.
package querycache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/lihochat/chatclient/internal/apierror"
	"github.com/lihochat/chatclient/internal/refreshq"
)

// Key identifies one cached request: a logical resource name plus its
// parameters. Build with NewKey so equal parameters always produce equal
// keys.
type Key string

// keySep joins key segments; it cannot appear in URL-safe parameters.
const keySep = '\x1f'

// NewKey derives a cache key from a resource name and its parameters.
func NewKey(resource string, params ...string) Key {
	k := resource
	for _, p := range params {
		k += string(keySep) + p
	}
	return Key(k)
}

// Status is the fetch state of one cache entry.
type Status int

const (
	Idle Status = iota
	Fetching
	Success
	Error
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Fetching:
		return "Fetching"
	case Success:
		return "Success"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Fetcher produces a fresh value for a key.
type Fetcher func(ctx context.Context) (any, error)

// flight is one attempt chain. Joiners wait on done; val/err are set before
// done is closed.
type flight struct {
	gen  uint64
	done chan struct{}
	val  any
	err  error
}

type entry struct {
	status    Status
	value     any
	hasValue  bool
	err       error
	updatedAt time.Time // last success
	staleTime time.Duration
	retries   int // retries used by the current attempt chain
	appliedGn uint64
	nextGen   uint64
	flight    *flight
	fetch     Fetcher // latest fetcher, reused for focus revalidation
}

func (e *entry) stale(now time.Time) bool {
	return !e.hasValue || now.Sub(e.updatedAt) >= e.staleTime
}

// Cache is the process-wide query cache.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry

	cfg  Config
	exec *refreshq.Executor
	log  zerolog.Logger

	// bg outlives individual callers so a consumer teardown never aborts a
	// shared background refresh mid-write.
	bg     context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// New constructs a Cache that schedules background refreshes on exec.
// The executor is shared and remains owned by the caller.
func New(cfg Config, exec *refreshq.Executor, log zerolog.Logger) *Cache {
	cfg.applyDefaults()
	bg, cancel := context.WithCancel(context.Background())
	return &Cache{
		entries: make(map[Key]*entry),
		cfg:     cfg,
		exec:    exec,
		log:     log.With().Str("component", "querycache").Logger(),
		bg:      bg,
		cancel:  cancel,
		now:     time.Now,
	}
}

// Close stops background refresh scheduling. In-flight foreground fetches
// are unaffected; their results are still applied or discarded by
// generation as usual.
func (c *Cache) Close() {
	c.cancel()
}

// Get returns the cached value for key, fetching when needed.
//
// Fresh value → returned immediately. Stale value → returned immediately
// while a background refresh is scheduled. No value → the caller either
// joins the in-flight fetch or runs a new fetch chain in its own goroutine.
func (c *Cache) Get(ctx context.Context, key Key, staleTime time.Duration, fetch Fetcher) (any, error) {
	if staleTime <= 0 {
		staleTime = c.cfg.DefaultStaleTime
	}

	c.mu.Lock()
	e := c.ensureEntry(key)
	e.fetch = fetch
	e.staleTime = staleTime

	if e.hasValue {
		if !e.stale(c.now()) {
			hitsTotal.Inc()
			v := e.value
			c.mu.Unlock()
			return v, nil
		}
		// Serve the stale value now, refresh behind the caller's back.
		staleServedTotal.Inc()
		if e.flight == nil {
			c.scheduleRefreshLocked(key)
		}
		v := e.value
		c.mu.Unlock()
		return v, nil
	}

	if f := e.flight; f != nil {
		// Join the in-flight fetch rather than issuing a duplicate request.
		dedupJoinsTotal.Inc()
		c.mu.Unlock()
		return c.await(ctx, f)
	}

	missesTotal.Inc()
	f := c.startFlightLocked(e)
	c.mu.Unlock()

	val, err := c.runChain(ctx, key, f, fetch)
	c.complete(key, f, val, err)
	return val, err
}

// Invalidate marks key stale and supersedes any in-flight fetch chain for
// it: a chain started before Invalidate completes into the void.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.updatedAt = time.Time{}
	e.flight = nil // detach: the running chain's result will be discarded
}

// InvalidatePrefix invalidates every key under a NewKey-built prefix: the
// exact key plus any key with further parameters appended. A prefix never
// matches across a parameter boundary, so NewKey("messages", "r1") does not
// invalidate "r10" keys.
func (c *Cache) InvalidatePrefix(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := string(prefix)
	for key, e := range c.entries {
		k := string(key)
		if k == p || (strings.HasPrefix(k, p) && k[len(p)] == keySep) {
			e.updatedAt = time.Time{}
			e.flight = nil
		}
	}
}

// NotifyFocus revalidates stale entries when the client regains user focus,
// subject to each entry's staleness window.
func (c *Cache) NotifyFocus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, e := range c.entries {
		if e.hasValue && e.stale(now) && e.flight == nil && e.fetch != nil {
			c.scheduleRefreshLocked(key)
		}
	}
}

// EntryStatus reports the fetch state of key, Idle for unknown keys.
type EntryStatus struct {
	Status     Status
	UpdatedAt  time.Time
	Retries    int
	Stale      bool
	Generation uint64 // generation of the applied value
}

// Status returns the observable state of one entry.
func (c *Cache) Status(key Key) EntryStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return EntryStatus{Status: Idle}
	}
	return EntryStatus{
		Status:     e.status,
		UpdatedAt:  e.updatedAt,
		Retries:    e.retries,
		Stale:      e.stale(c.now()),
		Generation: e.appliedGn,
	}
}

// Len reports how many keys the cache holds.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ------------------------- internals -------------------------

func (c *Cache) ensureEntry(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{status: Idle}
		c.entries[key] = e
	}
	return e
}

// startFlightLocked begins a new attempt chain; the caller holds c.mu.
func (c *Cache) startFlightLocked(e *entry) *flight {
	e.nextGen++
	f := &flight{gen: e.nextGen, done: make(chan struct{})}
	e.flight = f
	e.status = Fetching
	e.retries = 0
	return f
}

// scheduleRefreshLocked submits a background revalidation; the caller holds
// c.mu. The refresh runs under the cache's own context, keyed so refreshq
// keeps at most one chain per key queued behind another.
func (c *Cache) scheduleRefreshLocked(key Key) {
	e := c.entries[key]
	f := c.startFlightLocked(e)
	fetch := e.fetch
	job := refreshq.JobFunc(func(ctx context.Context) error {
		val, err := c.runChain(ctx, key, f, fetch)
		c.complete(key, f, val, err)
		return err
	})
	if err := c.exec.Submit(c.bg, string(key), job); err != nil {
		// Backpressure or shutdown: put the entry back; the next access
		// will try again.
		c.log.Debug().Err(err).Str("key", string(key)).Msg("refresh not scheduled")
		if e.flight == f {
			e.flight = nil
			if e.hasValue {
				e.status = Success
			} else {
				e.status = Idle
			}
		}
	}
}

// await blocks until the joined flight completes or the joiner's own
// context ends. A joiner abort never cancels the shared flight.
func (c *Cache) await(ctx context.Context, f *flight) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, apierror.FromTransport("query", ctx.Err())
	}
}

// runChain executes fetch with the uniform retry policy: up to MaxRetries
// automatic retries for retryable failures, none for the 4xx class. The
// error surfaced after the ceiling is the last attempt's error, never an
// aggregate.
func (c *Cache) runChain(ctx context.Context, key Key, f *flight, fetch Fetcher) (any, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = c.cfg.MaxInterval
	exp.Reset()

	for {
		val, err := fetch(ctx)
		if err == nil {
			return val, nil
		}
		if !apierror.IsRetryable(err) {
			return nil, err
		}

		c.mu.Lock()
		e := c.entries[key]
		superseded := e == nil || e.flight != f
		retries := 0
		if e != nil {
			retries = e.retries
		}
		c.mu.Unlock()
		if superseded || retries >= c.cfg.MaxRetries {
			return nil, err
		}

		c.mu.Lock()
		if e != nil {
			e.retries++
		}
		c.mu.Unlock()
		retriesTotal.Inc()
		c.log.Debug().Str("key", string(key)).Int("retry", retries+1).Err(err).Msg("retrying fetch")

		select {
		case <-time.After(exp.NextBackOff()):
		case <-ctx.Done():
			return nil, err
		}
	}
}

// complete applies a finished chain in completion order: only the entry's
// current flight may write; superseded results are discarded.
func (c *Cache) complete(key Key, f *flight, val any, err error) {
	c.mu.Lock()
	f.val, f.err = val, err
	close(f.done)

	e, ok := c.entries[key]
	if !ok || e.flight != f {
		discardedTotal.Inc()
		c.mu.Unlock()
		c.log.Debug().Str("key", string(key)).Msg("superseded result discarded")
		return
	}
	e.flight = nil
	if err == nil {
		e.value = val
		e.hasValue = true
		e.err = nil
		e.updatedAt = c.now()
		e.status = Success
		e.appliedGn = f.gen
	} else {
		e.err = err
		if e.hasValue {
			// Keep serving the last known value; the error is observable via
			// Status.
			e.status = Success
		} else {
			e.status = Error
		}
	}
	c.mu.Unlock()
}
