package querycache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lihochat/chatclient/internal/apierror"
	"github.com/lihochat/chatclient/internal/refreshq"
)

func newTestCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	exec := refreshq.NewExecutor(refreshq.Config{Shards: 2, QueueSize: 16}, zerolog.Nop())
	t.Cleanup(exec.Stop)
	c := New(cfg, exec, zerolog.Nop())
	t.Cleanup(c.Close)
	return c
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestGet_FreshHitSkipsFetch(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{})
	var calls int32
	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "v1", nil
	}

	key := NewKey("rooms")
	for i := 0; i < 3; i++ {
		v, err := c.Get(context.Background(), key, time.Minute, fetch)
		if err != nil || v != "v1" {
			t.Fatalf("get %d: v=%v err=%v", i, v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1", calls)
	}
	if st := c.Status(key); st.Status != Success || st.Stale {
		t.Fatalf("status: %+v", st)
	}
}

func TestGet_DeduplicatesConcurrentCallers(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{})
	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	key := NewKey("rooms")
	const n = 8
	var wg sync.WaitGroup
	results := make([]any, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), key, time.Minute, fetch)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
			}
			results[i] = v
		}(i)
	}

	eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, "fetch did not start")
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1 (dedup)", calls)
	}
	for i, v := range results {
		if v != "shared" {
			t.Fatalf("caller %d got %v", i, v)
		}
	}
}

func TestGet_StaleWhileRevalidate(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{})
	now := time.Now()
	var mu sync.Mutex
	c.now = func() time.Time { mu.Lock(); defer mu.Unlock(); return now }

	var calls int32
	fetch := func(context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return "old", nil
		}
		return "new", nil
	}

	key := NewKey("rooms")
	if v, _ := c.Get(context.Background(), key, 30*time.Second, fetch); v != "old" {
		t.Fatalf("first get: %v", v)
	}

	// Cross the staleness window.
	mu.Lock()
	now = now.Add(31 * time.Second)
	mu.Unlock()

	// Stale access serves the old value immediately.
	v, err := c.Get(context.Background(), key, 30*time.Second, fetch)
	if err != nil || v != "old" {
		t.Fatalf("stale get: v=%v err=%v", v, err)
	}

	// The background refresh replaces it.
	eventually(t, func() bool {
		v, _ := c.Get(context.Background(), key, 30*time.Second, fetch)
		return v == "new"
	}, "background revalidation never applied")
}

func TestRunChain_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{BaseBackoff: time.Millisecond, MaxInterval: 2 * time.Millisecond})
	var calls int32
	fetch := func(context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			return nil, apierror.FromResponse("list rooms", 503, nil)
		}
		return "ok", nil
	}

	v, err := c.Get(context.Background(), NewKey("rooms"), time.Minute, fetch)
	if err != nil || v != "ok" {
		t.Fatalf("v=%v err=%v", v, err)
	}
	if calls != 3 {
		t.Fatalf("fetch called %d times, want 3", calls)
	}
}

func TestRunChain_TimeoutSurfacesSingleErrorAfterCeiling(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{BaseBackoff: time.Millisecond, MaxInterval: 2 * time.Millisecond})
	var calls int32
	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, apierror.FromTransport("list rooms", context.DeadlineExceeded)
	}

	key := NewKey("rooms")
	_, err := c.Get(context.Background(), key, time.Minute, fetch)
	if calls != 3 {
		t.Fatalf("fetch called %d times, want 1 + 2 retries", calls)
	}
	ae, ok := apierror.As(err)
	if !ok || !ae.IsTimeout {
		t.Fatalf("want exactly one timeout ApiError, got %v", err)
	}
	if st := c.Status(key); st.Retries != 2 {
		t.Fatalf("retries recorded: %+v", st)
	}
}

func TestRunChain_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{BaseBackoff: time.Millisecond})
	for _, status := range []int{400, 401, 403, 404, 429} {
		var calls int32
		fetch := func(context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			return nil, apierror.FromResponse("x", status, nil)
		}
		_, err := c.Get(context.Background(), NewKey("k", strconv.Itoa(status)), time.Minute, fetch)
		if err == nil {
			t.Fatalf("status %d: expected error", status)
		}
		if calls != 1 {
			t.Fatalf("status %d: fetch called %d times, want 1", status, calls)
		}
	}
}

func TestComplete_SupersededResultDiscarded(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{})
	key := NewKey("rooms")

	block := make(chan struct{})
	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		_, _ = c.Get(context.Background(), key, time.Minute, func(context.Context) (any, error) {
			<-block
			return "stale-result", nil
		})
	}()
	eventually(t, func() bool { return c.Status(key).Status == Fetching }, "slow chain never started")

	// A newer chain supersedes the slow one.
	c.Invalidate(key)
	v, err := c.Get(context.Background(), key, time.Minute, func(context.Context) (any, error) {
		return "fresh-result", nil
	})
	if err != nil || v != "fresh-result" {
		t.Fatalf("fresh get: v=%v err=%v", v, err)
	}

	// Let the stale chain complete; its write must be discarded.
	close(block)
	<-slowDone
	v, err = c.Get(context.Background(), key, time.Minute, func(context.Context) (any, error) {
		t.Error("unexpected refetch")
		return nil, nil
	})
	if err != nil || v != "fresh-result" {
		t.Fatalf("stale result overwrote newer state: v=%v err=%v", v, err)
	}
}

func TestNotifyFocus_RevalidatesStaleEntries(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{})
	now := time.Now()
	var mu sync.Mutex
	c.now = func() time.Time { mu.Lock(); defer mu.Unlock(); return now }

	var calls int32
	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}
	key := NewKey("rooms")
	if _, err := c.Get(context.Background(), key, 30*time.Second, fetch); err != nil {
		t.Fatal(err)
	}

	// Focus within the window: nothing to do.
	c.NotifyFocus()
	time.Sleep(10 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("fresh entry refetched on focus: %d calls", calls)
	}

	mu.Lock()
	now = now.Add(31 * time.Second)
	mu.Unlock()
	c.NotifyFocus()
	eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, "stale entry not revalidated on focus")
}

func TestAwait_JoinerAbortNormalized(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{})
	key := NewKey("rooms")

	block := make(chan struct{})
	defer close(block)
	go func() {
		_, _ = c.Get(context.Background(), key, time.Minute, func(context.Context) (any, error) {
			<-block
			return "v", nil
		})
	}()
	eventually(t, func() bool { return c.Status(key).Status == Fetching }, "chain never started")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(ctx, key, time.Minute, func(context.Context) (any, error) { return "v", nil })
	ae, ok := apierror.As(err)
	if !ok || !ae.IsNetworkError {
		t.Fatalf("joiner abort must normalize, got %v", err)
	}
}

func TestNewKey_Distinguishes(t *testing.T) {
	t.Parallel()
	if NewKey("messages", "r1", "20") == NewKey("messages", "r1", "21") {
		t.Fatal("distinct params must yield distinct keys")
	}
	if NewKey("messages", "r1", "20") != NewKey("messages", "r1", "20") {
		t.Fatal("equal params must yield equal keys")
	}
}

func TestInvalidatePrefix_RespectsParameterBoundaries(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{})
	fetch := func(v string) Fetcher {
		return func(context.Context) (any, error) { return v, nil }
	}
	k1 := NewKey("messages", "r1", "20")
	k10 := NewKey("messages", "r10", "20")
	if _, err := c.Get(context.Background(), k1, time.Minute, fetch("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(context.Background(), k10, time.Minute, fetch("b")); err != nil {
		t.Fatal(err)
	}

	c.InvalidatePrefix(NewKey("messages", "r1"))
	if st := c.Status(k1); !st.Stale {
		t.Fatalf("r1 entry should be stale: %+v", st)
	}
	if st := c.Status(k10); st.Stale {
		t.Fatalf("r10 entry must not be invalidated: %+v", st)
	}
}

func TestFetch_TypeMismatch(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{})
	key := NewKey("rooms")
	if _, err := Fetch(context.Background(), c, key, time.Minute, func(context.Context) (string, error) {
		return "v", nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := Fetch(context.Background(), c, key, time.Minute, func(context.Context) (int, error) {
		return 1, nil
	}); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestErrorKeepsLastKnownValue(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{BaseBackoff: time.Millisecond, MaxInterval: time.Millisecond})
	now := time.Now()
	var mu sync.Mutex
	c.now = func() time.Time { mu.Lock(); defer mu.Unlock(); return now }

	var calls int32
	fetch := func(context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "good", nil
		}
		return nil, apierror.FromResponse("x", 500, nil)
	}
	key := NewKey("rooms")
	if _, err := c.Get(context.Background(), key, 30*time.Second, fetch); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	now = now.Add(31 * time.Second)
	mu.Unlock()

	// Stale value still served while the failing refresh burns out.
	v, err := c.Get(context.Background(), key, 30*time.Second, fetch)
	if err != nil || v != "good" {
		t.Fatalf("v=%v err=%v", v, err)
	}
	eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 4 }, "refresh chain never ran")
	if v, err := c.Get(context.Background(), key, 30*time.Second, fetch); err != nil || v != "good" {
		t.Fatalf("failed refresh clobbered value: v=%v err=%v", v, err)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("QC_DEFAULT_STALE_TIME", "45s")
	t.Setenv("QC_MAX_RETRIES", "1")
	t.Setenv("QC_BASE_BACKOFF", "50ms")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.DefaultStaleTime != 45*time.Second || cfg.MaxRetries != 1 || cfg.BaseBackoff != 50*time.Millisecond {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestGet_FetcherErrorIsCallerVisibleOnce(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, Config{BaseBackoff: time.Millisecond})
	wantErr := apierror.FromResponse("x", 404, nil)
	_, err := c.Get(context.Background(), NewKey("missing"), time.Minute, func(context.Context) (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("error not surfaced verbatim: %v", err)
	}
	if st := c.Status(NewKey("missing")); st.Status != Error {
		t.Fatalf("status: %+v", st)
	}
}
