package refreshq

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type noopJob struct{}

func (noopJob) Run(context.Context) error { return nil }

func newExec(cfg Config) *Executor { return NewExecutor(cfg, zerolog.Nop()) }

func TestExecutor_SubmitAndStop(t *testing.T) {
	t.Parallel()
	exec := newExec(Config{})
	defer exec.Stop()

	if err := exec.Submit(context.Background(), "rooms", noopJob{}); err != nil {
		t.Fatalf("submit error: %v", err)
	}
}

// FIFO ordering for a single key.
func TestExecutor_FIFOOrdering(t *testing.T) {
	t.Parallel()
	p := newExec(Config{Shards: 4, QueueSize: 10})
	defer p.Stop()

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	wg.Add(5)
	for i := 0; i < 5; i++ {
		v := i
		if err := p.Submit(context.Background(), "rooms", JobFunc(func(context.Context) error {
			mu.Lock()
			order = append(order, v)
			mu.Unlock()
			wg.Done()
			return nil
		})); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for jobs")
	}

	for i, v := range order {
		if i != v {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

// Refreshes for different keys run in parallel (no head-of-line blocking).
func TestExecutor_ParallelDifferentKeys(t *testing.T) {
	t.Parallel()
	p := newExec(Config{Shards: 4, QueueSize: 10})
	defer p.Stop()

	start := make(chan struct{})
	done := make(chan struct{})

	_ = p.Submit(context.Background(), "A", JobFunc(func(context.Context) error {
		<-start
		close(done)
		return nil
	}))
	_ = p.Submit(context.Background(), "B", JobFunc(func(context.Context) error {
		close(start)
		<-done
		return nil
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("jobs blocked each other; expected parallelism")
	}
}

func TestExecutor_QueueFull(t *testing.T) {
	t.Parallel()
	exec := newExec(Config{Shards: 1, QueueSize: 1, EnqueueTimeout: 10 * time.Millisecond})
	defer exec.Stop()

	blockCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var started int32
	_ = exec.Submit(context.Background(), "same", JobFunc(func(context.Context) error {
		atomic.StoreInt32(&started, 1)
		<-blockCtx.Done()
		return nil
	}))
	for atomic.LoadInt32(&started) == 0 {
		time.Sleep(time.Millisecond)
	}

	// Fill the buffer, then expect backpressure.
	_ = exec.Submit(context.Background(), "same", noopJob{})
	err := exec.Submit(context.Background(), "same", noopJob{})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	var qf *QueueFullError
	if !errors.As(err, &qf) || qf.Capacity != 1 {
		t.Fatalf("expected *QueueFullError with capacity 1, got %v", err)
	}
}

// Submit should return ctx.Err when the caller context is canceled while
// waiting for a full queue.
func TestSubmit_ContextCanceledWhileWaiting(t *testing.T) {
	t.Parallel()
	ex := newExec(Config{Shards: 1, QueueSize: 1, EnqueueTimeout: time.Second})
	defer ex.Stop()

	blockCtx, cancelBlock := context.WithCancel(context.Background())
	var started int32
	if err := ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
		atomic.StoreInt32(&started, 1)
		<-blockCtx.Done()
		return nil
	})); err != nil {
		t.Fatalf("submit block job: %v", err)
	}
	for atomic.LoadInt32(&started) == 0 {
		time.Sleep(time.Millisecond)
	}
	_ = ex.Submit(context.Background(), "k", noopJob{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ex.Submit(ctx, "k", noopJob{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	cancelBlock()
}

// A canceled job is skipped outright, never half-run.
func TestExecutor_CanceledJobSkipped(t *testing.T) {
	t.Parallel()
	ex := newExec(Config{Shards: 1, QueueSize: 4})
	defer ex.Stop()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	var ran int32
	_ = ex.Submit(context.Background(), "k", noopJob{}) // keep worker busy ordering
	if err := ex.Submit(canceled, "k", JobFunc(func(context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	})); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := ex.Barrier(context.Background(), "k"); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if atomic.LoadInt32(&ran) != 0 {
		t.Fatal("canceled job must not run")
	}
}

func TestExecutor_SubmitAfterStop(t *testing.T) {
	t.Parallel()
	p := newExec(Config{Shards: 2, QueueSize: 2})
	p.Stop()

	if err := p.Submit(context.Background(), "Z", noopJob{}); !errors.Is(err, ErrExecutorClosed) {
		t.Fatalf("expected ErrExecutorClosed, got %v", err)
	}
}

// Stop racing with many concurrent Submit calls should never panic or deadlock.
func TestExecutor_StopSubmit_RaceFree(t *testing.T) {
	t.Parallel()
	p := newExec(Config{Shards: 4, QueueSize: 32})

	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Submit(context.Background(), "k", noopJob{})
		}()
	}
	go p.Stop()
	wg.Wait()
}

// A panicking job must not take down its shard worker.
func TestExecutor_JobPanicContained(t *testing.T) {
	t.Parallel()
	ex := newExec(Config{Shards: 1, QueueSize: 4})
	defer ex.Stop()

	if err := ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
		panic("job panic")
	})); err != nil {
		t.Fatalf("submit panic job: %v", err)
	}

	ran := make(chan struct{})
	if err := ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
		close(ran)
		return nil
	})); err != nil {
		t.Fatalf("submit follow-up: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("shard did not continue after job panic")
	}
}

func TestExecutor_ErrorHandlerReceivesFailures(t *testing.T) {
	t.Parallel()
	errs := make(chan error, 1)
	ex := newExec(Config{Shards: 1, QueueSize: 4, ErrorHandler: func(err error) { errs <- err }})
	defer ex.Stop()

	want := errors.New("refresh failed")
	_ = ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error { return want }))

	select {
	case got := <-errs:
		if !errors.Is(got, want) {
			t.Fatalf("handler got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("error handler not invoked")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("RQ_SHARDS", "8")
	t.Setenv("RQ_QUEUE_SIZE", "256")
	t.Setenv("RQ_ENQUEUE_TIMEOUT", "250ms")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Shards != 8 || cfg.QueueSize != 256 {
		t.Fatalf("unexpected Shards/QueueSize: %+v", cfg)
	}
	if cfg.EnqueueTimeout.String() != "250ms" {
		t.Fatalf("unexpected EnqueueTimeout: %v", cfg.EnqueueTimeout)
	}
}
