package refreshq

import (
	"errors"
	"fmt"
)

// ErrExecutorClosed is returned by Submit after Stop.
var ErrExecutorClosed = errors.New("refreshq: executor closed")

// ErrQueueFull is the sentinel wrapped by *QueueFullError.
var ErrQueueFull = errors.New("refreshq: queue full")

// QueueFullError reports backpressure on one shard.
type QueueFullError struct {
	Shard    int
	Length   int
	Capacity int
}

// Error implements the error interface.
func (e *QueueFullError) Error() string {
	return fmt.Sprintf("refreshq: shard %d full (%d/%d)", e.Shard, e.Length, e.Capacity)
}

// Unwrap lets errors.Is(err, ErrQueueFull) match.
func (e *QueueFullError) Unwrap() error { return ErrQueueFull }
