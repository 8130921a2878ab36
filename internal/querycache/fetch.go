package querycache

import (
	"context"
	"fmt"
	"time"
)

// Fetch is the typed front door to Cache.Get. It exists because methods
// cannot be generic; callers get a concrete T back without asserting.
func Fetch[T any](ctx context.Context, c *Cache, key Key, staleTime time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Get(ctx, key, staleTime, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		// Two callers used one key for different types; a programming error.
		return zero, fmt.Errorf("querycache: key %q holds %T, want %T", string(key), v, zero)
	}
	return out, nil
}
