// Package workpool bounds CPU-heavy work shared by concurrent requests.
package workpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool runs at most n functions at a time.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New returns a pool with n slots; n < 1 is treated as 1.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Size is the number of slots.
func (p *Pool) Size() int { return p.size }

// Do waits for a slot and runs fn in its own goroutine. If ctx ends first,
// Do returns ctx.Err() without waiting for fn; fn should observe ctx too.
// A panic in fn is returned as an error.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("worker panic: %v", r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
