package api

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// workerPool bounds the number of portal round-trips in flight. Handlers
// block on it rather than spawning unbounded logins against the gateway.
type workerPool struct {
	sem *semaphore.Weighted
}

func newWorkerPool(n int) *workerPool {
	if n < 1 {
		n = 1
	}
	return &workerPool{sem: semaphore.NewWeighted(int64(n))}
}

// do runs fn once a slot is free. It returns ctx's error if the request is
// cancelled while waiting.
func (p *workerPool) do(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	fn()
	return nil
}
