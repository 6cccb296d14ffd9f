// internal/workpool/pool.go
package workpool

import (
	"context"
	"runtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Pool bounds how many blocking jobs (script evaluation, browser sessions)
// run at once across all concurrent ladder runs.
type Pool struct {
	name string
	size int64
	sem  *semaphore.Weighted
}

// New creates a pool with the given number of slots
func New(name string, size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if size > 50 {
		size = 50 // Max 50 slots to avoid overwhelming the host
	}
	return &Pool{
		name: name,
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
	}
}

// Size returns the number of slots
func (p *Pool) Size() int {
	return int(p.size)
}

// Do waits for a free slot and runs fn in the calling goroutine. It returns
// ctx.Err() without running fn if ctx ends while waiting.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		log.Debug().Str("pool", p.name).Err(err).Msg("Gave up waiting for worker slot")
		return err
	}
	defer p.sem.Release(1)
	return fn(ctx)
}

// Submit is Do for jobs that produce a value
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}
