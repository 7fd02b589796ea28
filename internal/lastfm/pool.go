// file: internal/lastfm/pool.go
// version: 1.0.0
// guid: 996d54f6-35b8-40ae-a2c1-961dec35333e

package lastfm

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultPoolSize caps simultaneous outbound requests when no pool is given.
const DefaultPoolSize = 4

// Pool bounds the number of in-flight requests to the service. One Pool is
// meant to be shared by every client talking to the same API key.
type Pool struct {
	size    int64
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithRateLimit additionally spaces request starts to at most rps per second.
// A non-positive rps leaves starts unthrottled.
func WithRateLimit(rps float64, burst int) PoolOption {
	return func(p *Pool) {
		if rps <= 0 {
			p.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewPool creates a pool with size slots. Sizes below one become one.
func NewPool(size int, opts ...PoolOption) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the number of slots.
func (p *Pool) Size() int { return int(p.size) }

// Acquire blocks until a slot is free (and the rate limiter admits the
// request) or ctx is done. The returned release func frees the slot; calling
// it more than once is harmless.
func (p *Pool) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			p.sem.Release(1)
			return nil, err
		}
	}
	var once sync.Once
	return func() {
		once.Do(func() { p.sem.Release(1) })
	}, nil
}
