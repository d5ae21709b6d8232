package imageload

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"imagehub/pkg/models"
)

// flight is the shared context of one in-flight load. It is cancelled
// once every caller waiting on it has given up.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// coalescer runs at most one load per key at a time and fans the result
// out to every caller that asked for the same key meanwhile.
type coalescer struct {
	group singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

func newCoalescer() *coalescer {
	return &coalescer{flights: make(map[string]*flight)}
}

// do returns the result of load for key. A caller whose ctx ends first
// returns ctx.Err(); the load keeps running for the remaining callers and
// is cancelled only when none are left.
func (c *coalescer) do(ctx context.Context, key string, load func(context.Context) (*models.CachedImage, error)) (*models.CachedImage, bool, error) {
	c.mu.Lock()
	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	ch := c.group.DoChan(key, func() (any, error) {
		img, err := load(f.ctx)
		c.mu.Lock()
		if c.flights[key] == f {
			delete(c.flights, key)
		}
		c.mu.Unlock()
		f.cancel()
		return img, err
	})
	c.mu.Unlock()

	select {
	case res := <-ch:
		c.leave(key, f, false)
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		return res.Val.(*models.CachedImage), res.Shared, nil
	case <-ctx.Done():
		c.leave(key, f, true)
		return nil, false, ctx.Err()
	}
}

// leave drops one waiter. The last waiter out cancels the flight; if it
// gave up early the key is also forgotten so the next caller starts a
// fresh load instead of joining the cancelled one.
func (c *coalescer) leave(key string, f *flight, abandoned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
	}
	if abandoned {
		c.group.Forget(key)
	}
}

// inFlight reports how many keys currently have a load running.
func (c *coalescer) inFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.flights)
}
