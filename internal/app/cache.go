package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/okian/ctfboard/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// cache holds one computed view for ttl. Concurrent misses share a single
// computation. A load that started before reset is returned to its callers
// but never stored.
type cache[T any] struct {
	name string
	ttl  time.Duration
	now  func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	value   T
	expires time.Time
	filled  bool
	gen     uint64
}

func (c *cache[T]) setClock(now func() time.Time) { c.now = now }

func (c *cache[T]) get(ctx context.Context, load func(context.Context) (T, error)) (T, error) {
	c.mu.RLock()
	gen := c.gen
	if c.ttl > 0 && c.filled && c.now().Before(c.expires) {
		v := c.value
		c.mu.RUnlock()
		metrics.RecordCacheLookup(c.name, true)
		return v, nil
	}
	c.mu.RUnlock()
	metrics.RecordCacheLookup(c.name, false)

	v, err, _ := c.group.Do(c.name+"/"+strconv.FormatUint(gen, 10), func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			if c.gen == gen {
				c.value, c.expires, c.filled = v, c.now().Add(c.ttl), true
			}
			c.mu.Unlock()
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *cache[T]) reset() {
	c.mu.Lock()
	var zero T
	c.value, c.filled = zero, false
	c.gen++
	c.mu.Unlock()
}
