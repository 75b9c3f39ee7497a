// Package cache holds derived values (match scores, team season stats) keyed
// by their inputs. Concurrent misses for one key share a single computation,
// and invalidation guarantees that a computation started before it can never
// store a stale value after it.
package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL            = 300 * time.Second
	DefaultMaxEntries     = 2000
	DefaultComputeTimeout = 10 * time.Second
)

// ErrComputeTimeout is returned when a compute function outlives its budget.
var ErrComputeTimeout = errors.New("cache compute timed out")

// ComputeFunc produces the value for a key on a miss.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

type Options struct {
	TTL            time.Duration
	MaxEntries     int
	ComputeTimeout time.Duration
	Now            func() time.Time
}

// Stats is a snapshot of cache counters for the health endpoint.
type Stats struct {
	Name    string  `json:"name"`
	Size    int     `json:"size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// Cache is a TTL + LRU map with coalesced computation. Safe for concurrent use.
type Cache[K comparable, V any] struct {
	name string
	opts Options

	mu      sync.Mutex
	items   map[K]*list.Element
	order   *list.List   // front = most recently used
	gens    map[K]uint64 // bumped by Invalidate; grows with distinct invalidated keys
	epoch   uint64       // bumped by Clear
	hits    uint64
	misses  uint64
	flights singleflight.Group
}

func New[K comparable, V any](name string, opts Options) *Cache[K, V] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.ComputeTimeout <= 0 {
		opts.ComputeTimeout = DefaultComputeTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache[K, V]{
		name:  name,
		opts:  opts,
		items: make(map[K]*list.Element),
		order: list.New(),
		gens:  make(map[K]uint64),
	}
}

// Get returns the cached value, if present and fresh.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(key)
}

func (c *Cache[K, V]) lookupLocked(key K) (V, bool) {
	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if !c.opts.Now().Before(e.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// GetOrCompute returns the cached value or runs compute exactly once for all
// concurrent callers of the same key. A caller whose ctx ends stops waiting,
// but the shared computation continues for the others. Errors are never
// cached.
func (c *Cache[K, V]) GetOrCompute(ctx context.Context, key K, compute ComputeFunc[V]) (V, error) {
	var zero V

	c.mu.Lock()
	if v, ok := c.lookupLocked(key); ok {
		c.hits++
		c.mu.Unlock()
		return v, nil
	}
	c.misses++
	gen, epoch := c.gens[key], c.epoch
	c.mu.Unlock()

	// Invalidation bumps the generation, so each generation gets its own flight.
	flightKey := fmt.Sprintf("%v#%d.%d", key, epoch, gen)
	ch := c.flights.DoChan(flightKey, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.ComputeTimeout)
		defer cancel()

		v, err := compute(cctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && cctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s %v", ErrComputeTimeout, c.name, key)
			}
			return nil, err
		}
		c.storeIfCurrent(key, epoch, gen, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// storeIfCurrent drops the value when the key was invalidated mid-compute.
func (c *Cache[K, V]) storeIfCurrent(key K, epoch, gen uint64, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.gens[key] != gen {
		return
	}
	c.setLocked(key, v)
}

// Set stores a value directly, replacing any previous one.
func (c *Cache[K, V]) Set(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, v)
}

func (c *Cache[K, V]) setLocked(key K, v V) {
	expires := c.opts.Now().Add(c.opts.TTL)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = v
		e.expiresAt = expires
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: v, expiresAt: expires})
	for c.order.Len() > c.opts.MaxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[K, V]).key)
	}
}

// Invalidate removes the key and fences off any computation already running
// for it. Subsequent reads recompute from current data.
func (c *Cache[K, V]) Invalidate(keys ...K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		if el, ok := c.items[key]; ok {
			c.order.Remove(el)
			delete(c.items, key)
		}
		c.gens[key]++
	}
}

// Clear drops every entry and fences all running computations.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.items = make(map[K]*list.Element)
	c.order.Init()
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{Name: c.name, Size: c.order.Len(), Hits: c.hits, Misses: c.misses}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
