// ABOUTME: TTL cache of recently seen mesh packet IDs.
// ABOUTME: A flood-routed packet heard from several neighbors is processed once.

package dedupe

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
)

// sweepInterval is how often expired packet IDs are swept out in the
// background. Eviction on insert keeps the cache bounded between sweeps.
const sweepInterval = 30 * time.Second

type entry struct {
	seenAt time.Time
	elem   *list.Element
}

// Cache remembers which packet IDs have been seen within a TTL window, so a
// flood packet relayed by several neighbors is handled and re-broadcast only
// once. Size-bounded: when full, the oldest ID is dropped to admit a new one.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int

	byID  map[uuid.UUID]*entry
	order *list.List // packet IDs in arrival order, oldest at the front

	done   chan struct{}
	closed bool
}

// New returns a cache holding at most maxSize packet IDs for ttl each, with
// a background sweeper. Close releases the sweeper.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		byID:    make(map[uuid.UUID]*entry),
		order:   list.New(),
		done:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// CheckAndMark reports whether id was already seen inside the TTL window,
// marking it as seen either way. The check and mark are one critical
// section: two neighbors delivering the same packet concurrently still get
// exactly one false.
func (c *Cache) CheckAndMark(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.byID[id]; ok && time.Since(e.seenAt) < c.ttl {
		return true
	}
	c.remember(id)
	return false
}

// Mark records id as seen without checking it. Used for packets this node
// originated, so the looped-back broadcast is dropped on receive.
func (c *Cache) Mark(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remember(id)
}

// remember inserts or refreshes id. Must be called with mu held.
func (c *Cache) remember(id uuid.UUID) {
	if e, ok := c.byID[id]; ok {
		e.seenAt = time.Now()
		c.order.MoveToBack(e.elem)
		return
	}
	if len(c.byID) >= c.maxSize {
		c.dropOldest()
	}
	c.byID[id] = &entry{
		seenAt: time.Now(),
		elem:   c.order.PushBack(id),
	}
}

// dropOldest evicts the longest-held ID. Must be called with mu held.
func (c *Cache) dropOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	c.order.Remove(front)
	delete(c.byID, front.Value.(uuid.UUID))
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep drops every ID whose TTL window has passed.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, e := range c.byID {
		if now.Sub(e.seenAt) >= c.ttl {
			c.order.Remove(e.elem)
			delete(c.byID, id)
		}
	}
}

// Len returns how many packet IDs are currently held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID)
}

// Close stops the background sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
