package submit

import (
	"sync"
	"time"
)

// cooldownCache remembers the last local submission time per light id for
// anonymous reporters, who have no durable identity the cooldown guard could
// match against. Client-side best effort only; the real guarantee lives in
// the backend.
type cooldownCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*cooldownEntry
	head       *cooldownEntry // most recently used
	tail       *cooldownEntry // least recently used
}

type cooldownEntry struct {
	lightID     string
	submittedAt time.Time
	prev        *cooldownEntry
	next        *cooldownEntry
}

func newCooldownCache(maxEntries int) *cooldownCache {
	return &cooldownCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*cooldownEntry),
	}
}

// recent reports whether a locally recorded submission for the light still
// belongs to the open cycle, i.e. is after the cycle boundary.
func (c *cooldownCache) recent(lightID string, cycleBoundary time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[lightID]
	if !ok {
		return false
	}
	c.moveToFront(e)
	return e.submittedAt.After(cycleBoundary)
}

// record stores the submission time for a light, evicting the least recently
// used entry past capacity.
func (c *cooldownCache) record(lightID string, submittedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[lightID]; ok {
		e.submittedAt = submittedAt
		c.moveToFront(e)
		return
	}

	e := &cooldownEntry{lightID: lightID, submittedAt: submittedAt}
	c.entries[lightID] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *cooldownCache) moveToFront(e *cooldownEntry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *cooldownCache) addToFront(e *cooldownEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *cooldownCache) remove(e *cooldownEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *cooldownCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.lightID)
	c.remove(c.tail)
}
