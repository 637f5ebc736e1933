// Package cache holds fetched remote lines. A LineCache is write-once and is
// shared by every view of the same remote file.
package cache

import "sync"

// Subscriber is called after new lines have been stored.
type Subscriber func(c *LineCache)

// LineCache maps absolute (1-based) line numbers to their content. Entries
// are never overwritten or removed.
type LineCache struct {
	path string

	// mu guards lines; every view sharing this cache goes through it.
	mu    sync.RWMutex
	lines map[int]string

	subMu  sync.Mutex
	nextID uint64
	subs   map[uint64]Subscriber
}

// NewLineCache returns an empty cache for path.
func NewLineCache(path string) *LineCache {
	return &LineCache{
		path:  path,
		lines: make(map[int]string),
		subs:  make(map[uint64]Subscriber),
	}
}

// Path returns the remote path the cache belongs to.
func (c *LineCache) Path() string {
	return c.path
}

// Has reports whether line n is cached.
func (c *LineCache) Has(n int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.lines[n]
	return ok
}

// At returns the content of line n.
func (c *LineCache) At(n int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	content, ok := c.lines[n]
	return content, ok
}

// Put stores line n unless it is already present. It reports whether the
// line was stored.
func (c *LineCache) Put(n int, content string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.put(n, content)
}

// PutRun stores lines as the consecutive run starting at first, returning
// how many were new.
func (c *LineCache) PutRun(first int, lines []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for i, content := range lines {
		if c.put(first+i, content) {
			added++
		}
	}
	return added
}

func (c *LineCache) put(n int, content string) bool {
	if _, ok := c.lines[n]; ok {
		return false
	}
	c.lines[n] = content
	return true
}

// Len returns the number of cached lines.
func (c *LineCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lines)
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription and is safe to call more than once, including
// from inside fn.
func (c *LineCache) Subscribe(fn Subscriber) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// Subscribers returns the number of live subscriptions.
func (c *LineCache) Subscribers() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subs)
}

// Notify calls every subscriber with the cache. Subscribers run outside the
// subscription lock.
func (c *LineCache) Notify() {
	c.subMu.Lock()
	subs := make([]Subscriber, 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(c)
	}
}
