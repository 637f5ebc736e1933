package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

type entry struct {
	lines *LineCache
	refs  int
}

// Registry hands out one LineCache per remote file and drops it once the
// last view using it releases it.
type Registry struct {
	mu      sync.Mutex
	entries map[uint64]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[uint64]*entry)}
}

func key(host, path string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(host)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(path)
	return d.Sum64()
}

// Acquire returns the shared cache for path on host, creating it on first use.
// Every Acquire must be paired with a Release.
func (r *Registry) Acquire(host, path string) *LineCache {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(host, path)
	e, ok := r.entries[k]
	if !ok {
		e = &entry{lines: NewLineCache(path)}
		r.entries[k] = e
	}
	e.refs++
	return e.lines
}

// Release drops one reference to the cache for path on host.
func (r *Registry) Release(host, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(host, path)
	e, ok := r.entries[k]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.entries, k)
	}
}

// Len returns the number of live caches.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
