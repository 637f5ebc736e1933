package fetch

import (
	"slices"
	"sync"
)

// PendingSet is the set of absolute line numbers a view has asked for but
// not yet fetched. It may hold lines that are already cached.
type PendingSet struct {
	mu    sync.Mutex
	lines map[int]struct{}
}

// NewPendingSet returns an empty set.
func NewPendingSet() *PendingSet {
	return &PendingSet{lines: make(map[int]struct{})}
}

// Add records n, reporting whether it was new.
func (p *PendingSet) Add(n int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.lines[n]; ok {
		return false
	}
	p.lines[n] = struct{}{}
	return true
}

// Remove drops lines from the set.
func (p *PendingSet) Remove(lines []int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, n := range lines {
		delete(p.lines, n)
	}
}

// Contains reports whether n is pending.
func (p *PendingSet) Contains(n int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.lines[n]
	return ok
}

// Len returns the number of pending lines.
func (p *PendingSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lines)
}

// Empty reports whether nothing is pending.
func (p *PendingSet) Empty() bool {
	return p.Len() == 0
}

// Snapshot returns the pending lines in ascending order.
func (p *PendingSet) Snapshot() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int, 0, len(p.lines))
	for n := range p.lines {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// NextRun returns the lowest contiguous run of pending lines: the smallest
// pending number followed by every consecutive successor, stopping at the
// first gap. The run stays pending until removed.
func (p *PendingSet) NextRun() []int {
	sorted := p.Snapshot()
	if len(sorted) == 0 {
		return nil
	}

	end := 1
	for end < len(sorted) && sorted[end] == sorted[end-1]+1 {
		end++
	}
	return sorted[:end:end]
}
