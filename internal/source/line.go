package source

import (
	"context"
	"sync"

	"github.com/TimelordUK/rtail/internal/cache"
)

// Line is one row of a view. An unloaded Line fills itself in when its
// Sequence reports that the content arrived; it never fetches or polls.
type Line struct {
	index int

	mu      sync.RWMutex
	content string
	loaded  bool
	done    chan struct{}
}

func newLoadedLine(index int, content string) *Line {
	l := &Line{index: index, content: content, loaded: true, done: make(chan struct{})}
	close(l.done)
	return l
}

func newPendingLine(index int) *Line {
	return &Line{index: index, done: make(chan struct{})}
}

// Index returns the absolute (1-based) line number in the remote file.
func (l *Line) Index() int {
	return l.index
}

// Content returns the text, or "" while unloaded.
func (l *Line) Content() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.content
}

// Loaded reports whether the content has arrived.
func (l *Line) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Done is closed when the line becomes loaded.
func (l *Line) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the line is loaded or ctx is done.
func (l *Line) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Line) String() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.loaded {
		return "loading..."
	}
	return l.content
}

// refresh copies the content from c if it is there. It reports whether the
// line is loaded afterwards.
func (l *Line) refresh(c *cache.LineCache) bool {
	if l.Loaded() {
		return true
	}

	content, ok := c.At(l.index)
	if !ok {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return true
	}
	l.content = content
	l.loaded = true
	close(l.done)
	return true
}
