package source

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/TimelordUK/rtail/internal/cache"
	"github.com/TimelordUK/rtail/internal/fetch"
	"github.com/TimelordUK/rtail/internal/index"
)

// Sequence is a filtered, lazily fetched view of one remote file. Position i
// maps through the search index to an absolute line, which is served from the
// shared cache or queued for the view's scheduler.
//
// A Sequence holds one subscription on the shared cache and fans
// notifications out to its own unloaded lines and listeners. Each absolute
// line has at most one unloaded Line; repeated Gets share it.
type Sequence struct {
	path      string
	lines     *cache.LineCache
	index     *index.SearchIndex
	pending   *fetch.PendingSet
	scheduler *fetch.Scheduler
	logger    zerolog.Logger

	unsubscribe func()
	release     func()

	mu        sync.Mutex
	waiting   map[int]*Line
	listeners map[uint64]func()
	nextID    uint64
	disposed  bool

	disposeOnce sync.Once
}

type sequenceDeps struct {
	path      string
	lines     *cache.LineCache
	index     *index.SearchIndex
	scheduler *fetch.Scheduler
	logger    zerolog.Logger
	release   func()
}

func newSequence(d sequenceDeps) *Sequence {
	s := &Sequence{
		path:      d.path,
		lines:     d.lines,
		index:     d.index,
		pending:   d.scheduler.Pending(),
		scheduler: d.scheduler,
		logger:    d.logger,
		release:   d.release,
		waiting:   make(map[int]*Line),
		listeners: make(map[uint64]func()),
	}
	s.unsubscribe = d.lines.Subscribe(s.onCacheChange)
	return s
}

// Path returns the remote path.
func (s *Sequence) Path() string {
	return s.path
}

// Pattern returns the filter pattern.
func (s *Sequence) Pattern() string {
	return s.index.Pattern()
}

// SetPattern changes the filter pattern. Once the index has been computed the
// view keeps it; the new pattern is recorded but not applied. It reports
// whether the pattern will be used.
func (s *Sequence) SetPattern(pattern string) bool {
	return s.index.SetPattern(pattern)
}

// IndexState reports the state of the search computation.
func (s *Sequence) IndexState() index.State {
	return s.index.State()
}

// Stats returns the scheduler counters.
func (s *Sequence) Stats() fetch.Stats {
	return s.scheduler.Stats()
}

// Size returns the number of lines in the view.
func (s *Sequence) Size(ctx context.Context) (int, error) {
	if s.isDisposed() {
		return 0, ErrDisposed
	}
	return s.index.Len(ctx)
}

// Get returns the line at position. Cached lines come back loaded; others
// are queued for fetching and come back unloaded. Gets of the same unloaded
// line return the same Line.
func (s *Sequence) Get(ctx context.Context, position int) (*Line, error) {
	if s.isDisposed() {
		return nil, ErrDisposed
	}

	n, err := s.index.At(ctx, position)
	if err != nil {
		return nil, err
	}

	if content, ok := s.lines.At(n); ok {
		return newLoadedLine(n, content), nil
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrDisposed
	}
	line, ok := s.waiting[n]
	if !ok {
		line = newPendingLine(n)
		s.waiting[n] = line
	}
	s.mu.Unlock()

	s.pending.Add(n)

	// The line may have landed between the lookup and registering interest.
	if s.lines.Has(n) {
		s.settle(n)
	}
	return line, nil
}

// GetLines returns up to count lines starting at start.
func (s *Sequence) GetLines(ctx context.Context, start, count int) ([]*Line, error) {
	size, err := s.Size(ctx)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		start = 0
	}
	if start >= size || count <= 0 {
		return nil, nil
	}
	if start+count > size {
		count = size - start
	}

	lines := make([]*Line, 0, count)
	for i := start; i < start+count; i++ {
		line, err := s.Get(ctx, i)
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// IndexOf returns the position of absolute line n, or -1 if the view does
// not contain it.
func (s *Sequence) IndexOf(ctx context.Context, n int) (int, error) {
	if s.isDisposed() {
		return -1, ErrDisposed
	}
	return s.index.Position(ctx, n)
}

// Subscribe registers fn to run after new lines have been delivered to this
// view's pending lines. fn runs on a fetch goroutine and must not block for
// long; it may Dispose this or any other view.
func (s *Sequence) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	if !s.disposed {
		s.listeners[id] = fn
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Add is not supported.
func (s *Sequence) Add(*Line) error { return ErrReadOnly }

// Remove is not supported.
func (s *Sequence) Remove(int) error { return ErrReadOnly }

// Clear is not supported.
func (s *Sequence) Clear() error { return ErrReadOnly }

// Dispose stops the scheduler, waiting for an in-flight fetch, and drops
// every subscription. Lines still unloaded stay unloaded.
func (s *Sequence) Dispose() {
	s.disposeOnce.Do(func() {
		s.scheduler.Stop()
		s.unsubscribe()

		s.mu.Lock()
		s.disposed = true
		s.waiting = nil
		s.listeners = nil
		s.mu.Unlock()

		if s.release != nil {
			s.release()
		}
		s.logger.Debug().Str("path", s.path).Msg("sequence disposed")
	})
}

func (s *Sequence) isDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// settle loads the waiting line for n if n is cached.
func (s *Sequence) settle(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if line, ok := s.waiting[n]; ok && line.refresh(s.lines) {
		delete(s.waiting, n)
	}
}

func (s *Sequence) onCacheChange(c *cache.LineCache) {
	s.mu.Lock()
	loaded := 0
	for n, line := range s.waiting {
		if line.refresh(c) {
			loaded++
			delete(s.waiting, n)
		}
	}

	listeners := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	if loaded > 0 {
		s.logger.Trace().Int("lines", loaded).Msg("lines delivered")
	}
	for _, fn := range listeners {
		fn()
	}
}
