// Package fetch drains a view's pending line requests from the remote file.
// A Scheduler runs one goroutine per view, coalescing adjacent requests into
// a single ranged sed read.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimelordUK/rtail/internal/cache"
	"github.com/TimelordUK/rtail/internal/remote"
)

// DefaultInterval is how long an idle scheduler sleeps before checking for
// new requests.
const DefaultInterval = 2 * time.Second

// State of the fetch loop.
type State int32

const (
	Idle State = iota
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

// RangeCommand builds the remote read of lines first..last of path.
func RangeCommand(first, last int, path string) string {
	return fmt.Sprintf("sed -n %d,%dp %s", first, last, remote.Quote(path))
}

// Stats counts scheduler activity.
type Stats struct {
	Runs   int64
	Lines  int64
	Errors int64
}

// Options configures a Scheduler.
type Options struct {
	Path     string
	Lines    *cache.LineCache
	Pending  *PendingSet
	Decoder  *remote.Decoder
	Interval time.Duration
	Logger   zerolog.Logger
}

// Scheduler fetches pending lines into a LineCache. The remote command is
// never interrupted: stopping waits for an in-flight read to be stored, and a
// hung command stalls this scheduler.
//
// Cache subscribers are notified on the scheduler goroutine. Stop may be
// called from such a subscriber; it then returns once the run is stored
// without waiting for the goroutine to exit.
type Scheduler struct {
	exec     remote.Executor
	path     string
	lines    *cache.LineCache
	pending  *PendingSet
	decoder  *remote.Decoder
	interval time.Duration
	logger   zerolog.Logger

	state     atomic.Int32
	notifying atomic.Bool
	runs      atomic.Int64
	total  atomic.Int64
	errors atomic.Int64

	// store is held from the remote read until the run is in the cache
	store sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewScheduler returns a scheduler that has not started.
func NewScheduler(exec remote.Executor, opts Options) *Scheduler {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	decoder := opts.Decoder
	if decoder == nil {
		decoder = remote.UTF8()
	}
	pending := opts.Pending
	if pending == nil {
		pending = NewPendingSet()
	}

	return &Scheduler{
		exec:     exec,
		path:     opts.Path,
		lines:    opts.Lines,
		pending:  pending,
		decoder:  decoder,
		interval: interval,
		logger:   opts.Logger,
	}
}

// Pending returns the set the scheduler drains.
func (s *Scheduler) Pending() *PendingSet {
	return s.pending
}

// State returns the loop state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Stats returns activity counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Runs:   s.runs.Load(),
		Lines:  s.total.Load(),
		Errors: s.errors.Load(),
	}
}

// Start launches the loop. It stops when ctx is canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop signals the loop and waits for the current iteration to finish. When
// called while the loop is notifying subscribers it only waits for the run to
// be stored, since the caller may be running on the loop itself.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.started = true
	s.mu.Unlock()

	if cancel == nil {
		s.state.Store(int32(Stopped))
		return
	}
	cancel()

	s.store.Lock()
	s.state.Store(int32(Stopped))
	s.store.Unlock()

	if s.notifying.Load() {
		return
	}
	s.wg.Wait()
}

// setState records the loop state unless the scheduler was stopped.
func (s *Scheduler) setState(st State) {
	for {
		cur := s.state.Load()
		if State(cur) == Stopped || s.state.CompareAndSwap(cur, int32(st)) {
			return
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.state.Store(int32(Stopped))

	s.logger.Debug().Str("path", s.path).Dur("interval", s.interval).Msg("scheduler started")

	for {
		if ctx.Err() != nil {
			s.logger.Debug().Str("path", s.path).Msg("scheduler stopped")
			return
		}

		wait := false
		if !s.pending.Empty() {
			s.setState(Draining)
			if _, err := s.DrainOnce(ctx); err != nil {
				s.errors.Add(1)
				s.logger.Error().Err(err).Str("path", s.path).Msg("fetch failed")
				wait = true
			}
		}

		if s.pending.Empty() {
			s.setState(Idle)
			wait = true
		}

		if wait {
			t := time.NewTimer(s.interval)
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
		}
	}
}

// DrainOnce fetches the lowest contiguous run of pending lines, stores it in
// the cache, removes it from the pending set and notifies subscribers. It
// returns the run that was fetched.
func (s *Scheduler) DrainOnce(ctx context.Context) ([]int, error) {
	run := s.pending.NextRun()
	if len(run) == 0 {
		return nil, nil
	}

	if err := s.fetchRun(ctx, run); err != nil {
		return nil, err
	}

	s.notifying.Store(true)
	defer s.notifying.Store(false)
	s.lines.Notify()
	return run, nil
}

// fetchRun reads run from the remote file and stores it in the cache.
func (s *Scheduler) fetchRun(ctx context.Context, run []int) error {
	s.store.Lock()
	defer s.store.Unlock()

	first := max(1, run[0])
	last := max(1, run[len(run)-1])

	cmd := RangeCommand(first, last, s.path)
	s.logger.Debug().Int("first", first).Int("last", last).Msg("fetching run")

	out, err := s.exec.Exec(ctx, cmd)
	if err != nil {
		return fmt.Errorf("fetch lines %d-%d: %w", first, last, err)
	}

	rows, err := s.decoder.Lines(out)
	if err != nil {
		return fmt.Errorf("fetch lines %d-%d: %w", first, last, err)
	}
	if want := last - first + 1; len(rows) > want {
		rows = rows[:want]
	}

	added := s.lines.PutRun(first, rows)

	// Lines past the end of the file are dropped rather than retried.
	s.pending.Remove(run)

	s.runs.Add(1)
	s.total.Add(int64(len(rows)))
	s.logger.Trace().Int("first", first).Int("rows", len(rows)).Int("new", added).Msg("run stored")
	return nil
}
