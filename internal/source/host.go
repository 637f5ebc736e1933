package source

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimelordUK/rtail/internal/cache"
	"github.com/TimelordUK/rtail/internal/fetch"
	"github.com/TimelordUK/rtail/internal/index"
	"github.com/TimelordUK/rtail/internal/remote"
)

// HostOptions configures a Host.
type HostOptions struct {
	// Name identifies the host for cache sharing, e.g. "user@host:22".
	Name     string
	Decoder  *remote.Decoder
	Interval time.Duration
	Logger   zerolog.Logger
	// OnEmpty is called when a view's search matches nothing.
	OnEmpty func(path, pattern string)
}

// Host opens views of files on one remote host. Views share the host's
// session and, per path, one line cache. Closing the host stops every view.
type Host struct {
	name     string
	exec     remote.Executor
	registry *cache.Registry
	decoder  *remote.Decoder
	interval time.Duration
	logger   zerolog.Logger
	onEmpty  func(path, pattern string)

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	open   map[*Sequence]struct{}
	closed bool
}

// NewHost returns a Host running commands through exec. Canceling ctx stops
// every view opened on it.
func NewHost(ctx context.Context, exec remote.Executor, opts HostOptions) *Host {
	ctx, cancel := context.WithCancel(ctx)

	decoder := opts.Decoder
	if decoder == nil {
		decoder = remote.UTF8()
	}

	return &Host{
		name:     opts.Name,
		exec:     exec,
		registry: cache.NewRegistry(),
		decoder:  decoder,
		interval: opts.Interval,
		logger:   opts.Logger,
		onEmpty:  opts.OnEmpty,
		ctx:      ctx,
		cancel:   cancel,
		open:     make(map[*Sequence]struct{}),
	}
}

// Registry returns the host's cache registry.
func (h *Host) Registry() *cache.Registry {
	return h.registry
}

// Open creates a view of path filtered by pattern ("" matches every line)
// and starts its scheduler. The caller must Dispose it.
func (h *Host) Open(path, pattern string) (*Sequence, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	logger := h.logger.With().Str("path", path).Logger()
	lines := h.registry.Acquire(h.name, path)

	var onEmpty func(string)
	if h.onEmpty != nil {
		onEmpty = func(p string) { h.onEmpty(path, p) }
	}

	idx := index.New(h.exec, index.Options{
		Path:    path,
		Pattern: pattern,
		Decoder: h.decoder,
		Logger:  logger.With().Str("component", "index").Logger(),
		OnEmpty: onEmpty,
	})

	scheduler := fetch.NewScheduler(h.exec, fetch.Options{
		Path:     path,
		Lines:    lines,
		Pending:  fetch.NewPendingSet(),
		Decoder:  h.decoder,
		Interval: h.interval,
		Logger:   logger.With().Str("component", "fetch").Logger(),
	})

	var seq *Sequence
	seq = newSequence(sequenceDeps{
		path:      path,
		lines:     lines,
		index:     idx,
		scheduler: scheduler,
		logger:    logger.With().Str("component", "sequence").Logger(),
		release: func() {
			h.registry.Release(h.name, path)
			h.mu.Lock()
			delete(h.open, seq)
			h.mu.Unlock()
		},
	})
	h.open[seq] = struct{}{}

	scheduler.Start(h.ctx)
	return seq, nil
}

// Len returns the number of open views.
func (h *Host) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.open)
}

// Close signals every view to stop and disposes them.
func (h *Host) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	open := make([]*Sequence, 0, len(h.open))
	for seq := range h.open {
		open = append(open, seq)
	}
	h.mu.Unlock()

	h.cancel()
	for _, seq := range open {
		seq.Dispose()
	}
}
