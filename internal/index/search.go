// Package index computes which absolute lines of a remote file belong to a
// view. A SearchIndex runs one remote grep and memoizes the matching line
// numbers; position i in that list is the view's row i.
package index

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/TimelordUK/rtail/internal/remote"
)

// ErrOutOfRange is returned for a position outside the index.
var ErrOutOfRange = errors.New("position out of range")

// State is the lifecycle of the memoized computation.
type State int

const (
	NotStarted State = iota
	InProgress
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "in progress"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "not started"
	}
}

// ParseError reports a line of search output that is not a line number.
type ParseError struct {
	Row  int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("search output row %d: invalid line number %q", e.Row, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Command builds the remote search for pattern in path.
func Command(pattern, path string) string {
	return fmt.Sprintf(`grep --color=auto -n -e "%s" %s | cut -d : -f1`, Escape(pattern), remote.Quote(path))
}

// Parse converts search output rows into line numbers. Rows must be strictly
// increasing positive integers; empty rows are skipped.
func Parse(rows []string) ([]int, error) {
	lines := make([]int, 0, len(rows))
	for i, row := range rows {
		text := strings.TrimSpace(row)
		if text == "" {
			continue
		}

		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, &ParseError{Row: i + 1, Text: row, Err: err}
		}
		if n < 1 || (len(lines) > 0 && n <= lines[len(lines)-1]) {
			return nil, &ParseError{Row: i + 1, Text: row, Err: errors.New("not strictly increasing")}
		}
		lines = append(lines, n)
	}
	return lines, nil
}

// Options configures a SearchIndex.
type Options struct {
	Path    string
	Pattern string
	Decoder *remote.Decoder
	Logger  zerolog.Logger
	// OnEmpty is called when a search completes with no matches.
	OnEmpty func(pattern string)
}

// SearchIndex is the memoized list of absolute line numbers matching a
// pattern. The search runs at most once successfully; concurrent first
// callers share one remote command. A failed search is not cached and the
// next call retries it.
type SearchIndex struct {
	exec    remote.Executor
	path    string
	decoder *remote.Decoder
	logger  zerolog.Logger
	onEmpty func(string)

	group singleflight.Group

	mu      sync.Mutex
	pattern string
	state   State
	lines   []int
	err     error
}

// New returns an index that has not run yet.
func New(exec remote.Executor, opts Options) *SearchIndex {
	decoder := opts.Decoder
	if decoder == nil {
		decoder = remote.UTF8()
	}
	return &SearchIndex{
		exec:    exec,
		path:    opts.Path,
		pattern: opts.Pattern,
		decoder: decoder,
		logger:  opts.Logger,
		onEmpty: opts.OnEmpty,
	}
}

// Pattern returns the current pattern.
func (x *SearchIndex) Pattern() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.pattern
}

// SetPattern replaces the pattern. It only affects a search that has not
// started or has failed; a computed index is never recomputed. It reports
// whether the new pattern will be used. While a search is running it reports
// false: that search keeps the old pattern, and the new one is used only if
// it fails and is retried.
func (x *SearchIndex) SetPattern(pattern string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.pattern = pattern
	switch x.state {
	case Succeeded:
		x.logger.Debug().Str("pattern", pattern).Msg("index already computed, pattern change ignored")
		return false
	case InProgress:
		x.logger.Debug().Str("pattern", pattern).Msg("search running, pattern change not applied to it")
		return false
	}
	return true
}

// State returns where the computation is.
func (x *SearchIndex) State() State {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

// Err returns the error of the last failed attempt, if the index is failed.
func (x *SearchIndex) Err() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.err
}

// Value returns the matching line numbers, running the search on first use.
// The returned slice is shared and must not be modified.
func (x *SearchIndex) Value(ctx context.Context) ([]int, error) {
	x.mu.Lock()
	if x.state == Succeeded {
		lines := x.lines
		x.mu.Unlock()
		return lines, nil
	}
	x.mu.Unlock()

	v, err, _ := x.group.Do("search", func() (any, error) {
		x.mu.Lock()
		if x.state == Succeeded {
			lines := x.lines
			x.mu.Unlock()
			return lines, nil
		}
		x.state = InProgress
		pattern := x.pattern
		x.mu.Unlock()

		lines, err := x.search(ctx, pattern)

		x.mu.Lock()
		defer x.mu.Unlock()
		if err != nil {
			x.state = Failed
			x.err = err
			return nil, err
		}
		x.state = Succeeded
		x.lines = lines
		x.err = nil
		return lines, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]int), nil
}

func (x *SearchIndex) search(ctx context.Context, pattern string) ([]int, error) {
	cmd := Command(pattern, x.path)
	x.logger.Debug().Str("cmd", cmd).Msg("searching")

	out, err := x.exec.Exec(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", x.path, err)
	}

	rows, err := x.decoder.Lines(out)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", x.path, err)
	}

	lines, err := Parse(rows)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", x.path, err)
	}

	if len(lines) == 0 {
		x.logger.Info().Str("path", x.path).Str("pattern", pattern).Msg("no lines matched")
		if x.onEmpty != nil {
			x.onEmpty(pattern)
		}
	} else {
		x.logger.Debug().Str("path", x.path).Int("matches", len(lines)).Msg("search complete")
	}
	return lines, nil
}

// Len returns the number of matching lines.
func (x *SearchIndex) Len(ctx context.Context) (int, error) {
	lines, err := x.Value(ctx)
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

// At returns the absolute line number at position.
func (x *SearchIndex) At(ctx context.Context, position int) (int, error) {
	lines, err := x.Value(ctx)
	if err != nil {
		return 0, err
	}
	if position < 0 || position >= len(lines) {
		return 0, fmt.Errorf("%w: %d of %d", ErrOutOfRange, position, len(lines))
	}
	return lines[position], nil
}

// Position returns the position of absolute line n, or -1 if n does not match.
func (x *SearchIndex) Position(ctx context.Context, n int) (int, error) {
	lines, err := x.Value(ctx)
	if err != nil {
		return -1, err
	}
	if i, ok := slices.BinarySearch(lines, n); ok {
		return i, nil
	}
	return -1, nil
}
