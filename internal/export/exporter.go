// Package export writes views of remote files to local files.
package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog"

	"github.com/TimelordUK/rtail/internal/source"
)

// DefaultTimeout bounds how long an export waits for lines to arrive.
const DefaultTimeout = time.Minute

// Info describes a finished export
type Info struct {
	SourcePath string // Remote file path
	OutPath    string // Local file written
	From       int    // First position (0-based, inclusive)
	To         int    // Last position (0-based, exclusive)
	Lines      int
}

// Options configures an Exporter
type Options struct {
	// Timeout bounds the wait for every line in the range to load.
	Timeout time.Duration
	// Number prefixes each line with its absolute line number.
	Number bool
	Logger zerolog.Logger
}

// Exporter extracts ranges of a view to local files
type Exporter struct {
	timeout time.Duration
	number  bool
	logger  zerolog.Logger
}

// NewExporter creates a new exporter
func NewExporter(opts Options) *Exporter {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Exporter{
		timeout: timeout,
		number:  opts.Number,
		logger:  opts.Logger,
	}
}

// ExportAll writes the whole view to out
func (e *Exporter) ExportAll(ctx context.Context, seq *source.Sequence, out string) (*Info, error) {
	return e.ExportRange(ctx, seq, 0, -1, out)
}

// ExportRange writes positions [from, to) of seq to out. A negative to, or
// one past the end, means the end of the view. The file is replaced
// atomically and only once every line has loaded.
func (e *Exporter) ExportRange(ctx context.Context, seq *source.Sequence, from, to int, out string) (*Info, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	size, err := seq.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("size of %s: %w", seq.Path(), err)
	}
	if from < 0 {
		from = 0
	}
	if to < 0 || to > size {
		to = size
	}
	if from > to {
		return nil, fmt.Errorf("invalid range: %d-%d", from, to)
	}

	lines, err := seq.GetLines(ctx, from, to-from)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", seq.Path(), err)
	}

	var buf bytes.Buffer
	for _, line := range lines {
		if err := line.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for line %d: %w", line.Index(), err)
		}
		if e.number {
			fmt.Fprintf(&buf, "[%d] ", line.Index())
		}
		buf.WriteString(line.Content())
		buf.WriteByte('\n')
	}

	if err := atomic.WriteFile(out, &buf); err != nil {
		return nil, fmt.Errorf("write %s: %w", out, err)
	}

	e.logger.Debug().
		Str("path", seq.Path()).
		Str("out", out).
		Int("from", from).
		Int("to", to).
		Msg("exported")

	return &Info{
		SourcePath: seq.Path(),
		OutPath:    out,
		From:       from,
		To:         to,
		Lines:      len(lines),
	}, nil
}
