// Package source exposes remote files as lazily filled, randomly indexable
// sequences of lines.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/TimelordUK/rtail/internal/index"
)

var (
	// ErrOutOfRange is returned for a position outside the sequence.
	ErrOutOfRange = index.ErrOutOfRange
	// ErrReadOnly is returned by every mutating call on a Sequence.
	ErrReadOnly = fmt.Errorf("remote sequence is read-only: %w", errors.ErrUnsupported)
	// ErrDisposed is returned once a Sequence has been disposed.
	ErrDisposed = errors.New("sequence disposed")
	// ErrClosed is returned when opening a file on a closed Host.
	ErrClosed = errors.New("host closed")
)

// LineProvider is the read-only view consumers page through.
type LineProvider interface {
	// Size returns the number of lines in the view. The first call may run
	// the remote search.
	Size(ctx context.Context) (int, error)

	// Get returns the line at position (0-based). It never waits for line
	// content; unfetched lines come back unloaded and fill in later.
	Get(ctx context.Context, position int) (*Line, error)

	// GetLines returns up to count lines starting at start.
	GetLines(ctx context.Context, start, count int) ([]*Line, error)

	// IndexOf returns the position of absolute line n, or -1.
	IndexOf(ctx context.Context, n int) (int, error)

	// Subscribe registers fn to run whenever new lines arrive.
	Subscribe(fn func()) (unsubscribe func())
}
