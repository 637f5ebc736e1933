package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/TimelordUK/rtail/internal/source"
)

// Window manages the visible portion of a view.
// It knows nothing about remote hosts, patterns, or fetching.
// It only knows how to page through lines from a LineProvider.
type Window struct {
	provider source.LineProvider

	height int
	offset int

	// size is the provider's line count as of the last Refresh
	size int

	showLineNumbers bool
}

// NewWindow creates a window of height lines over provider
func NewWindow(provider source.LineProvider, height int) *Window {
	if height < 1 {
		height = 1
	}
	return &Window{
		provider:        provider,
		height:          height,
		showLineNumbers: true,
	}
}

// Refresh reads the provider size and re-clamps the offset
func (w *Window) Refresh(ctx context.Context) error {
	size, err := w.provider.Size(ctx)
	if err != nil {
		return err
	}
	w.size = size
	w.clampScroll()
	return nil
}

// Size returns the line count seen by the last Refresh
func (w *Window) Size() int {
	return w.size
}

// Height returns the window height
func (w *Window) Height() int {
	return w.height
}

// SetHeight updates the window height
func (w *Window) SetHeight(height int) {
	if height < 1 {
		height = 1
	}
	w.height = height
	w.clampScroll()
}

// ScrollDown scrolls down by n lines
func (w *Window) ScrollDown(n int) {
	w.offset += n
	w.clampScroll()
}

// ScrollUp scrolls up by n lines
func (w *Window) ScrollUp(n int) {
	w.offset -= n
	w.clampScroll()
}

// PageDown scrolls down by one page
func (w *Window) PageDown() {
	w.ScrollDown(max(w.height-1, 1))
}

// PageUp scrolls up by one page
func (w *Window) PageUp() {
	w.ScrollUp(max(w.height-1, 1))
}

// GotoTop scrolls to the beginning
func (w *Window) GotoTop() {
	w.offset = 0
}

// GotoBottom scrolls to the end
func (w *Window) GotoBottom() {
	w.offset = w.size - w.height
	w.clampScroll()
}

// GotoPosition scrolls so position is the top line
func (w *Window) GotoPosition(position int) {
	w.offset = position
	w.clampScroll()
}

// GotoLine scrolls to absolute line n of the remote file. It reports false
// and leaves the window alone when the view does not contain n.
func (w *Window) GotoLine(ctx context.Context, n int) (bool, error) {
	if err := w.Refresh(ctx); err != nil {
		return false, err
	}
	pos, err := w.provider.IndexOf(ctx, n)
	if err != nil {
		return false, err
	}
	if pos < 0 {
		return false, nil
	}
	w.GotoPosition(pos)
	return true, nil
}

// Offset returns the current top position
func (w *Window) Offset() int {
	return w.offset
}

// clampScroll ensures the offset is within valid bounds
func (w *Window) clampScroll() {
	maxScroll := max(w.size-w.height, 0)
	w.offset = min(max(w.offset, 0), maxScroll)
}

// Visible returns the lines currently in the window. Unfetched lines come
// back unloaded and are queued.
func (w *Window) Visible(ctx context.Context) ([]*source.Line, error) {
	if err := w.Refresh(ctx); err != nil {
		return nil, err
	}
	return w.provider.GetLines(ctx, w.offset, w.height)
}

// Wait returns the visible lines once every one of them has loaded
func (w *Window) Wait(ctx context.Context) ([]*source.Line, error) {
	lines, err := w.Visible(ctx)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if err := line.Wait(ctx); err != nil {
			return lines, err
		}
	}
	return lines, nil
}

// SetShowLineNumbers toggles line numbers in Render
func (w *Window) SetShowLineNumbers(show bool) {
	w.showLineNumbers = show
}

// Render formats lines as text. Line numbers are absolute lines of the remote
// file; unloaded lines show their placeholder.
func (w *Window) Render(lines []*source.Line) string {
	if len(lines) == 0 {
		return ""
	}

	width := 1
	for _, line := range lines {
		width = max(width, len(fmt.Sprint(line.Index())))
	}

	var builder strings.Builder
	for i, line := range lines {
		if i > 0 {
			builder.WriteString("\n")
		}
		if w.showLineNumbers {
			fmt.Fprintf(&builder, "%*d ", width, line.Index())
		}
		builder.WriteString(line.String())
	}
	return builder.String()
}

// PercentScrolled returns how far through the view we are
func (w *Window) PercentScrolled() float64 {
	if w.size == 0 {
		return 0
	}
	if w.size <= w.height {
		return 100
	}
	return float64(w.offset) / float64(w.size-w.height) * 100
}
