package view

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimelordUK/rtail/internal/remote/remotetest"
	"github.com/TimelordUK/rtail/internal/source/sourcetest"
)

const logPath = "/srv/app/server.log"

func newWindow(t *testing.T, f *remotetest.File, pattern string, height int) *Window {
	t.Helper()
	h, _ := sourcetest.NewHost(t, f, 5*time.Millisecond)
	seq, err := h.Open(logPath, pattern)
	require.NoError(t, err)
	t.Cleanup(seq.Dispose)

	w := NewWindow(seq, height)
	require.NoError(t, w.Refresh(context.Background()))
	return w
}

func TestWindow_Scrolling(t *testing.T) {
	w := newWindow(t, remotetest.Numbered(logPath, 50), "", 10)
	assert.Equal(t, 50, w.Size())

	w.ScrollDown(5)
	assert.Equal(t, 5, w.Offset())

	w.ScrollUp(10)
	assert.Equal(t, 0, w.Offset(), "clamped at top")

	w.PageDown()
	assert.Equal(t, 9, w.Offset())

	w.GotoBottom()
	assert.Equal(t, 40, w.Offset())
	assert.Equal(t, float64(100), w.PercentScrolled())

	w.ScrollDown(3)
	assert.Equal(t, 40, w.Offset(), "clamped at bottom")

	w.PageUp()
	assert.Equal(t, 31, w.Offset())

	w.GotoTop()
	assert.Equal(t, 0, w.Offset())
	assert.Equal(t, float64(0), w.PercentScrolled())
}

func TestWindow_ShortView(t *testing.T) {
	w := newWindow(t, remotetest.Numbered(logPath, 3), "", 10)

	w.GotoBottom()
	assert.Equal(t, 0, w.Offset())
	assert.Equal(t, float64(100), w.PercentScrolled())
}

func TestWindow_WaitLoadsVisibleLines(t *testing.T) {
	w := newWindow(t, remotetest.Numbered(logPath, 50), "", 3)
	w.GotoPosition(20)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	lines, err := w.Wait(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	for i, line := range lines {
		assert.True(t, line.Loaded())
		assert.Equal(t, 21+i, line.Index())
	}
	assert.Equal(t, "21 line 21\n22 line 22\n23 line 23", w.Render(lines))

	w.SetShowLineNumbers(false)
	assert.Equal(t, "line 21\nline 22\nline 23", w.Render(lines))
}

func TestWindow_GotoLineFiltered(t *testing.T) {
	f := remotetest.Numbered(logPath, 100)
	f.Matches["ERROR"] = []int{4, 17, 30, 62, 88}
	w := newWindow(t, f, "ERROR", 2)
	ctx := context.Background()

	assert.Equal(t, 5, w.Size())

	ok, err := w.GotoLine(ctx, 30)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, w.Offset())

	ok, err = w.GotoLine(ctx, 31)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, w.Offset(), "offset unchanged for a line outside the view")

	ok, err = w.GotoLine(ctx, 88)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, w.Offset(), "clamped so the window stays full")
}

func TestWindow_SetHeight(t *testing.T) {
	w := newWindow(t, remotetest.Numbered(logPath, 20), "", 5)
	w.GotoBottom()
	assert.Equal(t, 15, w.Offset())

	w.SetHeight(10)
	assert.Equal(t, 10, w.Offset())
	assert.Equal(t, 10, w.Height())
}
