package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimelordUK/rtail/internal/remote"
)

// writeLog writes a 20-line file where lines 2, 5, 9 and 14 are errors.
func writeLog(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	for n := 1; n <= 20; n++ {
		switch n {
		case 2, 5, 9, 14:
			fmt.Fprintf(&b, "2016-01-03 ERROR %d failed job=%d\n", n*7, n)
		default:
			fmt.Fprintf(&b, "2016-01-03 INFO line %d\n", n)
		}
	}

	path := filepath.Join(t.TempDir(), "server console.log")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestSequence_LocalShell(t *testing.T) {
	path := writeLog(t)
	ctx := context.Background()

	h := NewHost(ctx, remote.NewSession(&remote.LocalConnection{}, zerolog.Nop()), HostOptions{
		Name:     "local",
		Interval: 10 * time.Millisecond,
		Logger:   zerolog.Nop(),
	})
	defer h.Close()

	seq, err := h.Open(path, `ERROR \d+ failed job=\d{1,2}`)
	require.NoError(t, err)

	size, err := seq.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, size)

	line, err := seq.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Index())

	waitLoaded(t, line)
	assert.Equal(t, "2016-01-03 ERROR 14 failed job=2", line.Content())

	pos, err := seq.IndexOf(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	all, err := h.Open(path, "")
	require.NoError(t, err)

	size, err = all.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, size)

	last, err := all.Get(ctx, 19)
	require.NoError(t, err)
	assert.Equal(t, 20, last.Index())
	waitLoaded(t, last)
	assert.Equal(t, "2016-01-03 INFO line 20", last.Content())
}
