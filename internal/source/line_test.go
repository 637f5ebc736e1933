package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimelordUK/rtail/internal/cache"
)

func TestLine_LoadsOnce(t *testing.T) {
	c := cache.NewLineCache("app.log")
	line := newPendingLine(4)

	assert.False(t, line.refresh(c))
	assert.False(t, line.Loaded())
	assert.Equal(t, "loading...", line.String())

	c.Put(4, "four")
	assert.True(t, line.refresh(c))
	assert.True(t, line.refresh(c))

	assert.True(t, line.Loaded())
	assert.Equal(t, "four", line.Content())
	assert.Equal(t, "four", line.String())

	select {
	case <-line.Done():
	default:
		t.Fatal("Done not closed after load")
	}
}

func TestLine_Wait(t *testing.T) {
	line := newPendingLine(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, line.Wait(ctx), context.DeadlineExceeded)

	loaded := newLoadedLine(1, "one")
	require.NoError(t, loaded.Wait(context.Background()))
	assert.Equal(t, 1, loaded.Index())
}
