// Package sourcetest builds Hosts over fake remote files for tests of code
// built on source.Host.
package sourcetest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimelordUK/rtail/internal/remote"
	"github.com/TimelordUK/rtail/internal/remote/remotetest"
	"github.com/TimelordUK/rtail/internal/source"
)

// NewHost returns a Host serving f over a RecordingConnection, closed when
// the test ends.
func NewHost(t testing.TB, f *remotetest.File, interval time.Duration) (*source.Host, *remote.RecordingConnection) {
	t.Helper()
	conn := &remote.RecordingConnection{Handler: f.Handler()}
	h := source.NewHost(context.Background(), remote.NewSession(conn, zerolog.Nop()), source.HostOptions{
		Name:     "test",
		Interval: interval,
		Logger:   zerolog.Nop(),
	})
	t.Cleanup(h.Close)
	return h, conn
}
