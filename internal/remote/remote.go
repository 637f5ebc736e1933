// Package remote provides the command-execution channel rtail reads remote
// files through. A Connection knows how to reach a host; a Session shares one
// Connection between every view of that host.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNotConnected is returned when a channel is opened on a closed connection.
var ErrNotConnected = errors.New("remote: not connected")

// Connection is a lazily connected session to a host that can run commands.
type Connection interface {
	// Connect establishes the session. It is only called when IsConnected
	// reports false.
	Connect(ctx context.Context) error
	// IsConnected reports whether the session is usable.
	IsConnected() bool
	// OpenCommandChannel prepares a channel that will run command once connected.
	OpenCommandChannel(command string) (Channel, error)
}

// Channel runs a single command on a Connection.
//
// Callers use it as: Connect, read OutputStream to EOF, Disconnect, then
// ExitStatus.
type Channel interface {
	SetCommand(text string)
	Connect() error
	Disconnect() error
	OutputStream() io.Reader
	// ExitStatus is valid after Disconnect. -1 means unknown.
	ExitStatus() int
}

// Executor runs a command and returns everything it wrote to stdout.
// *Session is the production implementation.
type Executor interface {
	Exec(ctx context.Context, command string) ([]byte, error)
}

// ExitError reports a remote command that exited with a non-zero status.
type ExitError struct {
	Command string
	Status  int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("remote command %q exited with status %d", e.Command, e.Status)
}

// Session serializes the connect check of a shared Connection. The lock is
// held only around the check, so commands issued from different goroutines
// run concurrently.
type Session struct {
	conn   Connection
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSession wraps conn for shared use.
func NewSession(conn Connection, logger zerolog.Logger) *Session {
	return &Session{
		conn:   conn,
		logger: logger,
	}
}

// EnsureConnected connects the underlying Connection if it is not connected.
func (s *Session) EnsureConnected(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn.IsConnected() {
		return nil
	}

	s.logger.Debug().Msg("connecting")
	if err := s.conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Exec runs command and returns everything it wrote to stdout.
func (s *Session) Exec(ctx context.Context, command string) ([]byte, error) {
	if err := s.EnsureConnected(ctx); err != nil {
		return nil, err
	}

	s.logger.Trace().Str("cmd", command).Msg("exec")

	ch, err := s.conn.OpenCommandChannel(command)
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Connect(); err != nil {
		_ = ch.Disconnect()
		return nil, fmt.Errorf("start %q: %w", command, err)
	}

	out, readErr := io.ReadAll(ch.OutputStream())
	if err := ch.Disconnect(); err != nil {
		return nil, fmt.Errorf("close %q: %w", command, err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("read %q: %w", command, readErr)
	}

	if status := ch.ExitStatus(); status != 0 {
		return out, &ExitError{Command: command, Status: status}
	}
	return out, nil
}
