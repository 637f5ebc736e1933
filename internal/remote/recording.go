package remote

import (
	"context"
	"io"
	"strings"
	"sync"
)

// Handler produces the stdout and exit status for a command.
type Handler func(command string) (stdout string, status int, err error)

// RecordingConnection is a scripted Connection for tests. It records every
// command it is asked to run and answers through Handler.
type RecordingConnection struct {
	// Handler answers commands. A nil Handler returns empty output.
	Handler Handler
	// ConnectErr, when set, is returned from every Connect call.
	ConnectErr error

	mu        sync.Mutex
	connected bool
	connects  int
	commands  []string
}

// Connect marks the connection as connected unless ConnectErr is set.
func (c *RecordingConnection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connects++
	if c.ConnectErr != nil {
		return c.ConnectErr
	}
	c.connected = true
	return nil
}

// IsConnected reports whether Connect has succeeded.
func (c *RecordingConnection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Drop simulates the transport going away.
func (c *RecordingConnection) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

// OpenCommandChannel records command and returns a channel answering it.
func (c *RecordingConnection) OpenCommandChannel(command string) (Channel, error) {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil, ErrNotConnected
	}
	return &recordedChannel{conn: c, command: command, status: -1}, nil
}

// Commands returns a copy of the commands run so far.
func (c *RecordingConnection) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.commands))
	copy(out, c.commands)
	return out
}

// Connects returns how many times Connect was called.
func (c *RecordingConnection) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

// Reset clears recorded commands.
func (c *RecordingConnection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = nil
}

func (c *RecordingConnection) run(command string) (string, int, error) {
	c.mu.Lock()
	c.commands = append(c.commands, command)
	handler := c.Handler
	c.mu.Unlock()

	if handler == nil {
		return "", 0, nil
	}
	return handler(command)
}

type recordedChannel struct {
	conn    *RecordingConnection
	command string
	out     io.Reader
	status  int
}

func (ch *recordedChannel) SetCommand(text string) { ch.command = text }

func (ch *recordedChannel) Connect() error {
	out, status, err := ch.conn.run(ch.command)
	if err != nil {
		return err
	}
	ch.out = strings.NewReader(out)
	ch.status = status
	return nil
}

func (ch *recordedChannel) OutputStream() io.Reader {
	if ch.out == nil {
		return strings.NewReader("")
	}
	return ch.out
}

func (ch *recordedChannel) Disconnect() error { return nil }

func (ch *recordedChannel) ExitStatus() int { return ch.status }
