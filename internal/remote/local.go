package remote

import (
	"context"
	"errors"
	"io"
	"os/exec"
)

// LocalConnection runs commands through a local shell. It is always
// connected and is used for local files and in tests.
type LocalConnection struct {
	// Shell defaults to "sh".
	Shell string
}

// Connect is a no-op.
func (c *LocalConnection) Connect(ctx context.Context) error { return nil }

// IsConnected always reports true.
func (c *LocalConnection) IsConnected() bool { return true }

// OpenCommandChannel prepares a shell process for command.
func (c *LocalConnection) OpenCommandChannel(command string) (Channel, error) {
	shell := c.Shell
	if shell == "" {
		shell = "sh"
	}
	return &localChannel{shell: shell, command: command, status: -1}, nil
}

type localChannel struct {
	shell   string
	command string
	cmd     *exec.Cmd
	stdout  io.Reader
	status  int
}

func (ch *localChannel) SetCommand(text string) { ch.command = text }

func (ch *localChannel) Connect() error {
	ch.cmd = exec.Command(ch.shell, "-c", ch.command)
	stdout, err := ch.cmd.StdoutPipe()
	if err != nil {
		return err
	}
	ch.stdout = stdout
	return ch.cmd.Start()
}

func (ch *localChannel) OutputStream() io.Reader { return ch.stdout }

func (ch *localChannel) Disconnect() error {
	if ch.cmd == nil || ch.cmd.Process == nil {
		return nil
	}

	err := ch.cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		ch.status = 0
	case errors.As(err, &exitErr):
		ch.status = exitErr.ExitCode()
	default:
		return err
	}
	return nil
}

func (ch *localChannel) ExitStatus() int { return ch.status }
