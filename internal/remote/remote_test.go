package remote

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Exec(t *testing.T) {
	ctx := context.Background()

	t.Run("connects lazily once", func(t *testing.T) {
		conn := &RecordingConnection{
			Handler: func(cmd string) (string, int, error) { return "out\n", 0, nil },
		}
		s := NewSession(conn, zerolog.Nop())

		assert.False(t, conn.IsConnected())

		out, err := s.Exec(ctx, "echo out")
		require.NoError(t, err)
		assert.Equal(t, "out\n", string(out))

		_, err = s.Exec(ctx, "echo out")
		require.NoError(t, err)

		assert.Equal(t, 1, conn.Connects())
		assert.Equal(t, []string{"echo out", "echo out"}, conn.Commands())
	})

	t.Run("reconnects after drop", func(t *testing.T) {
		conn := &RecordingConnection{}
		s := NewSession(conn, zerolog.Nop())

		_, err := s.Exec(ctx, "true")
		require.NoError(t, err)
		conn.Drop()
		_, err = s.Exec(ctx, "true")
		require.NoError(t, err)

		assert.Equal(t, 2, conn.Connects())
	})

	t.Run("connect error", func(t *testing.T) {
		boom := errors.New("auth failed")
		conn := &RecordingConnection{ConnectErr: boom}
		s := NewSession(conn, zerolog.Nop())

		_, err := s.Exec(ctx, "true")
		require.ErrorIs(t, err, boom)
		assert.Empty(t, conn.Commands())
	})

	t.Run("non-zero exit", func(t *testing.T) {
		conn := &RecordingConnection{
			Handler: func(cmd string) (string, int, error) { return "", 2, nil },
		}
		s := NewSession(conn, zerolog.Nop())

		_, err := s.Exec(ctx, "sed -n 1,2p 'missing'")
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Status)
		assert.Equal(t, "sed -n 1,2p 'missing'", exitErr.Command)
	})

	t.Run("channel error", func(t *testing.T) {
		boom := errors.New("channel closed")
		conn := &RecordingConnection{
			Handler: func(cmd string) (string, int, error) { return "", 0, boom },
		}
		s := NewSession(conn, zerolog.Nop())

		_, err := s.Exec(ctx, "true")
		require.ErrorIs(t, err, boom)
	})
}

func TestSession_ConcurrentConnectIsSerialized(t *testing.T) {
	conn := &RecordingConnection{}
	s := NewSession(conn, zerolog.Nop())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Exec(context.Background(), "true")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, conn.Connects())
	assert.Len(t, conn.Commands(), 16)
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "/var/log/app.log", want: "'/var/log/app.log'"},
		{in: "logs/my app.log", want: "'logs/my app.log'"},
		{in: "it's.log", want: `'it'\''s.log'`},
		{in: "", want: "''"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Quote(tt.in))
		})
	}
}

func TestSSHConfig_ClientConfig(t *testing.T) {
	t.Run("requires auth", func(t *testing.T) {
		_, err := SSHConfig{Host: "h", InsecureIgnoreHostKey: true}.clientConfig()
		require.Error(t, err)
	})

	t.Run("requires host key policy", func(t *testing.T) {
		_, err := SSHConfig{Host: "h", Password: "secret"}.clientConfig()
		require.Error(t, err)
	})

	t.Run("password with insecure host key", func(t *testing.T) {
		cfg, err := SSHConfig{Host: "h", User: "eservice", Password: "secret", InsecureIgnoreHostKey: true}.clientConfig()
		require.NoError(t, err)
		assert.Equal(t, "eservice", cfg.User)
		assert.Len(t, cfg.Auth, 1)
		assert.NotZero(t, cfg.Timeout)
	})

	t.Run("default port", func(t *testing.T) {
		assert.Equal(t, "example.com:22", SSHConfig{Host: "example.com"}.addr())
		assert.Equal(t, "example.com:2222", SSHConfig{Host: "example.com", Port: 2222}.addr())
	})
}

func TestSSHConnection_OpenWithoutConnect(t *testing.T) {
	c := NewSSHConnection(SSHConfig{Host: "example.com"}, zerolog.Nop())
	assert.False(t, c.IsConnected())

	_, err := c.OpenCommandChannel("true")
	require.ErrorIs(t, err, ErrNotConnected)
	require.NoError(t, c.Close())
}
