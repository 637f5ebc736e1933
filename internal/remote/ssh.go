package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig describes how to reach a host over SSH.
type SSHConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// IdentityFile is a private key used for public key auth.
	IdentityFile string
	// KnownHosts is the known_hosts file used to verify the host key.
	KnownHosts string
	// InsecureIgnoreHostKey skips host key verification.
	InsecureIgnoreHostKey bool
	Timeout               time.Duration
}

func (c SSHConfig) addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

func (c SSHConfig) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if c.IdentityFile != "" {
		key, err := os.ReadFile(c.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("read identity: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse identity %s: %w", c.IdentityFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if c.Password != "" {
		auth = append(auth, ssh.Password(c.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("no ssh auth method configured")
	}

	var hostKey ssh.HostKeyCallback
	switch {
	case c.InsecureIgnoreHostKey:
		hostKey = ssh.InsecureIgnoreHostKey()
	case c.KnownHosts != "":
		cb, err := knownhosts.New(c.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKey = cb
	default:
		return nil, errors.New("no known_hosts file configured")
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         timeout,
	}, nil
}

// SSHConnection runs commands over an SSH client. Every command gets its own
// session, which the SSH protocol multiplexes over the one TCP connection, so
// concurrent commands are safe.
type SSHConnection struct {
	cfg    SSHConfig
	logger zerolog.Logger

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHConnection returns an unconnected SSHConnection.
func NewSSHConnection(cfg SSHConfig, logger zerolog.Logger) *SSHConnection {
	return &SSHConnection{cfg: cfg, logger: logger}
}

// Connect dials the host and authenticates.
func (c *SSHConnection) Connect(ctx context.Context) error {
	clientCfg, err := c.cfg.clientConfig()
	if err != nil {
		return err
	}

	addr := c.cfg.addr()
	dialer := net.Dialer{Timeout: clientCfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("handshake %s: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	c.logger.Info().Str("addr", addr).Str("user", c.cfg.User).Msg("ssh connected")

	// Forget the client once the transport drops so the next command reconnects.
	go func() {
		err := client.Wait()
		c.mu.Lock()
		if c.client == client {
			c.client = nil
		}
		c.mu.Unlock()
		c.logger.Debug().Err(err).Str("addr", addr).Msg("ssh connection closed")
	}()

	return nil
}

// IsConnected reports whether a live client exists.
func (c *SSHConnection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil
}

// OpenCommandChannel opens a new SSH session for command.
func (c *SSHConnection) OpenCommandChannel(command string) (Channel, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()

	if client == nil {
		return nil, ErrNotConnected
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	return &sshChannel{
		session: session,
		stdout:  stdout,
		command: command,
		status:  -1,
	}, nil
}

// Close disconnects the client.
func (c *SSHConnection) Close() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

type sshChannel struct {
	session *ssh.Session
	stdout  io.Reader
	command string
	status  int
	started bool
}

func (ch *sshChannel) SetCommand(text string) { ch.command = text }

func (ch *sshChannel) Connect() error {
	if err := ch.session.Start(ch.command); err != nil {
		return err
	}
	ch.started = true
	return nil
}

func (ch *sshChannel) OutputStream() io.Reader { return ch.stdout }

func (ch *sshChannel) Disconnect() error {
	defer ch.session.Close()

	if !ch.started {
		return nil
	}

	err := ch.session.Wait()
	var exitErr *ssh.ExitError
	switch {
	case err == nil:
		ch.status = 0
	case errors.As(err, &exitErr):
		ch.status = exitErr.ExitStatus()
	default:
		return err
	}
	return nil
}

func (ch *sshChannel) ExitStatus() int { return ch.status }
