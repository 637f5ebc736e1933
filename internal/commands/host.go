package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/TimelordUK/rtail/internal/remote"
	"github.com/TimelordUK/rtail/internal/source"
	"github.com/TimelordUK/rtail/pkg/logutils"
)

// openHost builds the connection described by the loaded config and wraps it
// in a source.Host. The returned func closes both.
func (f *Flags) openHost(ctx context.Context) (*source.Host, func(), error) {
	cfg := f.Config

	decoder, err := remote.NewDecoder(cfg.Fetch.Encoding)
	if err != nil {
		return nil, nil, err
	}
	interval, err := cfg.PollInterval()
	if err != nil {
		return nil, nil, err
	}

	var (
		conn     remote.Connection
		name     string
		closeSSH = func() {}
	)

	if cfg.Remote.Local {
		conn = &remote.LocalConnection{Shell: cfg.Remote.Shell}
		name = "localhost"
	} else {
		sshCfg, err := f.sshConfig()
		if err != nil {
			return nil, nil, err
		}
		sshConn := remote.NewSSHConnection(sshCfg, logutils.Component(f.Logger, "ssh"))
		conn = sshConn
		name = fmt.Sprintf("%s@%s", sshCfg.User, net.JoinHostPort(sshCfg.Host, strconv.Itoa(sshCfg.Port)))
		closeSSH = func() { _ = sshConn.Close() }
	}

	session := remote.NewSession(conn, logutils.Component(f.Logger, "session").With().Str("host", name).Logger())
	if err := session.EnsureConnected(ctx); err != nil {
		closeSSH()
		return nil, nil, err
	}

	logger := f.Logger
	h := source.NewHost(ctx, session, source.HostOptions{
		Name:     name,
		Decoder:  decoder,
		Interval: interval,
		Logger:   logger.With().Str("host", name).Logger(),
		OnEmpty: func(path, pattern string) {
			logger.Info().Str("path", path).Str("pattern", pattern).Msg("no lines match")
		},
	})

	return h, func() {
		h.Close()
		closeSSH()
	}, nil
}

func (f *Flags) sshConfig() (remote.SSHConfig, error) {
	r := f.Config.Remote

	timeout, err := f.Config.ConnectTimeout()
	if err != nil {
		return remote.SSHConfig{}, err
	}

	password := r.Password
	if password == "" && r.IdentityFile == "" {
		password, err = promptPassword(r.User, r.Host)
		if err != nil {
			return remote.SSHConfig{}, err
		}
	}

	return remote.SSHConfig{
		Host:                  r.Host,
		Port:                  r.Port,
		User:                  r.User,
		Password:              password,
		IdentityFile:          r.IdentityFile,
		KnownHosts:            r.KnownHosts,
		InsecureIgnoreHostKey: r.InsecureIgnoreHostKey,
		Timeout:               timeout,
	}, nil
}

func promptPassword(user, host string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no password or identity file configured and stdin is not a terminal")
	}

	fmt.Fprintf(os.Stderr, "%s@%s's password: ", user, host)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
