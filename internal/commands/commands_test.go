package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/TimelordUK/rtail/internal/config"
)

// writeLog writes a 30-line log where every fifth line is an error.
func writeLog(t *testing.T, dir, name string) string {
	t.Helper()
	var b strings.Builder
	for n := 1; n <= 30; n++ {
		if n%5 == 0 {
			fmt.Fprintf(&b, "12:00:%02d ERROR request %d failed\n", n, n)
		} else {
			fmt.Fprintf(&b, "12:00:%02d INFO request %d ok\n", n, n)
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func localFlags() *Flags {
	cfg := config.DefaultConfig()
	cfg.Remote.Local = true
	cfg.Fetch.PollInterval = "5ms"
	cfg.Fetch.ExportTimeout = "5s"
	return &Flags{Config: cfg, Logger: zerolog.Nop()}
}

func runApp(t *testing.T, flags *Flags, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := &cli.Command{Name: "rtail", Writer: &out}
	app = NewCountCmd(flags).Register(app)
	app = NewShowCmd(flags).Register(app)
	app = NewExportCmd(flags).Register(app)

	require.NoError(t, app.Run(context.Background(), append([]string{"rtail"}, args...)))
	return out.String()
}

func TestOverlay(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Remote.Host = "from-config"
	cfg.Remote.User = "svc"

	f := &Flags{Host: "from-flag", Port: 2222, PollInterval: "1s", Local: true}
	f.Overlay(cfg)

	assert.Equal(t, "from-flag", cfg.Remote.Host)
	assert.Equal(t, 2222, cfg.Remote.Port)
	assert.Equal(t, "svc", cfg.Remote.User, "unset flags keep config values")
	assert.Equal(t, "1s", cfg.Fetch.PollInterval)
	assert.True(t, cfg.Remote.Local)
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[remote]\nhost = \"logs\"\n[fetch]\npoll_interval = \"250ms\"\n"), 0o644))

	f := &Flags{ConfigPath: cfgPath, LogLevel: "debug", LogFile: filepath.Join(dir, "rtail.log")}
	closer, err := f.Setup()
	require.NoError(t, err)
	defer closer()

	assert.Equal(t, "logs", f.Config.Remote.Host)
	assert.Equal(t, "250ms", f.Config.Fetch.PollInterval)
	assert.Equal(t, zerolog.DebugLevel, f.Logger.GetLevel())
}

func TestSetup_ConfigLogLevelKeptWithoutFlag(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[remote]\nlocal = true\n[log]\nlevel = \"debug\"\n"), 0o644))

	f := &Flags{ConfigPath: cfgPath, LogFile: filepath.Join(dir, "rtail.log")}
	closer, err := f.Setup()
	require.NoError(t, err)
	defer closer()

	assert.Equal(t, "debug", f.Config.Log.Level)
	assert.Equal(t, zerolog.DebugLevel, f.Logger.GetLevel())

	f = &Flags{ConfigPath: cfgPath, LogLevel: "warn", LogFile: filepath.Join(dir, "rtail.log")}
	closer, err = f.Setup()
	require.NoError(t, err)
	defer closer()
	assert.Equal(t, zerolog.WarnLevel, f.Logger.GetLevel(), "the flag wins when given")
}

func TestSetup_Invalid(t *testing.T) {
	f := &Flags{ConfigPath: filepath.Join(t.TempDir(), "missing.toml"), LogLevel: "info"}
	_, err := f.Setup()
	require.Error(t, err, "no host and not local")
}

func TestCountCmd(t *testing.T) {
	dir := t.TempDir()
	a := writeLog(t, dir, "a.log")
	b := writeLog(t, dir, "b b.log")

	out := runApp(t, localFlags(), "count", a, b)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"30", a}, strings.Fields(lines[0]))
	assert.True(t, strings.HasPrefix(lines[1], "30"))

	out = runApp(t, localFlags(), "count", "--pattern", "ERROR", a)
	assert.Equal(t, []string{"6", a}, strings.Fields(out))
}

func TestShowCmd(t *testing.T) {
	path := writeLog(t, t.TempDir(), "app.log")

	out := runApp(t, localFlags(), "show", "--pattern", `ERROR request \d+`, "--from", "1", "--lines", "2", path)
	assert.Equal(t, "10 12:00:10 ERROR request 10 failed\n15 12:00:15 ERROR request 15 failed\n", out)

	out = runApp(t, localFlags(), "show", "--goto", "29", "--lines", "3", "--no-number", path)
	assert.Equal(t, "12:00:28 INFO request 28 ok\n12:00:29 INFO request 29 ok\n12:00:30 ERROR request 30 failed\n", out,
		"window clamps so it stays full at the end")
}

func TestExportCmd(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "app.log")
	dest := filepath.Join(dir, "errors.log")

	runApp(t, localFlags(), "export", "--out", dest, "--pattern", "ERROR", "--to", "2", "--number", path)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "[5] 12:00:05 ERROR request 5 failed\n[10] 12:00:10 ERROR request 10 failed\n", string(data))
}
