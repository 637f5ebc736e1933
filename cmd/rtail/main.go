package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/TimelordUK/rtail/internal/commands"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

func build() string {
	v, c := version, commit
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
				}
			}
		}
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return fmt.Sprintf("%s (%s)", v, c)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logCloser func()

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "rtail",
		Usage:     "Page through log files on remote hosts",
		UsageText: "rtail [global options] command [command options]",
		Description: `rtail reads files on a remote host over SSH without copying them.

A view is the file filtered by a regular expression. The matching line
numbers are found once with grep on the remote side; line contents are
fetched with sed only when they are looked at.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (trace, debug, info, warn, error); overrides [log] level",
				Sources:     cli.EnvVars("RTAIL_LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stderr)",
				Sources:     cli.EnvVars("RTAIL_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file (.toml, .yaml or .yml)",
				Sources:     cli.EnvVars("RTAIL_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "host",
				Aliases:     []string{"H"},
				Usage:       "remote host",
				Sources:     cli.EnvVars("RTAIL_HOST"),
				Destination: &flags.Host,
			},
			&cli.IntFlag{
				Name:        "port",
				Usage:       "SSH port",
				Destination: &flags.Port,
			},
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "SSH user",
				Sources:     cli.EnvVars("RTAIL_USER"),
				Destination: &flags.User,
			},
			&cli.StringFlag{
				Name:        "identity",
				Aliases:     []string{"i"},
				Usage:       "private key for SSH auth",
				Destination: &flags.Identity,
			},
			&cli.BoolFlag{
				Name:        "local",
				Usage:       "read files on this machine instead of over SSH",
				Destination: &flags.Local,
			},
			&cli.StringFlag{
				Name:        "encoding",
				Usage:       "character encoding of the remote files",
				Sources:     cli.EnvVars("RTAIL_ENCODING"),
				Destination: &flags.Encoding,
			},
			&cli.StringFlag{
				Name:        "poll-interval",
				Usage:       "how often idle views check for lines to fetch",
				Destination: &flags.PollInterval,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			closer, err := flags.Setup()
			if err != nil {
				return ctx, err
			}
			log.Logger = flags.Logger
			logCloser = closer
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewCountCmd(flags).Register(app)
	app = commands.NewShowCmd(flags).Register(app)
	app = commands.NewExportCmd(flags).Register(app)

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}

	stop()
	os.Exit(exitCode)
}
