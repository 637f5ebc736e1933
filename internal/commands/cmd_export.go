package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/TimelordUK/rtail/internal/export"
	"github.com/TimelordUK/rtail/pkg/logutils"
)

type ExportCmd struct {
	flags *Flags

	// flags
	out     string
	pattern string
	from    int
	to      int
	number  bool
}

// NewExportCmd creates a new export command
func NewExportCmd(flags *Flags) *ExportCmd {
	return &ExportCmd{flags: flags}
}

// Register adds the export command to the application
func (cmd *ExportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "export",
		Usage:     "Copy a view of a remote file to a local file",
		UsageText: "rtail export --out FILE [--pattern REGEX] [--from N] [--to N] [--number] <path>",
		Description: `Fetches positions [--from, --to) of the view and writes them to --out.
The file is replaced atomically once every line has arrived.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "local file to write",
				Required:    true,
				Destination: &cmd.out,
			},
			&cli.StringFlag{
				Name:        "pattern",
				Aliases:     []string{"p"},
				Usage:       "only export lines matching this regular expression",
				Destination: &cmd.pattern,
			},
			&cli.IntFlag{
				Name:        "from",
				Usage:       "first position to export (0-based)",
				Destination: &cmd.from,
			},
			&cli.IntFlag{
				Name:        "to",
				Usage:       "position to stop before; -1 for the end of the view",
				Value:       -1,
				Destination: &cmd.to,
			},
			&cli.BoolFlag{
				Name:        "number",
				Usage:       "prefix each line with [line number]",
				Destination: &cmd.number,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ExportCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return errors.New("exactly one path is required")
	}
	path := c.Args().First()

	timeout, err := cmd.flags.Config.ExportTimeout()
	if err != nil {
		return err
	}

	h, closeHost, err := cmd.flags.openHost(ctx)
	if err != nil {
		return err
	}
	defer closeHost()

	seq, err := h.Open(path, cmd.pattern)
	if err != nil {
		return err
	}
	defer seq.Dispose()

	exporter := export.NewExporter(export.Options{
		Timeout: timeout,
		Number:  cmd.number,
		Logger:  logutils.Component(cmd.flags.Logger, "export"),
	})

	info, err := exporter.ExportRange(ctx, seq, cmd.from, cmd.to, cmd.out)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "wrote %d lines of %s to %s\n", info.Lines, info.SourcePath, info.OutPath)
	return nil
}
