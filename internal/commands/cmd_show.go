package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/TimelordUK/rtail/internal/view"
)

type ShowCmd struct {
	flags *Flags

	// flags
	pattern  string
	from     int
	lines    int
	gotoLine int
	noNumber bool
}

// NewShowCmd creates a new show command
func NewShowCmd(flags *Flags) *ShowCmd {
	return &ShowCmd{flags: flags}
}

// Register adds the show command to the application
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Print a window of a remote file",
		UsageText: "rtail show [--pattern REGEX] [--from N | --goto LINE] [--lines N] <path>",
		Description: `Prints --lines lines of the view starting at position --from, or at the
position holding absolute line --goto. Only the lines shown are fetched.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "pattern",
				Aliases:     []string{"p"},
				Usage:       "only show lines matching this regular expression",
				Destination: &cmd.pattern,
			},
			&cli.IntFlag{
				Name:        "from",
				Usage:       "first position of the view to show (0-based)",
				Destination: &cmd.from,
			},
			&cli.IntFlag{
				Name:        "lines",
				Aliases:     []string{"n"},
				Usage:       "number of lines to show",
				Value:       20,
				Destination: &cmd.lines,
			},
			&cli.IntFlag{
				Name:        "goto",
				Aliases:     []string{"g"},
				Usage:       "start at this absolute line of the file (1-based)",
				Destination: &cmd.gotoLine,
			},
			&cli.BoolFlag{
				Name:        "no-number",
				Usage:       "omit line numbers",
				Destination: &cmd.noNumber,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
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

	w := view.NewWindow(seq, cmd.lines)
	w.SetShowLineNumbers(!cmd.noNumber)

	if cmd.gotoLine > 0 {
		found, err := w.GotoLine(ctx, cmd.gotoLine)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("line %d is not in the view of %s", cmd.gotoLine, path)
		}
	} else {
		if err := w.Refresh(ctx); err != nil {
			return err
		}
		w.GotoPosition(cmd.from)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lines, err := w.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("waiting for lines: %w", err)
	}

	if len(lines) > 0 {
		_, _ = fmt.Fprintln(c.Root().Writer, w.Render(lines))
	}
	fmt.Fprintf(os.Stderr, "%s: %d-%d of %d (%.0f%%)\n",
		path, w.Offset()+min(1, len(lines)), w.Offset()+len(lines), w.Size(), w.PercentScrolled())
	return nil
}
