package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

type CountCmd struct {
	flags *Flags

	// flags
	pattern  string
	parallel int
}

// NewCountCmd creates a new count command
func NewCountCmd(flags *Flags) *CountCmd {
	return &CountCmd{flags: flags}
}

// Register adds the count command to the application
func (cmd *CountCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "count",
		Usage:     "Count the lines of remote files",
		UsageText: "rtail count [--pattern REGEX] <path>...",
		Description: `Runs the search for every path concurrently and prints how many lines
each view holds. With --pattern only matching lines are counted.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "pattern",
				Aliases:     []string{"p"},
				Usage:       "only count lines matching this regular expression",
				Destination: &cmd.pattern,
			},
			&cli.IntFlag{
				Name:        "parallel",
				Usage:       "maximum searches in flight",
				Value:       4,
				Destination: &cmd.parallel,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *CountCmd) run(ctx context.Context, c *cli.Command) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errors.New("at least one path is required")
	}

	h, closeHost, err := cmd.flags.openHost(ctx)
	if err != nil {
		return err
	}
	defer closeHost()

	counts := make([]int, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cmd.parallel, 1))
	for i, path := range paths {
		g.Go(func() error {
			seq, err := h.Open(path, cmd.pattern)
			if err != nil {
				return err
			}
			defer seq.Dispose()

			n, err := seq.Size(gctx)
			if err != nil {
				return fmt.Errorf("count %s: %w", path, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	for i, path := range paths {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", counts[i], path)
	}
	return w.Flush()
}
