package sweepcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quiplabs/quip/pkg/artifact"
	"github.com/quiplabs/quip/pkg/logger"
)

const sweepLongDesc string = `Delete generated audio files older than the retention window.

The server sweeps before every speech request on its own; this
command exists for reclaiming space on demand, e.g. after lowering
the retention window.

Examples:
  quip sweep --static public
  quip sweep --static /srv/quip/public --days 1`

const sweepShortDesc string = "Delete expired audio artifacts"

type sweepCommander struct {
	staticRoot string
	days       int
	debug      bool
}

func NewSweepCmd() *cobra.Command {
	cmder := &sweepCommander{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: sweepShortDesc,
		Long:  sweepLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.staticRoot, "static", "s", "public", "Static root holding the resp directory")
	cmd.Flags().IntVarP(&cmder.days, "days", "d", 2, "Retention window in days")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *sweepCommander) run(ctx context.Context, cmd *cobra.Command) error {
	log := logger.NewLogger("sweep", c.debug)
	defer log.Sync()

	janitor := artifact.NewJanitor(c.staticRoot, log)
	deleted, err := janitor.Sweep(ctx, c.days)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired artifact(s) under %s\n",
		deleted, artifact.Dir(c.staticRoot))

	return nil
}
