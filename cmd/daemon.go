package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/zepp-steps-cli/internal/pacer"
	"github.com/bnema/zepp-steps-cli/internal/ports"
)

func newDaemonCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the pacing loop until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Pacing active schedules every %s, Ctrl-C to stop\n", app.pacerInterval)

			p := pacer.New(app.scheduleRepo, app.submissions, ports.SystemClock{}, app.pacerInterval)
			return p.Run(ctx)
		},
	}
}
