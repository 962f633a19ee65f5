package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/groupgraph/api/manager/app"
	"github.com/spf13/cobra"
)

func newNotifyExpiringCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify-expiring",
		Short: "Warn members whose group membership expires soon",
		Long: `Send one expiration warning per membership that expires within the
configured notice window. Warnings already sent for the same expiration are
skipped, so the command is safe to run from cron.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				sent, err := a.Service.NotifyExpiringMemberships(ctx, time.Now())
				if err != nil {
					return err
				}
				return render(cmd, map[string]any{"sent": sent}, func(w io.Writer) {
					fmt.Fprintf(w, "sent %d expiration warnings\n", sent)
				})
			})
		},
	}
}
