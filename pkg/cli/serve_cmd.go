package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/groupgraph/api/manager/app"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configName, _ := cmd.Root().PersistentFlags().GetString("config-name")
			configPath, _ := cmd.Root().PersistentFlags().GetString("config-path")

			restApp, err := app.NewRestApp(configName, configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := restApp.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return restApp.Stop(context.Background())
		},
	}
}
