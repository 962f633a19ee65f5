package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/groupgraph/api/manager/app"
	"github.com/groupgraph/api/manager/errs"
	"github.com/groupgraph/api/pkg/logger"
	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() int {
	logger.InitLoggerWithWriter(os.Stderr)
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]any{
				"error": err.Error(),
			}
			if policyErr, ok := errs.IsPolicyError(err); ok {
				errObj["kind"] = policyErr.Kind.Error()
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		configName string
		configPath string
		output     string
		actor      string
	)

	rootCmd := &cobra.Command{
		Use:           "groupgraph",
		Short:         "Group membership and permission request administration",
		Long:          "Command-line interface for the group graph: memberships, permission grants, ownership and permission requests.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("GROUPGRAPH_OUTPUT"); v != "" {
					output = v
				}
			}
			return validateOutputFormat(output)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configName, "config-name", "manager_config", "Config file name without extension")
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Directory searched for the config file")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "Username performing the change")

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newUserCmd())
	rootCmd.AddCommand(newGroupCmd())
	rootCmd.AddCommand(newPermissionCmd())
	rootCmd.AddCommand(newMemberCmd())
	rootCmd.AddCommand(newGrantCmd())
	rootCmd.AddCommand(newGrantsCmd())
	rootCmd.AddCommand(newHoldersCmd())
	rootCmd.AddCommand(newOwnersCmd())
	rootCmd.AddCommand(newGrantableCmd())
	rootCmd.AddCommand(newRequestCmd())
	rootCmd.AddCommand(newNotifyExpiringCmd())

	return rootCmd
}

// withApp starts the service graph for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	configName, _ := cmd.Root().PersistentFlags().GetString("config-name")
	configPath, _ := cmd.Root().PersistentFlags().GetString("config-path")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.Start(ctx, configName, configPath)
	if err != nil {
		return fmt.Errorf("start app: %w", err)
	}
	defer func() {
		if stopErr := a.Stop(ctx); stopErr != nil {
			logger.Logger(ctx).Warn().Err(stopErr).Msg("stop app")
		}
	}()
	return fn(ctx, a)
}

// actorID resolves --actor to a user id. An empty actor is the system (0).
func actorID(ctx context.Context, cmd *cobra.Command, a *app.App) (int64, error) {
	name, _ := cmd.Root().PersistentFlags().GetString("actor")
	if name == "" {
		return 0, nil
	}
	user, err := a.Service.GetUserByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("resolve actor: %w", err)
	}
	return user.ID, nil
}

// requireActor is actorID for commands that act on behalf of a user.
func requireActor(ctx context.Context, cmd *cobra.Command, a *app.App) (int64, error) {
	name, _ := cmd.Root().PersistentFlags().GetString("actor")
	if name == "" {
		return 0, fmt.Errorf("--actor is required")
	}
	return actorID(ctx, cmd, a)
}
