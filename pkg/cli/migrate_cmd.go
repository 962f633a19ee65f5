package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/groupgraph/api/manager/app"
	"github.com/groupgraph/api/manager/domain"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				version, err := a.Repo.GetCounter(ctx, domain.UpdatesCounter)
				if err != nil {
					return fmt.Errorf("read updates counter: %w", err)
				}
				result := map[string]any{
					"database": a.Config.SQLite.Path,
					"updates":  version,
				}
				return render(cmd, result, func(w io.Writer) {
					fmt.Fprintf(w, "migrations applied to %s (updates counter %d)\n", a.Config.SQLite.Path, version)
				})
			})
		},
	}
}
