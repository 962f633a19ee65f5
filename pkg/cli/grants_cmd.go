package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/groupgraph/api/manager/app"
	"github.com/groupgraph/api/manager/domain"
	"github.com/spf13/cobra"
)

type grantView struct {
	Permission string `json:"permission"`
	Argument   string `json:"argument"`
	Group      string `json:"group"`
	GrantedOn  string `json:"granted_on,omitempty"`
}

func grantViews(grants []*domain.ResolvedGrant) []grantView {
	views := make([]grantView, 0, len(grants))
	for _, g := range grants {
		views = append(views, grantView{
			Permission: g.Permission,
			Argument:   g.Argument,
			Group:      g.GroupName,
			GrantedOn:  formatTime(g.GrantedOn),
		})
	}
	return views
}

func renderGrants(cmd *cobra.Command, grants []*domain.ResolvedGrant) error {
	views := grantViews(grants)
	return render(cmd, views, func(w io.Writer) {
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			rows = append(rows, []string{v.Permission, v.Argument, v.Group, v.GrantedOn})
		}
		printTable(w, []string{"permission", "argument", "group", "granted_on"}, rows)
	})
}

func newGrantsCmd() *cobra.Command {
	var direct bool
	cmd := &cobra.Command{
		Use:   "grants <username>",
		Short: "List the permissions a user holds",
		Long:  "List the permissions a user holds through every group reached from them. With --direct only groups the user belongs to directly count.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				user, err := a.Service.GetUserByName(ctx, args[0])
				if err != nil {
					return err
				}
				now := time.Now()
				var grants []*domain.ResolvedGrant
				if direct {
					grants, err = a.Service.DirectPermissions(ctx, user.ID, now)
				} else {
					grants, err = a.Service.PermissionsForUser(ctx, user.ID, now)
				}
				if err != nil {
					return err
				}
				return renderGrants(cmd, grants)
			})
		},
	}
	cmd.Flags().BoolVar(&direct, "direct", false, "Only count direct group memberships")
	return cmd
}

func newHoldersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "holders <permission>",
		Short: "List the enabled groups granted a permission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				grants, err := a.Service.PermissionGrantsForPermission(ctx, args[0])
				if err != nil {
					return err
				}
				return renderGrants(cmd, grants)
			})
		},
	}
}

type ownerView struct {
	Group    string `json:"group"`
	Argument string `json:"argument"`
}

func newOwnersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "owners <permission> <argument>",
		Short: "List the groups that may approve a permission request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				owners, err := a.Service.OwnerArgList(ctx, args[0], args[1], nil, time.Now())
				if err != nil {
					return err
				}
				views := make([]ownerView, 0, len(owners))
				for _, o := range owners {
					views = append(views, ownerView{Group: o.Group.Name, Argument: o.Argument})
				}
				return render(cmd, views, func(w io.Writer) {
					rows := make([][]string, 0, len(views))
					for _, v := range views {
						rows = append(rows, []string{v.Group, v.Argument})
					}
					printTable(w, []string{"group", "argument"}, rows)
				})
			})
		},
	}
}

type grantableView struct {
	Permission string `json:"permission"`
	Argument   string `json:"argument"`
}

func newGrantableCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "grantable [username]",
		Short: "List the permissions a user may grant",
		Long:  "List the (permission, argument) pairs a user may grant. With --all print the global grantable map instead.",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("a username is required unless --all is set")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				now := time.Now()
				if all {
					grantable, err := a.Service.GrantablePermissions(ctx, a.Config.Ownership.RestrictedPermissions, now)
					if err != nil {
						return err
					}
					return render(cmd, grantable, func(w io.Writer) {
						names := make([]string, 0, len(grantable))
						for name := range grantable {
							names = append(names, name)
						}
						sort.Strings(names)
						rows := make([][]string, 0, len(names))
						for _, name := range names {
							rows = append(rows, []string{name, strings.Join(grantable[name], ",")})
						}
						printTable(w, []string{"permission", "arguments"}, rows)
					})
				}

				user, err := a.Service.GetUserByName(ctx, args[0])
				if err != nil {
					return err
				}
				grantable, err := a.Service.UserGrantablePermissions(ctx, user.ID, now)
				if err != nil {
					return err
				}
				out := make([]grantableView, 0, len(grantable))
				rows := make([][]string, 0, len(grantable))
				for _, g := range grantable {
					out = append(out, grantableView{Permission: g.Permission.Name, Argument: g.Argument})
					rows = append(rows, []string{g.Permission.Name, g.Argument})
				}
				return render(cmd, out, func(w io.Writer) {
					printTable(w, []string{"permission", "argument"}, rows)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Print the grantable map of every permission")
	return cmd
}
