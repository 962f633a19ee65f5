package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/groupgraph/api/manager/app"
	"github.com/groupgraph/api/manager/domain"
	"github.com/spf13/cobra"
)

type principalView struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

func renderPrincipal(cmd *cobra.Command, kind string, view principalView) error {
	return render(cmd, view, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s (id %d, enabled %t)\n", kind, view.Name, view.ID, view.Enabled)
	})
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newEnableCmd("user", func(ctx context.Context, a *app.App, actor int64, name string, enabled bool) error {
		user, err := a.Service.GetUserByName(ctx, name)
		if err != nil {
			return err
		}
		return a.Service.SetUserEnabled(ctx, actor, user.ID, enabled)
	}))
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var (
		roleUser       bool
		serviceAccount bool
	)
	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				actor, err := actorID(ctx, cmd, a)
				if err != nil {
					return err
				}
				user := &domain.User{
					Username:       args[0],
					Enabled:        true,
					RoleUser:       roleUser,
					ServiceAccount: serviceAccount,
				}
				if err := a.Service.CreateUser(ctx, actor, user); err != nil {
					return err
				}
				return renderPrincipal(cmd, "user", principalView{ID: user.ID, Name: user.Username, Enabled: user.Enabled})
			})
		},
	}
	cmd.Flags().BoolVar(&roleUser, "role-user", false, "Create a role user")
	cmd.Flags().BoolVar(&serviceAccount, "service-account", false, "Create a service account")
	return cmd
}

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups",
	}
	cmd.AddCommand(newGroupCreateCmd())
	cmd.AddCommand(newEnableCmd("group", func(ctx context.Context, a *app.App, actor int64, name string, enabled bool) error {
		group, err := a.Service.GetGroupByName(ctx, name)
		if err != nil {
			return err
		}
		return a.Service.SetGroupEnabled(ctx, actor, group.ID, enabled)
	}))
	return cmd
}

func newGroupCreateCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				actor, err := actorID(ctx, cmd, a)
				if err != nil {
					return err
				}
				group := &domain.Group{Name: args[0], Description: description, Enabled: true}
				if err := a.Service.CreateGroup(ctx, actor, group); err != nil {
					return err
				}
				return renderPrincipal(cmd, "group", principalView{ID: group.ID, Name: group.Name, Enabled: group.Enabled})
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Group description")
	return cmd
}

// newEnableCmd builds the enable and disable subcommands sharing one setter.
func newEnableCmd(kind string, set func(ctx context.Context, a *app.App, actor int64, name string, enabled bool) error) *cobra.Command {
	var disable bool
	cmd := &cobra.Command{
		Use:   "enable <name>",
		Short: fmt.Sprintf("Enable or disable a %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				actor, err := actorID(ctx, cmd, a)
				if err != nil {
					return err
				}
				if err := set(ctx, a, actor, args[0], !disable); err != nil {
					return err
				}
				return render(cmd, map[string]any{"name": args[0], "enabled": !disable}, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s enabled: %t\n", kind, args[0], !disable)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&disable, "disable", false, "Disable instead of enable")
	return cmd
}

func newPermissionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permission",
		Short: "Manage permissions",
	}
	cmd.AddCommand(newPermissionCreateCmd())
	cmd.AddCommand(newPermissionAuditCmd())
	return cmd
}

func newPermissionCreateCmd() *cobra.Command {
	var (
		description string
		audited     bool
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a permission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				actor, err := actorID(ctx, cmd, a)
				if err != nil {
					return err
				}
				permission := &domain.Permission{Name: args[0], Description: description, Audited: audited, Enabled: true}
				if err := a.Service.CreatePermission(ctx, actor, permission); err != nil {
					return err
				}
				view := map[string]any{"id": permission.ID, "name": permission.Name, "audited": permission.Audited}
				return render(cmd, view, func(w io.Writer) {
					fmt.Fprintf(w, "permission %s (id %d, audited %t)\n", permission.Name, permission.ID, permission.Audited)
				})
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Permission description")
	cmd.Flags().BoolVar(&audited, "audited", false, "Require auditors for groups granted this permission")
	return cmd
}

func newPermissionAuditCmd() *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "audit <name>",
		Short: "Turn auditing of a permission on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				actor, err := actorID(ctx, cmd, a)
				if err != nil {
					return err
				}
				permission, err := a.Service.GetPermissionByName(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.Service.SetPermissionAudited(ctx, actor, permission.ID, !off); err != nil {
					return err
				}
				return render(cmd, map[string]any{"name": permission.Name, "audited": !off}, func(w io.Writer) {
					fmt.Fprintf(w, "permission %s audited: %t\n", permission.Name, !off)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "Turn auditing off")
	return cmd
}

// parseMember reads "user:<name>", "group:<name>" or a bare username.
func parseMember(ctx context.Context, a *app.App, ref string) (domain.Member, error) {
	kind, name, found := strings.Cut(ref, ":")
	if !found {
		kind, name = "user", ref
	}
	switch kind {
	case "user":
		user, err := a.Service.GetUserByName(ctx, name)
		if err != nil {
			return domain.Member{}, err
		}
		return user.Member(), nil
	case "group":
		group, err := a.Service.GetGroupByName(ctx, name)
		if err != nil {
			return domain.Member{}, err
		}
		return group.Member(), nil
	default:
		return domain.Member{}, fmt.Errorf("unknown member kind %q: use user:<name> or group:<name>", kind)
	}
}

func newMemberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage group membership edges",
	}
	cmd.AddCommand(newMemberAddCmd())
	cmd.AddCommand(newMemberRevokeCmd())
	return cmd
}

func newMemberAddCmd() *cobra.Command {
	var (
		role    string
		expires string
	)
	cmd := &cobra.Command{
		Use:   "add <group> <member>",
		Short: "Add a user or group to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			edgeRole, err := domain.ParseGroupEdgeRole(role)
			if err != nil {
				return err
			}
			var expiration *time.Time
			if expires != "" {
				t, err := time.Parse(time.RFC3339, expires)
				if err != nil {
					return fmt.Errorf("parse --expires: %w", err)
				}
				expiration = &t
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				actor, err := actorID(ctx, cmd, a)
				if err != nil {
					return err
				}
				group, err := a.Service.GetGroupByName(ctx, args[0])
				if err != nil {
					return err
				}
				member, err := parseMember(ctx, a, args[1])
				if err != nil {
					return err
				}
				err = a.Service.AddMember(ctx, actor, domain.AddMemberOptions{
					GroupID:    group.ID,
					Member:     member,
					Role:       edgeRole,
					Expiration: expiration,
				})
				if err != nil {
					return err
				}
				view := map[string]any{"group": group.Name, "member": args[1], "role": edgeRole.String(), "expiration": formatOptionalTime(expiration)}
				return render(cmd, view, func(w io.Writer) {
					fmt.Fprintf(w, "added %s to %s as %s (expires %s)\n", args[1], group.Name, edgeRole, formatOptionalTime(expiration))
				})
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "member", "Edge role (member, manager, owner, np-owner)")
	cmd.Flags().StringVar(&expires, "expires", "", "Expiration time in RFC3339")
	return cmd
}

func newMemberRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <group> <member>",
		Short: "Remove a user or group from a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				actor, err := actorID(ctx, cmd, a)
				if err != nil {
					return err
				}
				group, err := a.Service.GetGroupByName(ctx, args[0])
				if err != nil {
					return err
				}
				member, err := parseMember(ctx, a, args[1])
				if err != nil {
					return err
				}
				if err := a.Service.RevokeMember(ctx, actor, group.ID, member); err != nil {
					return err
				}
				return render(cmd, map[string]any{"group": group.Name, "member": args[1]}, func(w io.Writer) {
					fmt.Fprintf(w, "revoked %s from %s\n", args[1], group.Name)
				})
			})
		},
	}
}

func newGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant or revoke permissions on groups",
	}
	cmd.AddCommand(newGrantChangeCmd("add", "Grant a permission with an argument to a group", true))
	cmd.AddCommand(newGrantChangeCmd("revoke", "Revoke a permission grant from a group", false))
	return cmd
}

func newGrantChangeCmd(use, short string, grant bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <group> <permission> [argument]",
		Short: short,
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			argument := ""
			if len(args) == 3 {
				argument = args[2]
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				actor, err := actorID(ctx, cmd, a)
				if err != nil {
					return err
				}
				group, err := a.Service.GetGroupByName(ctx, args[0])
				if err != nil {
					return err
				}
				permission, err := a.Service.GetPermissionByName(ctx, args[1])
				if err != nil {
					return err
				}
				verb := "granted"
				if grant {
					err = a.Service.GrantPermission(ctx, actor, group.ID, permission.ID, argument)
				} else {
					verb = "revoked"
					err = a.Service.RevokePermission(ctx, actor, group.ID, permission.ID, argument)
				}
				if err != nil {
					return err
				}
				view := map[string]any{"group": group.Name, "permission": permission.Name, "argument": argument, "action": verb}
				return render(cmd, view, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s %q on %s\n", verb, permission.Name, argument, group.Name)
				})
			})
		},
	}
}
