package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/groupgraph/api/manager/app"
	"github.com/groupgraph/api/manager/domain"
	"github.com/spf13/cobra"
)

type statusChangeView struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	ChangedBy string `json:"changed_by"`
	ChangedAt string `json:"changed_at"`
	Comment   string `json:"comment,omitempty"`
}

type requestView struct {
	ID          int64              `json:"id"`
	Requester   string             `json:"requester"`
	Group       string             `json:"group"`
	Permission  string             `json:"permission"`
	Argument    string             `json:"argument"`
	Status      string             `json:"status"`
	RequestedAt string             `json:"requested_at"`
	History     []statusChangeView `json:"history,omitempty"`
}

func newRequestView(r *domain.PermissionRequest) requestView {
	return requestView{
		ID:          r.ID,
		Requester:   r.RequesterName,
		Group:       r.GroupName,
		Permission:  r.PermissionName,
		Argument:    r.Argument,
		Status:      string(r.Status),
		RequestedAt: formatTime(r.RequestedAt),
	}
}

func requestRows(views []requestView) [][]string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{strconv.FormatInt(v.ID, 10), v.Requester, v.Group, v.Permission, v.Argument, v.Status, v.RequestedAt})
	}
	return rows
}

var requestColumns = []string{"id", "requester", "group", "permission", "argument", "status", "requested_at"}

func renderRequest(cmd *cobra.Command, r *domain.PermissionRequest) error {
	view := newRequestView(r)
	return render(cmd, view, func(w io.Writer) {
		printTable(w, requestColumns, requestRows([]requestView{view}))
	})
}

func newRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Create, action and list permission requests",
	}
	cmd.AddCommand(newRequestCreateCmd())
	cmd.AddCommand(newRequestUpdateCmd())
	cmd.AddCommand(newRequestListCmd())
	cmd.AddCommand(newRequestShowCmd())
	return cmd
}

func newRequestCreateCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "create <group> <permission> <argument>",
		Short: "Request a permission for a group on behalf of --actor",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				requester, err := requireActor(ctx, cmd, a)
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
				request, err := a.Service.CreateRequest(ctx, domain.CreateRequestOptions{
					RequesterID:  requester,
					GroupID:      group.ID,
					PermissionID: permission.ID,
					Argument:     args[2],
					Reason:       reason,
					Now:          time.Now(),
				})
				if err != nil {
					return err
				}
				return renderRequest(cmd, request)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the permission is needed")
	return cmd
}

func newRequestUpdateCmd() *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "update <request-id> <actioned|cancelled>",
		Short: "Action or cancel a pending request on behalf of --actor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid request id %q: %w", args[0], err)
			}
			status, err := domain.ParseRequestStatus(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				actor, err := requireActor(ctx, cmd, a)
				if err != nil {
					return err
				}
				request, err := a.Service.TransitionRequest(ctx, domain.TransitionRequestOptions{
					RequestID: requestID,
					ActorID:   actor,
					NewStatus: status,
					Comment:   comment,
					Now:       time.Now(),
				})
				if err != nil {
					return err
				}
				return renderRequest(cmd, request)
			})
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "Comment stored with the status change")
	return cmd
}

func newRequestListCmd() *cobra.Command {
	var (
		status string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the requests --actor may act on as an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var statusFilter *domain.RequestStatus
			if status != "" {
				s, err := domain.ParseRequestStatus(status)
				if err != nil {
					return err
				}
				statusFilter = &s
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				owner, err := requireActor(ctx, cmd, a)
				if err != nil {
					return err
				}
				opt := &domain.ListRequestsOptions{
					OwnerID: owner,
					Status:  statusFilter,
					Limit:   limit,
					Offset:  offset,
					Now:     time.Now(),
				}
				if err := a.Service.ListRequestsForOwner(ctx, opt); err != nil {
					return err
				}

				views := make([]requestView, 0, len(opt.Result.Requests))
				for _, r := range opt.Result.Requests {
					view := newRequestView(r)
					for _, change := range opt.Result.StatusChanges[r.ID] {
						view.History = append(view.History, newStatusChangeView(change, opt.Result.Comments[change.ID]))
					}
					views = append(views, view)
				}
				result := map[string]any{"total": opt.Result.Total, "requests": views}
				return render(cmd, result, func(w io.Writer) {
					printTable(w, requestColumns, requestRows(views))
					fmt.Fprintf(w, "showing %d of %d\n", len(views), opt.Result.Total)
				})
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only list requests in this status")
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size, 0 for everything")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of requests to skip")
	return cmd
}

func newRequestShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <request-id>",
		Short: "Show one request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid request id %q: %w", args[0], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				request, err := a.Service.GetRequest(ctx, requestID)
				if err != nil {
					return err
				}
				return renderRequest(cmd, request)
			})
		},
	}
}

func newStatusChangeView(change *domain.PermissionRequestStatusChange, comment *domain.Comment) statusChangeView {
	view := statusChangeView{
		To:        string(change.ToStatus),
		ChangedBy: change.ChangedByName,
		ChangedAt: formatTime(change.ChangeAt),
	}
	if change.FromStatus != nil {
		view.From = string(*change.FromStatus)
	}
	if comment != nil {
		view.Comment = comment.Comment
	}
	return view
}
