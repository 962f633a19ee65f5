package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/groupgraph/api/manager/domain"
)

// CreatePermissionRequest inserts a pending request. A second pending request
// for the same group, permission and argument fails with domain.ErrConflict.
func (r *repo) CreatePermissionRequest(ctx context.Context, request *domain.PermissionRequest) error {
	if request == nil {
		return errors.New("nil permission request")
	}
	if !request.Status.Valid() {
		return fmt.Errorf("create permission request: %w: status %q", domain.ErrInvariant, request.Status)
	}
	request.RequestedAt = nowIfZero(request.RequestedAt)
	if request.ChangedAt.IsZero() {
		request.ChangedAt = request.RequestedAt
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO permission_requests (requester_id, group_id, permission_id, argument, status, requested_at, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		request.RequesterID, request.GroupID, request.PermissionID, request.Argument, request.Status,
		toMillis(request.RequestedAt), toMillis(request.ChangedAt))
	if err != nil {
		return fmt.Errorf("create permission request, err: %w", mapDBError(err))
	}
	request.ID, err = res.LastInsertId()
	return err
}

// UpdatePermissionRequestStatus moves the request from status from to status
// to. It fails with ErrInvalidTransition when the request is no longer in from.
func (r *repo) UpdatePermissionRequestStatus(ctx context.Context, requestID int64, from, to domain.RequestStatus, changedAt time.Time) error {
	if !to.Valid() {
		return fmt.Errorf("update permission request: %w: status %q", domain.ErrInvariant, to)
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE permission_requests SET status = ?, changed_at = ? WHERE id = ? AND status = ?`,
		to, toMillis(nowIfZero(changedAt)), requestID, from)
	if err != nil {
		return fmt.Errorf("update permission request %d, err: %w", requestID, mapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update permission request %d rows affected, err: %w", requestID, err)
	}
	if n == 0 {
		var current domain.RequestStatus
		err := r.q.QueryRowContext(ctx, `SELECT status FROM permission_requests WHERE id = ?`, requestID).Scan(&current)
		if err != nil {
			return fmt.Errorf("update permission request %d, err: %w", requestID, mapDBError(err))
		}
		return fmt.Errorf("update permission request %d from %s, now %s, err: %w", requestID, from, current, domain.ErrInvalidTransition)
	}
	return nil
}

func (r *repo) QueryPermissionRequests(ctx context.Context, opt *domain.QueryPermissionRequestOptions) error {
	if opt == nil {
		return domain.ErrNilQueryInput
	}
	f := &filter{}
	addIn(f, "pr.id", opt.IDs)
	addIn(f, "pr.group_id", opt.GroupIDs)
	addIn(f, "pr.permission_id", opt.PermissionIDs)
	addIn(f, "pr.argument", opt.Arguments)
	addIn(f, "pr.status", opt.Statuses)

	order := "ASC"
	if opt.NewestFirst {
		order = "DESC"
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT pr.id, pr.requester_id, pr.group_id, pr.permission_id, pr.argument, pr.status,
		        pr.requested_at, pr.changed_at, u.username, g.groupname, p.name
		 FROM permission_requests pr
		 JOIN users u ON u.id = pr.requester_id
		 JOIN access_groups g ON g.id = pr.group_id
		 JOIN permissions p ON p.id = pr.permission_id`+f.String()+`
		 ORDER BY pr.requested_at `+order+`, pr.id `+order,
		f.args...)
	if err != nil {
		return fmt.Errorf("find permission requests, err: %w", err)
	}
	defer rows.Close()

	var result []*domain.PermissionRequest
	for rows.Next() {
		var (
			pr                     domain.PermissionRequest
			status                 string
			requestedAt, changedAt int64
		)
		if err := rows.Scan(&pr.ID, &pr.RequesterID, &pr.GroupID, &pr.PermissionID, &pr.Argument, &status,
			&requestedAt, &changedAt, &pr.RequesterName, &pr.GroupName, &pr.PermissionName); err != nil {
			return fmt.Errorf("decode permission requests, err: %w", err)
		}
		if pr.Status, err = domain.ParseRequestStatus(status); err != nil {
			return fmt.Errorf("decode permission request %d: %w", pr.ID, err)
		}
		pr.RequestedAt = fromMillis(requestedAt)
		pr.ChangedAt = fromMillis(changedAt)
		result = append(result, &pr)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate permission requests, err: %w", err)
	}
	opt.Result = result
	return nil
}

func (r *repo) CreateStatusChange(ctx context.Context, change *domain.PermissionRequestStatusChange) error {
	if change == nil {
		return errors.New("nil status change")
	}
	change.ChangeAt = nowIfZero(change.ChangeAt)
	var from sql.NullString
	if change.FromStatus != nil {
		from = sql.NullString{String: string(*change.FromStatus), Valid: true}
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO permission_request_status_changes (request_id, from_status, to_status, user_id, change_at)
		 VALUES (?, ?, ?, ?, ?)`,
		change.RequestID, from, change.ToStatus, change.ChangedByID, toMillis(change.ChangeAt))
	if err != nil {
		return fmt.Errorf("create status change for request %d, err: %w", change.RequestID, mapDBError(err))
	}
	change.ID, err = res.LastInsertId()
	return err
}

func (r *repo) QueryStatusChanges(ctx context.Context, opt *domain.QueryStatusChangeOptions) error {
	if opt == nil {
		return domain.ErrNilQueryInput
	}
	f := &filter{}
	addIn(f, "sc.request_id", opt.RequestIDs)

	rows, err := r.q.QueryContext(ctx,
		`SELECT sc.id, sc.request_id, sc.from_status, sc.to_status, sc.user_id, sc.change_at, u.username
		 FROM permission_request_status_changes sc
		 JOIN users u ON u.id = sc.user_id`+f.String()+`
		 ORDER BY sc.change_at, sc.id`,
		f.args...)
	if err != nil {
		return fmt.Errorf("find status changes, err: %w", err)
	}
	defer rows.Close()

	var result []*domain.PermissionRequestStatusChange
	for rows.Next() {
		var (
			sc       domain.PermissionRequestStatusChange
			from     sql.NullString
			to       string
			changeAt int64
		)
		if err := rows.Scan(&sc.ID, &sc.RequestID, &from, &to, &sc.ChangedByID, &changeAt, &sc.ChangedByName); err != nil {
			return fmt.Errorf("decode status changes, err: %w", err)
		}
		if from.Valid {
			fromStatus, err := domain.ParseRequestStatus(from.String)
			if err != nil {
				return fmt.Errorf("decode status change %d: %w", sc.ID, err)
			}
			sc.FromStatus = &fromStatus
		}
		if sc.ToStatus, err = domain.ParseRequestStatus(to); err != nil {
			return fmt.Errorf("decode status change %d: %w", sc.ID, err)
		}
		sc.ChangeAt = fromMillis(changeAt)
		result = append(result, &sc)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate status changes, err: %w", err)
	}
	opt.Result = result
	return nil
}

func (r *repo) CreateComment(ctx context.Context, comment *domain.Comment) error {
	if comment == nil {
		return errors.New("nil comment")
	}
	if !comment.Target.Kind.Valid() {
		return fmt.Errorf("create comment: %w: target kind %d", domain.ErrInvariant, comment.Target.Kind)
	}
	comment.CreatedOn = nowIfZero(comment.CreatedOn)
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO comments (obj_type, obj_pk, user_id, comment, created_on) VALUES (?, ?, ?, ?, ?)`,
		comment.Target.Kind, comment.Target.ID, comment.UserID, comment.Comment, toMillis(comment.CreatedOn))
	if err != nil {
		return fmt.Errorf("create comment on %s %d, err: %w", comment.Target.Kind, comment.Target.ID, mapDBError(err))
	}
	comment.ID, err = res.LastInsertId()
	return err
}

func (r *repo) QueryComments(ctx context.Context, opt *domain.QueryCommentOptions) error {
	if opt == nil {
		return domain.ErrNilQueryInput
	}
	f := &filter{}
	if len(opt.Targets) > 0 {
		byKind := map[domain.CommentTargetKind][]int64{}
		var kinds []domain.CommentTargetKind
		for _, target := range opt.Targets {
			if !target.Kind.Valid() {
				return fmt.Errorf("query comments: %w: target kind %d", domain.ErrInvariant, target.Kind)
			}
			if _, ok := byKind[target.Kind]; !ok {
				kinds = append(kinds, target.Kind)
			}
			byKind[target.Kind] = append(byKind[target.Kind], target.ID)
		}
		var ors []string
		var args []any
		for _, kind := range kinds {
			clause, inArgs := inClause("obj_pk", byKind[kind])
			ors = append(ors, "(obj_type = ? AND "+clause+")")
			args = append(args, kind)
			args = append(args, inArgs...)
		}
		f.add("("+strings.Join(ors, " OR ")+")", args...)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT id, obj_type, obj_pk, user_id, comment, created_on FROM comments`+f.String()+` ORDER BY id`,
		f.args...)
	if err != nil {
		return fmt.Errorf("find comments, err: %w", err)
	}
	defer rows.Close()

	var result []*domain.Comment
	for rows.Next() {
		var (
			c         domain.Comment
			createdOn int64
		)
		if err := rows.Scan(&c.ID, &c.Target.Kind, &c.Target.ID, &c.UserID, &c.Comment, &createdOn); err != nil {
			return fmt.Errorf("decode comments, err: %w", err)
		}
		if !c.Target.Kind.Valid() {
			return fmt.Errorf("decode comment %d: %w: target kind %d", c.ID, domain.ErrInvariant, c.Target.Kind)
		}
		c.CreatedOn = fromMillis(createdOn)
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate comments, err: %w", err)
	}
	opt.Result = result
	return nil
}
