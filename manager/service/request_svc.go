package service

import (
	"context"
	"fmt"
	"time"

	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/manager/errs"
	"github.com/groupgraph/api/pkg/logger"
	"github.com/pkg/errors"
)

// CreateRequest files a pending request for the group to be granted
// (permission, argument) and notifies the groups able to approve it.
func (svc *Service) CreateRequest(ctx context.Context, opt domain.CreateRequestOptions) (*domain.PermissionRequest, error) {
	ctx, opID := svc.startOperation(ctx, "create_request")
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}

	group, err := svc.getGroup(ctx, opt.GroupID)
	if err != nil {
		return nil, err
	}
	permission, err := getPermission(ctx, svc.Repo, opt.PermissionID)
	if err != nil {
		return nil, err
	}
	requester, err := getUser(ctx, svc.Repo, opt.RequesterID)
	if err != nil {
		return nil, err
	}

	grantOpt := &domain.QueryPermissionMapOptions{
		GroupIDs:      []int64{group.ID},
		PermissionIDs: []int64{permission.ID},
		Arguments:     []string{opt.Argument},
	}
	if err := svc.Repo.QueryPermissionMaps(ctx, grantOpt); err != nil {
		return nil, err
	}
	if len(grantOpt.Result) > 0 {
		return nil, svc.reject("create_request", errs.NewPolicyError(domain.ErrRequestAlreadyGranted,
			"group %s already has %s %q", group.Name, permission.Name, opt.Argument))
	}

	pendingOpt := &domain.QueryPermissionRequestOptions{
		GroupIDs:      []int64{group.ID},
		PermissionIDs: []int64{permission.ID},
		Arguments:     []string{opt.Argument},
		Statuses:      []domain.RequestStatus{domain.RequestStatusPending},
	}
	if err := svc.Repo.QueryPermissionRequests(ctx, pendingOpt); err != nil {
		return nil, err
	}
	if len(pendingOpt.Result) > 0 {
		return nil, svc.reject("create_request", alreadyRequested(group, permission, opt.Argument))
	}

	owners, err := svc.OwnerArgList(ctx, permission.Name, opt.Argument, nil, now)
	if err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return nil, svc.reject("create_request", errs.NewPolicyError(domain.ErrNoOwnersAvailable,
			"nobody can approve %s %q", permission.Name, opt.Argument))
	}

	request := &domain.PermissionRequest{
		RequesterID:    requester.ID,
		GroupID:        group.ID,
		PermissionID:   permission.ID,
		Argument:       opt.Argument,
		Status:         domain.RequestStatusPending,
		RequestedAt:    now,
		ChangedAt:      now,
		RequesterName:  requester.Username,
		GroupName:      group.Name,
		PermissionName: permission.Name,
	}
	err = svc.Repo.WithTx(ctx, func(ctx context.Context, repo domain.Repository) error {
		if err := repo.CreatePermissionRequest(ctx, request); err != nil {
			return err
		}
		return appendStatusChange(ctx, repo, request.ID, nil, domain.RequestStatusPending, requester.ID, opt.Reason, now)
	})
	if errors.Is(err, domain.ErrConflict) {
		return nil, svc.reject("create_request", alreadyRequested(group, permission, opt.Argument))
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "create request for group %s", group.Name)
	}
	svc.metricCollector.requestTransitions.WithLabelValues(string(domain.RequestStatusPending)).Inc()
	logger.Logger(ctx).Info().
		Int64("request_id", request.ID).
		Str("group", group.Name).
		Str("permission", permission.Name).
		Str("argument", opt.Argument).
		Msg("permission request created")

	svc.audit(ctx, opID, &domain.AuditLog{
		ActorID:        requester.ID,
		Action:         domain.AuditActionCreatePermRequest,
		Description:    fmt.Sprintf("Created permission request for %s, %s", permission.Name, opt.Argument),
		OnGroupID:      group.ID,
		OnUserID:       requester.ID,
		OnPermissionID: permission.ID,
	})

	recipients, err := usernamesOf(ctx, svc.Repo, notifiedOwnerIDs(owners), now)
	if err != nil {
		logger.Logger(ctx).Error().Err(err).Int64("request_id", request.ID).Msg("resolve request approvers failed")
		return request, nil
	}
	svc.notify(ctx, domain.Notification{
		Recipients: recipients,
		Subject:    fmt.Sprintf("Request for permission: %s", permission.Name),
		Template:   "pending_permission_request",
		Context: map[string]any{
			"user_name":       requester.Username,
			"group_name":      group.Name,
			"permission_name": permission.Name,
			"argument":        opt.Argument,
			"reason":          opt.Reason,
			"request_id":      request.ID,
		},
	})
	return request, nil
}

func alreadyRequested(group *domain.Group, permission *domain.Permission, argument string) error {
	return errs.NewPolicyError(domain.ErrRequestAlreadyExists,
		"group %s already has a pending request for %s %q", group.Name, permission.Name, argument)
}

// notifiedOwnerIDs picks the owners told about a new request: the owners of
// specific argument patterns, or the wildcard owners when there are none.
func notifiedOwnerIDs(owners []*domain.OwnerArg) []int64 {
	var specific, wildcard []int64
	for _, owner := range owners {
		if owner.Argument == domain.WildcardArgument {
			wildcard = append(wildcard, owner.Group.ID)
		} else {
			specific = append(specific, owner.Group.ID)
		}
	}
	if len(specific) > 0 {
		return specific
	}
	return wildcard
}

func appendStatusChange(ctx context.Context, repo domain.Repository, requestID int64, from *domain.RequestStatus, to domain.RequestStatus, actorID int64, comment string, now time.Time) error {
	change := &domain.PermissionRequestStatusChange{
		RequestID:   requestID,
		FromStatus:  from,
		ToStatus:    to,
		ChangedByID: actorID,
		ChangeAt:    now,
	}
	if err := repo.CreateStatusChange(ctx, change); err != nil {
		return err
	}
	return repo.CreateComment(ctx, &domain.Comment{
		Target:    change.CommentTarget(),
		UserID:    actorID,
		Comment:   comment,
		CreatedOn: now,
	})
}

// TransitionRequest moves a request to a new status. Actioning grants the
// permission, after the audit gate when the permission is audited.
func (svc *Service) TransitionRequest(ctx context.Context, opt domain.TransitionRequestOptions) (*domain.PermissionRequest, error) {
	ctx, opID := svc.startOperation(ctx, "transition_request")
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}
	if !opt.NewStatus.Valid() {
		return nil, fmt.Errorf("transition request %d: %w: status %q", opt.RequestID, domain.ErrInvariant, opt.NewStatus)
	}

	request, err := svc.GetRequest(ctx, opt.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Status == opt.NewStatus {
		return request, nil
	}
	if request.Status.IsTerminal() {
		return nil, svc.reject("transition_request", errs.NewPolicyError(domain.ErrInvalidTransition,
			"request %d is already %s", request.ID, request.Status))
	}
	actor, err := getUser(ctx, svc.Repo, opt.ActorID)
	if err != nil {
		return nil, err
	}

	if opt.NewStatus == domain.RequestStatusActioned {
		permission, err := getPermission(ctx, svc.Repo, request.PermissionID)
		if err != nil {
			return nil, err
		}
		if permission.Audited {
			if err := svc.AssertControllersAreAuditors(ctx, request.GroupID, now); err != nil {
				if _, ok := errs.IsPolicyError(err); ok {
					return nil, svc.reject("transition_request", err)
				}
				return nil, err
			}
		}
	}

	// The status update only applies while the request is still in from, so
	// a concurrent transition that committed first makes this one roll back.
	from := request.Status
	err = svc.Repo.WithTx(ctx, func(ctx context.Context, repo domain.Repository) error {
		if err := repo.UpdatePermissionRequestStatus(ctx, request.ID, from, opt.NewStatus, now); err != nil {
			return err
		}
		if err := appendStatusChange(ctx, repo, request.ID, &from, opt.NewStatus, actor.ID, opt.Comment, now); err != nil {
			return err
		}
		if opt.NewStatus != domain.RequestStatusActioned {
			return nil
		}
		return repo.CreatePermissionMap(ctx, &domain.PermissionMap{
			PermissionID: request.PermissionID,
			GroupID:      request.GroupID,
			Argument:     request.Argument,
			GrantedOn:    now,
		})
	})
	if errors.Is(err, domain.ErrInvalidTransition) {
		current, getErr := svc.GetRequest(ctx, request.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == opt.NewStatus {
			return current, nil
		}
		return nil, svc.reject("transition_request", errs.NewPolicyError(domain.ErrInvalidTransition,
			"request %d is already %s", current.ID, current.Status))
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "transition request %d to %s", request.ID, opt.NewStatus)
	}
	request.Status = opt.NewStatus
	request.ChangedAt = now
	svc.metricCollector.requestTransitions.WithLabelValues(string(opt.NewStatus)).Inc()
	logger.Logger(ctx).Info().
		Int64("request_id", request.ID).
		Str("from", string(from)).
		Str("to", string(opt.NewStatus)).
		Str("actor", actor.Username).
		Msg("permission request updated")

	svc.audit(ctx, opID, &domain.AuditLog{
		ActorID:        actor.ID,
		Action:         domain.AuditActionUpdatePermRequest,
		Description:    fmt.Sprintf("updated permission request to status: %s", opt.NewStatus),
		OnGroupID:      request.GroupID,
		OnUserID:       request.RequesterID,
		OnPermissionID: request.PermissionID,
	})

	subject, template := "Request for Permission Cancelled", "permission_request_cancelled"
	if opt.NewStatus == domain.RequestStatusActioned {
		subject, template = "Request for Permission Actioned", "permission_request_actioned"
	}
	svc.notify(ctx, domain.Notification{
		Recipients: []string{request.RequesterName},
		Subject:    subject,
		Template:   template,
		Context: map[string]any{
			"group_name":      request.GroupName,
			"action_taken_by": actor.Username,
			"reason":          opt.Comment,
			"permission_name": request.PermissionName,
			"argument":        request.Argument,
		},
	})
	return request, nil
}

// ListRequestsForOwner pages through the requests the owner may approve,
// newest first, with their status history and comments.
func (svc *Service) ListRequestsForOwner(ctx context.Context, opt *domain.ListRequestsOptions) error {
	if opt == nil {
		return domain.ErrNilQueryInput
	}
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}
	memberships, err := svc.GroupsForPrincipal(ctx, domain.UserMember(opt.OwnerID), now)
	if err != nil {
		return err
	}
	ownerGroups := make(map[int64]bool, len(memberships))
	for _, m := range memberships {
		ownerGroups[m.Group.ID] = true
	}

	reqOpt := &domain.QueryPermissionRequestOptions{NewestFirst: true}
	if opt.Status != nil {
		reqOpt.Statuses = []domain.RequestStatus{*opt.Status}
	}
	if err := svc.Repo.QueryPermissionRequests(ctx, reqOpt); err != nil {
		return err
	}
	owners, err := svc.OwnersByArgumentByPermission(ctx, now)
	if err != nil {
		return err
	}

	var visible []*domain.PermissionRequest
	for _, request := range reqOpt.Result {
		for _, owner := range ownerArgList(owners, request.PermissionName, request.Argument) {
			if ownerGroups[owner.Group.ID] {
				visible = append(visible, request)
				break
			}
		}
	}

	list := &domain.RequestList{
		Total:         len(visible),
		Requests:      page(visible, opt.Offset, opt.Limit),
		StatusChanges: map[int64][]*domain.PermissionRequestStatusChange{},
		Comments:      map[int64]*domain.Comment{},
	}
	opt.Result = list
	if len(list.Requests) == 0 {
		return nil
	}

	requestIDs := make([]int64, 0, len(list.Requests))
	for _, request := range list.Requests {
		requestIDs = append(requestIDs, request.ID)
	}
	changeOpt := &domain.QueryStatusChangeOptions{RequestIDs: requestIDs}
	if err := svc.Repo.QueryStatusChanges(ctx, changeOpt); err != nil {
		return err
	}
	targets := make([]domain.CommentTarget, 0, len(changeOpt.Result))
	for _, change := range changeOpt.Result {
		list.StatusChanges[change.RequestID] = append(list.StatusChanges[change.RequestID], change)
		targets = append(targets, change.CommentTarget())
	}
	commentOpt := &domain.QueryCommentOptions{Targets: targets}
	if err := svc.Repo.QueryComments(ctx, commentOpt); err != nil {
		return err
	}
	for _, comment := range commentOpt.Result {
		list.Comments[comment.Target.ID] = comment
	}
	return nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func (svc *Service) GetRequest(ctx context.Context, requestID int64) (*domain.PermissionRequest, error) {
	opt := &domain.QueryPermissionRequestOptions{IDs: []int64{requestID}}
	if err := svc.Repo.QueryPermissionRequests(ctx, opt); err != nil {
		return nil, err
	}
	if len(opt.Result) == 0 {
		return nil, errs.NewPolicyError(domain.ErrInvalidRequestID, "no request with id %d", requestID)
	}
	return opt.Result[0], nil
}

func (svc *Service) PendingRequestsForGroup(ctx context.Context, groupID int64) ([]*domain.PermissionRequest, error) {
	opt := &domain.QueryPermissionRequestOptions{
		GroupIDs: []int64{groupID},
		Statuses: []domain.RequestStatus{domain.RequestStatusPending},
	}
	if err := svc.Repo.QueryPermissionRequests(ctx, opt); err != nil {
		return nil, err
	}
	return opt.Result, nil
}

// reject counts a policy refusal and returns err unchanged.
func (svc *Service) reject(operation string, err error) error {
	reason := "unknown"
	if policyErr, ok := errs.IsPolicyError(err); ok {
		reason = policyErr.Kind.Error()
	}
	svc.metricCollector.policyRejections.WithLabelValues(operation, reason).Inc()
	return err
}
