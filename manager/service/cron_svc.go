package service

import (
	"context"
	"fmt"
	"time"

	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/pkg/logger"
)

// NotifyExpiringMemberships warns about usable edges expiring within the
// notice window. Each (edge, expiration) pair is warned about once; a
// failed delivery is logged and the notice still counts as sent.
func (svc *Service) NotifyExpiringMemberships(ctx context.Context, now time.Time) (int, error) {
	ctx, _ = svc.startOperation(ctx, "notify_expiring_memberships")
	deadline := now.Add(svc.expirationNotice)
	edgeOpt := &domain.QueryGroupEdgeOptions{ActiveAt: &now, ExpiringBefore: &deadline}
	if err := svc.Repo.QueryGroupEdges(ctx, edgeOpt); err != nil {
		return 0, err
	}
	if len(edgeOpt.Result) == 0 {
		return 0, nil
	}

	sent := 0
	for _, edge := range edgeOpt.Result {
		group, err := svc.getGroup(ctx, edge.GroupID)
		if err != nil {
			return sent, err
		}
		memberName, recipients, err := svc.expirationRecipients(ctx, edge.Member, now)
		if err != nil {
			return sent, err
		}

		recorded, err := svc.Repo.RecordExpirationNotice(ctx, edge.ID, *edge.Expiration, now)
		if err != nil {
			return sent, err
		}
		if !recorded {
			continue
		}
		sent++
		logger.Logger(ctx).Info().
			Str("group", group.Name).
			Str("member", memberName).
			Time("expiration", *edge.Expiration).
			Msg("membership expiring soon")
		svc.notify(ctx, domain.Notification{
			Recipients: recipients,
			Subject:    fmt.Sprintf("expiration warning for membership in group '%s'", group.Name),
			Template:   "expiration_warning",
			Context: map[string]any{
				"expiration":     *edge.Expiration,
				"group_name":     group.Name,
				"member_name":    memberName,
				"member_is_user": edge.Member.Type == domain.MemberTypeUser,
			},
		})
	}
	return sent, nil
}

// expirationRecipients warns a user member directly. A group member is
// warned through its direct approvers, or all its direct users when it has
// none.
func (svc *Service) expirationRecipients(ctx context.Context, member domain.Member, now time.Time) (string, []string, error) {
	if member.Type == domain.MemberTypeUser {
		user, err := getUser(ctx, svc.Repo, member.ID)
		if err != nil {
			return "", nil, err
		}
		return user.Username, []string{user.Username}, nil
	}

	group, err := svc.getGroup(ctx, member.ID)
	if err != nil {
		return "", nil, err
	}
	approverOpt := &domain.QueryGroupEdgeOptions{
		GroupIDs: []int64{group.ID},
		Roles:    []domain.GroupEdgeRole{domain.RoleManager, domain.RoleOwner, domain.RoleNPOwner},
		ActiveAt: &now,
	}
	if err := svc.Repo.QueryGroupEdges(ctx, approverOpt); err != nil {
		return "", nil, err
	}
	var approverIDs []int64
	for _, edge := range approverOpt.Result {
		if edge.Member.Type == domain.MemberTypeUser {
			approverIDs = append(approverIDs, edge.Member.ID)
		}
	}
	if len(approverIDs) == 0 {
		recipients, err := usernamesOf(ctx, svc.Repo, []int64{group.ID}, now)
		return group.Name, recipients, err
	}
	userOpt := &domain.QueryUserOptions{IDs: approverIDs}
	if err := svc.Repo.QueryUsers(ctx, userOpt); err != nil {
		return "", nil, err
	}
	recipients := make([]string, 0, len(userOpt.Result))
	for _, user := range userOpt.Result {
		recipients = append(recipients, user.Username)
	}
	return group.Name, recipients, nil
}
