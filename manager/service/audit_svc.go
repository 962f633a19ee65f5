package service

import (
	"context"
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/manager/errs"
)

// AssertControllersAreAuditors checks the group and every group nested below
// it. Each user holding an approver role directly on one of those groups must
// satisfy the approver policy, by default holding the auditor permission
// anywhere in their inherited grants.
func (svc *Service) AssertControllersAreAuditors(ctx context.Context, groupID int64, now time.Time) error {
	checkedGroups := map[int64]bool{}
	checkedUsers := map[int64]bool{}
	queue := []int64{groupID}
	for len(queue) > 0 {
		current := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if checkedGroups[current] {
			continue
		}
		checkedGroups[current] = true

		edgeOpt := &domain.QueryGroupEdgeOptions{GroupIDs: []int64{current}, ActiveAt: &now}
		if err := svc.Repo.QueryGroupEdges(ctx, edgeOpt); err != nil {
			return err
		}
		var approverIDs []int64
		roles := map[int64]domain.GroupEdgeRole{}
		for _, edge := range edgeOpt.Result {
			switch {
			case edge.Member.Type == domain.MemberTypeGroup:
				queue = append(queue, edge.Member.ID)
			case edge.Role.IsApprover() && !checkedUsers[edge.Member.ID]:
				approverIDs = append(approverIDs, edge.Member.ID)
				roles[edge.Member.ID] = edge.Role
			}
		}
		if len(approverIDs) == 0 {
			continue
		}

		group, err := svc.getGroup(ctx, current)
		if err != nil {
			return err
		}
		userOpt := &domain.QueryUserOptions{IDs: approverIDs}
		if err := svc.Repo.QueryUsers(ctx, userOpt); err != nil {
			return err
		}
		for _, user := range userOpt.Result {
			ok, err := svc.approverSatisfiesPolicy(ctx, user, group, roles[user.ID], now)
			if err != nil {
				return err
			}
			if !ok {
				return errs.NewPolicyError(domain.ErrUserNotAuditor,
					"user %s is an approver of group %s but is not an auditor", user.Username, group.Name)
			}
			checkedUsers[user.ID] = true
		}
	}
	return nil
}

func (svc *Service) approverSatisfiesPolicy(ctx context.Context, user *domain.User, group *domain.Group, role domain.GroupEdgeRole, now time.Time) (bool, error) {
	grants, err := svc.ResolvePermissions(ctx, user.Member(), now)
	if err != nil {
		return false, err
	}
	env := approverEnv{
		User:           user.Username,
		Group:          group.Name,
		Role:           role.String(),
		Auditor:        grantsMatch(grants, svc.auditorPermission, nil),
		RoleUser:       user.RoleUser,
		ServiceAccount: user.ServiceAccount,
	}
	out, err := expr.Run(svc.approverPolicy, env)
	if err != nil {
		return false, fmt.Errorf("evaluate approver policy for %s: %w", user.Username, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
