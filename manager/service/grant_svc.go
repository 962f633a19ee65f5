package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/groupgraph/api/manager/domain"
)

func inheritsPermissions(edge *domain.GroupEdge) bool {
	return edge.Role.InheritsPermissions()
}

// ResolvePermissions walks the whole membership graph above member and
// returns every grant it inherits. np-owner edges are never traversed, at
// any hop, so an np-owner keeps owner authority without inheriting.
func (svc *Service) ResolvePermissions(ctx context.Context, member domain.Member, now time.Time) ([]*domain.ResolvedGrant, error) {
	memberships, err := walkGroups(ctx, svc.Repo, member, now, inheritsPermissions)
	if err != nil {
		return nil, err
	}
	groupIDs := make([]int64, 0, len(memberships))
	for _, m := range memberships {
		groupIDs = append(groupIDs, m.Group.ID)
	}
	return grantsOfGroups(ctx, svc.Repo, groupIDs)
}

// DirectPermissions returns the grants of groups the user is directly in,
// whatever the role. Nothing is inherited from parent groups.
func (svc *Service) DirectPermissions(ctx context.Context, userID int64, now time.Time) ([]*domain.ResolvedGrant, error) {
	edges, err := directGroups(ctx, svc.Repo, domain.UserMember(userID), now)
	if err != nil {
		return nil, err
	}
	groupIDs := make([]int64, 0, len(edges))
	for _, edge := range edges {
		groupIDs = append(groupIDs, edge.GroupID)
	}
	return grantsOfGroups(ctx, svc.Repo, groupIDs)
}

// HasPermission only looks at DirectPermissions. A nil argument matches any
// grant of the permission, a "*" grant matches any argument.
func (svc *Service) HasPermission(ctx context.Context, userID int64, name string, argument *string, now time.Time) (bool, error) {
	grants, err := svc.DirectPermissions(ctx, userID, now)
	if err != nil {
		return false, err
	}
	return grantsMatch(grants, name, argument), nil
}

func grantsMatch(grants []*domain.ResolvedGrant, name string, argument *string) bool {
	for _, grant := range grants {
		if grant.Permission != name {
			continue
		}
		if grant.Argument == domain.WildcardArgument || argument == nil || grant.Argument == *argument {
			return true
		}
	}
	return false
}

// PermissionsForUser is the reporting view of ResolvePermissions: role users,
// service accounts and disabled users hold nothing.
func (svc *Service) PermissionsForUser(ctx context.Context, userID int64, now time.Time) ([]*domain.ResolvedGrant, error) {
	opt := &domain.QueryUserOptions{IDs: []int64{userID}}
	if err := svc.Repo.QueryUsers(ctx, opt); err != nil {
		return nil, err
	}
	if len(opt.Result) == 0 {
		return nil, nil
	}
	user := opt.Result[0]
	if !user.Enabled || user.RoleUser || user.ServiceAccount {
		return nil, nil
	}
	return svc.ResolvePermissions(ctx, user.Member(), now)
}

func (svc *Service) UserHasPermissionAnyArgument(ctx context.Context, userID int64, name string, now time.Time) (bool, error) {
	grants, err := svc.PermissionsForUser(ctx, userID, now)
	if err != nil {
		return false, err
	}
	return grantsMatch(grants, name, nil), nil
}

// PermissionGrantsForPermission lists enabled groups holding the permission,
// ordered by group name then argument.
func (svc *Service) PermissionGrantsForPermission(ctx context.Context, name string) ([]*domain.ResolvedGrant, error) {
	permission, err := svc.GetPermissionByName(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !permission.Enabled {
		return nil, nil
	}
	opt := &domain.QueryPermissionMapOptions{PermissionIDs: []int64{permission.ID}, EnabledOnly: true}
	if err := svc.Repo.QueryPermissionMaps(ctx, opt); err != nil {
		return nil, err
	}
	grants := make([]*domain.ResolvedGrant, 0, len(opt.Result))
	for _, pm := range opt.Result {
		grants = append(grants, resolvedGrant(pm))
	}
	sort.SliceStable(grants, func(i, j int) bool {
		if grants[i].GroupName != grants[j].GroupName {
			return grants[i].GroupName < grants[j].GroupName
		}
		return grants[i].Argument < grants[j].Argument
	})
	return grants, nil
}

// CanManage reports whether the user is a direct approver of the group.
func (svc *Service) CanManage(ctx context.Context, userID, groupID int64, now time.Time) (bool, error) {
	opt := &domain.QueryGroupEdgeOptions{
		GroupIDs: []int64{groupID},
		Members:  []domain.Member{domain.UserMember(userID)},
		ActiveAt: &now,
	}
	if err := svc.Repo.QueryGroupEdges(ctx, opt); err != nil {
		return false, err
	}
	for _, edge := range opt.Result {
		if edge.Role.IsApprover() {
			return true, nil
		}
	}
	return false, nil
}

func grantsOfGroups(ctx context.Context, repo domain.Repository, groupIDs []int64) ([]*domain.ResolvedGrant, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	opt := &domain.QueryPermissionMapOptions{GroupIDs: groupIDs, EnabledOnly: true}
	if err := repo.QueryPermissionMaps(ctx, opt); err != nil {
		return nil, err
	}

	type grantKey struct {
		permission string
		argument   string
		groupID    int64
	}
	seen := make(map[grantKey]bool, len(opt.Result))
	grants := make([]*domain.ResolvedGrant, 0, len(opt.Result))
	for _, pm := range opt.Result {
		key := grantKey{permission: pm.PermissionName, argument: pm.Argument, groupID: pm.GroupID}
		if seen[key] {
			continue
		}
		seen[key] = true
		grants = append(grants, resolvedGrant(pm))
	}
	domain.SortResolvedGrants(grants)
	return grants, nil
}

func resolvedGrant(pm *domain.PermissionMap) *domain.ResolvedGrant {
	return &domain.ResolvedGrant{
		Permission:   pm.PermissionName,
		PermissionID: pm.PermissionID,
		Argument:     pm.Argument,
		GroupID:      pm.GroupID,
		GroupName:    pm.GroupName,
		GrantedOn:    pm.GrantedOn,
	}
}
