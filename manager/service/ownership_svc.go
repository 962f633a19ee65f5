package service

import (
	"context"
	"sort"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/pkg/util"
)

// OwnersByArgumentByPermission maps every permission to the argument patterns
// it can be granted with and the groups that may approve each. The returned
// map belongs to the caller.
func (svc *Service) OwnersByArgumentByPermission(ctx context.Context, now time.Time) (domain.OwnersByArgByPerm, error) {
	core, err := svc.coreOwners(ctx)
	if err != nil {
		return nil, err
	}
	owners := core.Clone()
	if err := svc.mergePluginOwners(ctx, owners, now); err != nil {
		return nil, err
	}
	return owners, nil
}

// coreOwners serves the computed map from the cache while the updates
// counter is unchanged. Plugin entries are never cached.
func (svc *Service) coreOwners(ctx context.Context) (domain.OwnersByArgByPerm, error) {
	if svc.ownersCache == nil {
		return computeOwners(ctx, svc.Repo)
	}
	version, err := svc.Repo.GetCounter(ctx, domain.UpdatesCounter)
	if err != nil {
		return nil, err
	}
	if owners, ok := svc.ownersCache.Get(version); ok {
		svc.metricCollector.ownershipCache.WithLabelValues("hit").Inc()
		return owners, nil
	}
	svc.metricCollector.ownershipCache.WithLabelValues("miss").Inc()

	owners, err := computeOwners(ctx, svc.Repo)
	if err != nil {
		return nil, err
	}
	svc.ownersCache.Set(version, owners, cache.WithExpiration(svc.ownersCacheTTL))
	return owners, nil
}

func computeOwners(ctx context.Context, repo domain.Repository) (domain.OwnersByArgByPerm, error) {
	permOpt := &domain.QueryPermissionOptions{EnabledOnly: true}
	if err := repo.QueryPermissions(ctx, permOpt); err != nil {
		return nil, err
	}
	grantOpt := &domain.QueryPermissionMapOptions{
		PermissionNames: []string{domain.PermissionAdmin, domain.PermissionGrant},
		EnabledOnly:     true,
	}
	if err := repo.QueryPermissionMaps(ctx, grantOpt); err != nil {
		return nil, err
	}

	owners := domain.OwnersByArgByPerm{}
	if len(grantOpt.Result) == 0 {
		return owners, nil
	}

	grantsByGroup := map[int64][]*domain.ResolvedGrant{}
	var groupIDs []int64
	for _, pm := range grantOpt.Result {
		if _, ok := grantsByGroup[pm.GroupID]; !ok {
			groupIDs = append(groupIDs, pm.GroupID)
		}
		grantsByGroup[pm.GroupID] = append(grantsByGroup[pm.GroupID], resolvedGrant(pm))
	}
	groupOpt := &domain.QueryGroupOptions{IDs: groupIDs, EnabledOnly: true}
	if err := repo.QueryGroups(ctx, groupOpt); err != nil {
		return nil, err
	}

	for _, group := range groupOpt.Result {
		grants := grantsByGroup[group.ID]
		if holdsAdmin(grants) {
			for _, permission := range permOpt.Result {
				owners.Add(permission.Name, domain.WildcardArgument, group)
			}
			continue
		}
		grantable, err := FilterGrantable(grants, permOpt.Result)
		if err != nil {
			return nil, err
		}
		for _, gp := range grantable {
			owners.Add(gp.Permission.Name, gp.Argument, group)
		}
	}
	return owners, nil
}

func holdsAdmin(grants []*domain.ResolvedGrant) bool {
	for _, grant := range grants {
		if grant.Permission == domain.PermissionAdmin {
			return true
		}
	}
	return false
}

// OwnerArgList returns every (owner, pattern) whose pattern matches argument.
// owners may be nil, in which case the ownership map is computed. An empty
// result means nobody can approve the pair.
func (svc *Service) OwnerArgList(ctx context.Context, permission, argument string, owners domain.OwnersByArgByPerm, now time.Time) ([]*domain.OwnerArg, error) {
	if owners == nil {
		var err error
		owners, err = svc.OwnersByArgumentByPermission(ctx, now)
		if err != nil {
			return nil, err
		}
	}
	return ownerArgList(owners, permission, argument), nil
}

func ownerArgList(owners domain.OwnersByArgByPerm, permission, argument string) []*domain.OwnerArg {
	byArg := owners[permission]
	patterns := make([]string, 0, len(byArg))
	for pattern := range byArg {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	var result []*domain.OwnerArg
	for _, pattern := range patterns {
		if !util.MatchGlob(pattern, argument) {
			continue
		}
		for _, group := range byArg[pattern] {
			result = append(result, &domain.OwnerArg{Group: group, Argument: pattern})
		}
	}
	return result
}
