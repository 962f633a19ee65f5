package service

import (
	"context"
	"time"

	"github.com/groupgraph/api/manager/domain"
)

// GroupsForPrincipal returns every group member belongs to, directly or
// through nested groups, over edges usable at now. Unknown principals yield
// an empty result.
func (svc *Service) GroupsForPrincipal(ctx context.Context, member domain.Member, now time.Time) ([]*domain.GroupMembership, error) {
	return walkGroups(ctx, svc.Repo, member, now, nil)
}

// walkGroups ascends breadth first from start. follow, when set, decides
// whether an edge may be traversed. Each group is reported once, with the
// edge of the first hop that reached it; a group never reaches itself.
func walkGroups(ctx context.Context, repo domain.Repository, start domain.Member, now time.Time, follow func(*domain.GroupEdge) bool) ([]*domain.GroupMembership, error) {
	visited := map[int64]bool{}
	if start.Type == domain.MemberTypeGroup {
		visited[start.ID] = true
	}

	var result []*domain.GroupMembership
	frontier := []domain.Member{start}
	for distance := 1; len(frontier) > 0; distance++ {
		edgeOpt := &domain.QueryGroupEdgeOptions{Members: frontier, ActiveAt: &now}
		if err := repo.QueryGroupEdges(ctx, edgeOpt); err != nil {
			return nil, err
		}

		var reached []*domain.GroupEdge
		for _, edge := range edgeOpt.Result {
			if visited[edge.GroupID] {
				continue
			}
			if follow != nil && !follow(edge) {
				continue
			}
			visited[edge.GroupID] = true
			reached = append(reached, edge)
		}
		if len(reached) == 0 {
			break
		}

		groupIDs := make([]int64, 0, len(reached))
		for _, edge := range reached {
			groupIDs = append(groupIDs, edge.GroupID)
		}
		groupOpt := &domain.QueryGroupOptions{IDs: groupIDs}
		if err := repo.QueryGroups(ctx, groupOpt); err != nil {
			return nil, err
		}
		groups := make(map[int64]*domain.Group, len(groupOpt.Result))
		for _, g := range groupOpt.Result {
			groups[g.ID] = g
		}

		frontier = frontier[:0:0]
		for _, edge := range reached {
			result = append(result, &domain.GroupMembership{
				Group:    groups[edge.GroupID],
				Edge:     edge,
				Distance: distance,
			})
			frontier = append(frontier, domain.GroupMember(edge.GroupID))
		}
	}
	return result, nil
}

// directGroups returns the direct edges of member, optionally limited to roles.
func directGroups(ctx context.Context, repo domain.Repository, member domain.Member, now time.Time, roles ...domain.GroupEdgeRole) ([]*domain.GroupEdge, error) {
	opt := &domain.QueryGroupEdgeOptions{Members: []domain.Member{member}, Roles: roles, ActiveAt: &now}
	if err := repo.QueryGroupEdges(ctx, opt); err != nil {
		return nil, err
	}
	return opt.Result, nil
}
