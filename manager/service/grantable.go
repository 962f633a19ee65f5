package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/pkg/util"
)

// FilterGrantable expands grants of the grant permission into the concrete
// (permission, argument pattern) pairs they allow granting. The result is
// sorted by permission name then argument and does not depend on input order.
func FilterGrantable(grants []*domain.ResolvedGrant, allPermissions []*domain.Permission) ([]*domain.GrantablePermission, error) {
	type pair struct {
		permission string
		argument   string
	}
	seen := map[pair]bool{}
	var result []*domain.GrantablePermission
	for _, grant := range grants {
		if grant.Permission != domain.PermissionGrant {
			return nil, fmt.Errorf("filter grantable: %w: grant of %q is not %s",
				domain.ErrInvariant, grant.Permission, domain.PermissionGrant)
		}
		permissionGlob, argumentGlob := util.SplitGrantArgument(grant.Argument)
		for _, permission := range allPermissions {
			if !util.MatchGlob(permissionGlob, permission.Name) {
				continue
			}
			key := pair{permission: permission.Name, argument: argumentGlob}
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, &domain.GrantablePermission{Permission: permission, Argument: argumentGlob})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Permission.Name != result[j].Permission.Name {
			return result[i].Permission.Name < result[j].Permission.Name
		}
		return result[i].Argument < result[j].Argument
	})
	return result, nil
}

// ReduceArguments narrows the argument patterns of one permission. For a
// restricted permission the wildcard is dropped as soon as one specific
// argument exists. Otherwise a wildcard subsumes everything else.
func ReduceArguments(permission string, args []string, restricted []string) []string {
	if len(args) == 0 {
		return nil
	}
	var specific []string
	hasWildcard := false
	for _, arg := range args {
		if arg == domain.WildcardArgument {
			hasWildcard = true
			continue
		}
		specific = append(specific, arg)
	}
	if len(specific) > 0 && (!hasWildcard || slices.Contains(restricted, permission)) {
		sort.Strings(specific)
		return slices.Compact(specific)
	}
	return []string{domain.WildcardArgument}
}

// GrantablePermissions lists every grantable permission with its reduced
// argument patterns.
func (svc *Service) GrantablePermissions(ctx context.Context, restricted []string, now time.Time) (map[string][]string, error) {
	owners, err := svc.OwnersByArgumentByPermission(ctx, now)
	if err != nil {
		return nil, err
	}
	if restricted == nil {
		restricted = svc.restricted
	}
	result := make(map[string][]string, len(owners))
	for permission, byArg := range owners {
		if len(byArg) == 0 {
			continue
		}
		args := make([]string, 0, len(byArg))
		for arg := range byArg {
			args = append(args, arg)
		}
		result[permission] = ReduceArguments(permission, args, restricted)
	}
	return result, nil
}

// UserGrantablePermissions returns what the user may grant through grant
// permissions held directly. Admins may grant everything.
func (svc *Service) UserGrantablePermissions(ctx context.Context, userID int64, now time.Time) ([]*domain.GrantablePermission, error) {
	permOpt := &domain.QueryPermissionOptions{EnabledOnly: true}
	if err := svc.Repo.QueryPermissions(ctx, permOpt); err != nil {
		return nil, err
	}
	direct, err := svc.DirectPermissions(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if grantsMatch(direct, domain.PermissionAdmin, nil) {
		result := make([]*domain.GrantablePermission, 0, len(permOpt.Result))
		for _, permission := range permOpt.Result {
			result = append(result, &domain.GrantablePermission{Permission: permission, Argument: domain.WildcardArgument})
		}
		return result, nil
	}

	var grants []*domain.ResolvedGrant
	for _, grant := range direct {
		if grant.Permission == domain.PermissionGrant {
			grants = append(grants, grant)
		}
	}
	return FilterGrantable(grants, permOpt.Result)
}

// UserCreatablePermissions returns the name globs of permissions the user
// may create. Admins get "*".
func (svc *Service) UserCreatablePermissions(ctx context.Context, userID int64, now time.Time) ([]string, error) {
	direct, err := svc.DirectPermissions(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if grantsMatch(direct, domain.PermissionAdmin, nil) {
		return []string{domain.WildcardArgument}, nil
	}
	var globs []string
	for _, grant := range direct {
		if grant.Permission == domain.PermissionCreate {
			globs = append(globs, grant.Argument)
		}
	}
	return globs, nil
}
