package domain

import (
	"sort"
	"time"
)

type Permission struct {
	ID          int64
	Name        string
	Description string
	Audited     bool
	Enabled     bool
	CreatedOn   time.Time
}

// PermissionMap grants a permission with an argument to a group. The empty
// argument means the grant carries no argument.
type PermissionMap struct {
	ID           int64
	PermissionID int64
	GroupID      int64
	Argument     string
	GrantedOn    time.Time

	// Filled by queries.
	PermissionName string
	GroupName      string
}

// ResolvedGrant is a grant reached from a principal, named by the group
// that holds it.
type ResolvedGrant struct {
	Permission   string
	PermissionID int64
	Argument     string
	GroupID      int64
	GroupName    string
	GrantedOn    time.Time
}

// SortResolvedGrants orders by permission name, argument, then granting group name.
func SortResolvedGrants(grants []*ResolvedGrant) {
	sort.SliceStable(grants, func(i, j int) bool {
		a, b := grants[i], grants[j]
		if a.Permission != b.Permission {
			return a.Permission < b.Permission
		}
		if a.Argument != b.Argument {
			return a.Argument < b.Argument
		}
		return a.GroupName < b.GroupName
	})
}

type GrantablePermission struct {
	Permission *Permission
	Argument   string
}

// OwnerArg is an owner group together with the argument pattern it owns.
type OwnerArg struct {
	Group    *Group
	Argument string
}

// OwnersByArgByPerm maps permission name to argument pattern to owner groups.
type OwnersByArgByPerm map[string]map[string][]*Group

// Add registers group under (permission, argument) unless it is already there.
func (o OwnersByArgByPerm) Add(permission, argument string, group *Group) {
	byArg, ok := o[permission]
	if !ok {
		byArg = make(map[string][]*Group)
		o[permission] = byArg
	}
	for _, existing := range byArg[argument] {
		if existing.ID == group.ID {
			return
		}
	}
	byArg[argument] = append(byArg[argument], group)
}

// Merge adds every entry of other. Existing owners are never removed.
func (o OwnersByArgByPerm) Merge(other OwnersByArgByPerm) {
	for permission, byArg := range other {
		for argument, groups := range byArg {
			for _, group := range groups {
				if group == nil {
					continue
				}
				o.Add(permission, argument, group)
			}
		}
	}
}

func (o OwnersByArgByPerm) Clone() OwnersByArgByPerm {
	out := make(OwnersByArgByPerm, len(o))
	for permission, byArg := range o {
		cp := make(map[string][]*Group, len(byArg))
		for argument, groups := range byArg {
			cp[argument] = append([]*Group(nil), groups...)
		}
		out[permission] = cp
	}
	return out
}
