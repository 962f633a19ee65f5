package domain

import "fmt"

// Permission names carrying engine-level meaning.
const (
	PermissionGrant   = "groupgraph.permission.grant"
	PermissionCreate  = "groupgraph.permission.create"
	PermissionAdmin   = "groupgraph.admin.permissions"
	PermissionAuditor = "groupgraph.permission.auditor"
)

// WildcardArgument matches every argument of a permission.
const WildcardArgument = "*"

// GroupEdgeRole is persisted by ordinal. The order is part of the storage
// format: new roles must be appended.
type GroupEdgeRole int8

const (
	RoleMember GroupEdgeRole = iota
	RoleManager
	RoleOwner
	// RoleNPOwner has owner authority but inherits no permissions through its edge.
	RoleNPOwner
)

var groupEdgeRoleNames = [...]string{"member", "manager", "owner", "np-owner"}

func (r GroupEdgeRole) Valid() bool {
	return r >= RoleMember && int(r) < len(groupEdgeRoleNames)
}

func (r GroupEdgeRole) String() string {
	if !r.Valid() {
		return fmt.Sprintf("role(%d)", int8(r))
	}
	return groupEdgeRoleNames[r]
}

// IsOwner reports whether the role belongs to the ownership tier.
func (r GroupEdgeRole) IsOwner() bool {
	return r == RoleOwner || r == RoleNPOwner
}

// IsApprover reports whether the role may approve group level actions.
func (r GroupEdgeRole) IsApprover() bool {
	return r == RoleManager || r.IsOwner()
}

// InheritsPermissions is false for edges that must not carry ancestor
// permissions down to the member.
func (r GroupEdgeRole) InheritsPermissions() bool {
	return r != RoleNPOwner
}

func ParseGroupEdgeRole(s string) (GroupEdgeRole, error) {
	for i, name := range groupEdgeRoleNames {
		if name == s {
			return GroupEdgeRole(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown role %q", ErrInvariant, s)
}

// MemberType tags the kind of principal on the member side of an edge.
type MemberType int8

const (
	MemberTypeUser  MemberType = 0
	MemberTypeGroup MemberType = 1
)

func (t MemberType) Valid() bool {
	return t == MemberTypeUser || t == MemberTypeGroup
}

func (t MemberType) String() string {
	switch t {
	case MemberTypeUser:
		return "User"
	case MemberTypeGroup:
		return "Group"
	default:
		return fmt.Sprintf("member_type(%d)", int8(t))
	}
}

// RequestStatus is the state of a permission request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusActioned  RequestStatus = "actioned"
	RequestStatusCancelled RequestStatus = "cancelled"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusActioned, RequestStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave the status.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusActioned || s == RequestStatusCancelled
}

func ParseRequestStatus(s string) (RequestStatus, error) {
	status := RequestStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown request status %q", ErrInvariant, s)
	}
	return status, nil
}

// CommentTargetKind names the table a comment is attached to. Values are
// persisted and match the historical object type indices.
type CommentTargetKind int8

const (
	CommentOnRequestStatusChange           CommentTargetKind = 3
	CommentOnPermissionRequestStatusChange CommentTargetKind = 4
)

func (k CommentTargetKind) Valid() bool {
	return k == CommentOnRequestStatusChange || k == CommentOnPermissionRequestStatusChange
}

func (k CommentTargetKind) String() string {
	switch k {
	case CommentOnRequestStatusChange:
		return "RequestStatusChange"
	case CommentOnPermissionRequestStatusChange:
		return "PermissionRequestStatusChange"
	default:
		return fmt.Sprintf("comment_target(%d)", int8(k))
	}
}
