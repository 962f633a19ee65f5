package domain

import (
	"context"
	"time"
)

type QueryUserOptions struct {
	IDs       []int64
	Usernames []string
	Result    []*User
}

type QueryGroupOptions struct {
	IDs         []int64
	Names       []string
	EnabledOnly bool
	Result      []*Group
}

// QueryGroupEdgeOptions filters edges. When ActiveAt is set only edges that
// are active, unexpired at ActiveAt and whose endpoints are both enabled
// are returned.
type QueryGroupEdgeOptions struct {
	GroupIDs []int64
	Members  []Member
	Roles    []GroupEdgeRole
	ActiveAt *time.Time
	// ExpiringBefore keeps edges with an expiration at or before it.
	ExpiringBefore *time.Time
	Result         []*GroupEdge
}

type QueryPermissionOptions struct {
	IDs         []int64
	Names       []string
	EnabledOnly bool
	Result      []*Permission
}

type QueryPermissionMapOptions struct {
	GroupIDs        []int64
	PermissionIDs   []int64
	PermissionNames []string
	// Arguments matches exactly when non-nil.
	Arguments []string
	// EnabledOnly drops grants of disabled groups and disabled permissions.
	EnabledOnly bool
	Result      []*PermissionMap
}

type QueryPermissionRequestOptions struct {
	IDs           []int64
	GroupIDs      []int64
	PermissionIDs []int64
	Arguments     []string
	Statuses      []RequestStatus
	// NewestFirst orders by request time descending, otherwise ascending.
	NewestFirst bool
	Result      []*PermissionRequest
}

type QueryStatusChangeOptions struct {
	RequestIDs []int64
	Result     []*PermissionRequestStatusChange
}

type QueryCommentOptions struct {
	Targets []CommentTarget
	Result  []*Comment
}

type QueryAuditLogOptions struct {
	TimestampGTE int64
	TimestampLTE int64
	ActorIDs     []int64
	OnGroupIDs   []int64
	Actions      []string
	Result       []*AuditLog
}

// UpdatesCounter is the counter every graph, grant and permission mutation bumps.
const UpdatesCounter = "updates"

type Repository interface {
	// WithTx runs fn inside one transaction. Calls made on a repository that
	// is already transactional join the running transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error

	CreateUser(ctx context.Context, user *User) error
	QueryUsers(ctx context.Context, opt *QueryUserOptions) error
	SetUserEnabled(ctx context.Context, userID int64, enabled bool) error

	CreateGroup(ctx context.Context, group *Group) error
	QueryGroups(ctx context.Context, opt *QueryGroupOptions) error
	SetGroupEnabled(ctx context.Context, groupID int64, enabled bool) error

	UpsertGroupEdge(ctx context.Context, edge *GroupEdge) error
	DeactivateGroupEdge(ctx context.Context, groupID int64, member Member) error
	QueryGroupEdges(ctx context.Context, opt *QueryGroupEdgeOptions) error
	// RecordExpirationNotice marks the warning for an edge expiring at
	// expiration as sent. It reports false when it was already recorded.
	RecordExpirationNotice(ctx context.Context, edgeID int64, expiration time.Time, sentAt time.Time) (bool, error)

	CreatePermission(ctx context.Context, permission *Permission) error
	QueryPermissions(ctx context.Context, opt *QueryPermissionOptions) error
	SetPermissionAudited(ctx context.Context, permissionID int64, audited bool) error

	CreatePermissionMap(ctx context.Context, grant *PermissionMap) error
	DeletePermissionMap(ctx context.Context, permissionID, groupID int64, argument string) error
	QueryPermissionMaps(ctx context.Context, opt *QueryPermissionMapOptions) error

	CreatePermissionRequest(ctx context.Context, request *PermissionRequest) error
	// UpdatePermissionRequestStatus only applies while the request is still in
	// from; otherwise it returns ErrInvalidTransition.
	UpdatePermissionRequestStatus(ctx context.Context, requestID int64, from, to RequestStatus, changedAt time.Time) error
	QueryPermissionRequests(ctx context.Context, opt *QueryPermissionRequestOptions) error
	CreateStatusChange(ctx context.Context, change *PermissionRequestStatusChange) error
	QueryStatusChanges(ctx context.Context, opt *QueryStatusChangeOptions) error
	CreateComment(ctx context.Context, comment *Comment) error
	QueryComments(ctx context.Context, opt *QueryCommentOptions) error

	GetCounter(ctx context.Context, name string) (int64, error)
}

type CreateRequestOptions struct {
	RequesterID  int64
	GroupID      int64
	PermissionID int64
	Argument     string
	Reason       string
	Now          time.Time
}

type TransitionRequestOptions struct {
	RequestID int64
	ActorID   int64
	NewStatus RequestStatus
	Comment   string
	Now       time.Time
}

// ListRequestsOptions selects requests an owner may act on. A nil Status
// returns every status; Limit <= 0 returns everything after Offset.
type ListRequestsOptions struct {
	OwnerID int64
	Status  *RequestStatus
	Limit   int
	Offset  int
	Now     time.Time
	Result  *RequestList
}

type AddMemberOptions struct {
	GroupID    int64
	Member     Member
	Role       GroupEdgeRole
	Expiration *time.Time
}

type Service interface {
	GroupsForPrincipal(ctx context.Context, member Member, now time.Time) ([]*GroupMembership, error)

	ResolvePermissions(ctx context.Context, member Member, now time.Time) ([]*ResolvedGrant, error)
	DirectPermissions(ctx context.Context, userID int64, now time.Time) ([]*ResolvedGrant, error)
	HasPermission(ctx context.Context, userID int64, name string, argument *string, now time.Time) (bool, error)
	PermissionsForUser(ctx context.Context, userID int64, now time.Time) ([]*ResolvedGrant, error)
	UserHasPermissionAnyArgument(ctx context.Context, userID int64, name string, now time.Time) (bool, error)
	PermissionGrantsForPermission(ctx context.Context, name string) ([]*ResolvedGrant, error)
	CanManage(ctx context.Context, userID, groupID int64, now time.Time) (bool, error)

	OwnersByArgumentByPermission(ctx context.Context, now time.Time) (OwnersByArgByPerm, error)
	OwnerArgList(ctx context.Context, permission, argument string, owners OwnersByArgByPerm, now time.Time) ([]*OwnerArg, error)

	GrantablePermissions(ctx context.Context, restricted []string, now time.Time) (map[string][]string, error)
	UserGrantablePermissions(ctx context.Context, userID int64, now time.Time) ([]*GrantablePermission, error)
	UserCreatablePermissions(ctx context.Context, userID int64, now time.Time) ([]string, error)

	CreateRequest(ctx context.Context, opt CreateRequestOptions) (*PermissionRequest, error)
	TransitionRequest(ctx context.Context, opt TransitionRequestOptions) (*PermissionRequest, error)
	ListRequestsForOwner(ctx context.Context, opt *ListRequestsOptions) error
	GetRequest(ctx context.Context, requestID int64) (*PermissionRequest, error)
	PendingRequestsForGroup(ctx context.Context, groupID int64) ([]*PermissionRequest, error)

	AssertControllersAreAuditors(ctx context.Context, groupID int64, now time.Time) error

	NotifyExpiringMemberships(ctx context.Context, now time.Time) (int, error)

	CreateUser(ctx context.Context, actorID int64, user *User) error
	CreateGroup(ctx context.Context, actorID int64, group *Group) error
	CreatePermission(ctx context.Context, actorID int64, permission *Permission) error
	AddMember(ctx context.Context, actorID int64, opt AddMemberOptions) error
	RevokeMember(ctx context.Context, actorID int64, groupID int64, member Member) error
	GrantPermission(ctx context.Context, actorID int64, groupID, permissionID int64, argument string) error
	RevokePermission(ctx context.Context, actorID int64, groupID, permissionID int64, argument string) error
	SetUserEnabled(ctx context.Context, actorID int64, userID int64, enabled bool) error
	SetGroupEnabled(ctx context.Context, actorID int64, groupID int64, enabled bool) error
	SetPermissionAudited(ctx context.Context, actorID int64, permissionID int64, audited bool) error

	GetUserByName(ctx context.Context, username string) (*User, error)
	GetGroupByName(ctx context.Context, name string) (*Group, error)
	GetPermissionByName(ctx context.Context, name string) (*Permission, error)
}

// Notification is handed to the delivery collaborator. Template names the
// message body; Context carries its variables.
type Notification struct {
	Recipients []string
	Subject    string
	Template   string
	Context    map[string]any
}

type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}

type AuditLogger interface {
	Log(ctx context.Context, log *AuditLog) error
}

type AuditLogStore interface {
	AuditLogger
	QueryAuditLogs(ctx context.Context, opt *QueryAuditLogOptions) error
}

// OwnershipPlugin contributes owners on top of the computed ownership map.
// Returning a *PluginRejection aborts the resolution, any other error is
// logged and the plugin skipped.
type OwnershipPlugin interface {
	Name() string
	OwnersByArgByPerm(ctx context.Context, repo Repository, now time.Time) (OwnersByArgByPerm, error)
}

type PrincipalPlugin interface {
	Name() string
	PrincipalCreated(ctx context.Context, member Member, name string) error
}
