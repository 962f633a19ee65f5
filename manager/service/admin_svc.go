package service

import (
	"context"
	"fmt"
	"time"

	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/pkg/logger"
)

func (svc *Service) CreateUser(ctx context.Context, actorID int64, user *domain.User) error {
	ctx, opID := svc.startOperation(ctx, "create_user")
	err := svc.Repo.WithTx(ctx, func(ctx context.Context, repo domain.Repository) error {
		if err := repo.CreateUser(ctx, user); err != nil {
			return err
		}
		return svc.principalCreated(ctx, user.Member(), user.Username)
	})
	if err != nil {
		return err
	}
	logger.Logger(ctx).Info().Str("user", user.Username).Int64("user_id", user.ID).Msg("user created")
	svc.audit(ctx, opID, &domain.AuditLog{
		ActorID:     actorID,
		Action:      domain.AuditActionCreateUser,
		Description: fmt.Sprintf("Created user %s", user.Username),
		OnUserID:    user.ID,
	})
	return nil
}

func (svc *Service) CreateGroup(ctx context.Context, actorID int64, group *domain.Group) error {
	ctx, opID := svc.startOperation(ctx, "create_group")
	err := svc.Repo.WithTx(ctx, func(ctx context.Context, repo domain.Repository) error {
		if err := repo.CreateGroup(ctx, group); err != nil {
			return err
		}
		return svc.principalCreated(ctx, group.Member(), group.Name)
	})
	if err != nil {
		return err
	}
	logger.Logger(ctx).Info().Str("group", group.Name).Int64("group_id", group.ID).Msg("group created")
	svc.audit(ctx, opID, &domain.AuditLog{
		ActorID:     actorID,
		Action:      domain.AuditActionCreateGroup,
		Description: fmt.Sprintf("Created group %s", group.Name),
		OnGroupID:   group.ID,
	})
	return nil
}

func (svc *Service) CreatePermission(ctx context.Context, actorID int64, permission *domain.Permission) error {
	ctx, opID := svc.startOperation(ctx, "create_permission")
	if err := svc.Repo.CreatePermission(ctx, permission); err != nil {
		return err
	}
	svc.audit(ctx, opID, &domain.AuditLog{
		ActorID:        actorID,
		Action:         domain.AuditActionCreatePermission,
		Description:    fmt.Sprintf("Created permission %s", permission.Name),
		OnPermissionID: permission.ID,
	})
	return nil
}

// AddMember adds the member to the group, or updates the role and
// expiration of an existing edge.
func (svc *Service) AddMember(ctx context.Context, actorID int64, opt domain.AddMemberOptions) error {
	ctx, opID := svc.startOperation(ctx, "add_member")
	if opt.Member.Type == domain.MemberTypeGroup && opt.Member.ID == opt.GroupID {
		return fmt.Errorf("add group %d to itself: %w", opt.GroupID, domain.ErrInvariant)
	}
	edge := &domain.GroupEdge{
		GroupID:    opt.GroupID,
		Member:     opt.Member,
		Role:       opt.Role,
		Active:     true,
		Expiration: opt.Expiration,
	}
	if err := svc.Repo.UpsertGroupEdge(ctx, edge); err != nil {
		return err
	}
	entry := &domain.AuditLog{
		ActorID:     actorID,
		Action:      domain.AuditActionAddMember,
		Description: fmt.Sprintf("Added %s to group %d as %s", opt.Member, opt.GroupID, opt.Role),
		OnGroupID:   opt.GroupID,
	}
	if opt.Member.Type == domain.MemberTypeUser {
		entry.OnUserID = opt.Member.ID
	}
	svc.audit(ctx, opID, entry)
	return nil
}

func (svc *Service) RevokeMember(ctx context.Context, actorID int64, groupID int64, member domain.Member) error {
	ctx, opID := svc.startOperation(ctx, "revoke_member")
	if err := svc.Repo.DeactivateGroupEdge(ctx, groupID, member); err != nil {
		return err
	}
	entry := &domain.AuditLog{
		ActorID:     actorID,
		Action:      domain.AuditActionRevokeMember,
		Description: fmt.Sprintf("Revoked %s from group %d", member, groupID),
		OnGroupID:   groupID,
	}
	if member.Type == domain.MemberTypeUser {
		entry.OnUserID = member.ID
	}
	svc.audit(ctx, opID, entry)
	return nil
}

func (svc *Service) GrantPermission(ctx context.Context, actorID int64, groupID, permissionID int64, argument string) error {
	ctx, opID := svc.startOperation(ctx, "grant_permission")
	if err := svc.Repo.CreatePermissionMap(ctx, &domain.PermissionMap{
		PermissionID: permissionID,
		GroupID:      groupID,
		Argument:     argument,
	}); err != nil {
		return err
	}
	svc.audit(ctx, opID, &domain.AuditLog{
		ActorID:        actorID,
		Action:         domain.AuditActionGrantPermission,
		Description:    fmt.Sprintf("Granted permission %d with argument %q", permissionID, argument),
		OnGroupID:      groupID,
		OnPermissionID: permissionID,
	})
	return nil
}

func (svc *Service) RevokePermission(ctx context.Context, actorID int64, groupID, permissionID int64, argument string) error {
	ctx, opID := svc.startOperation(ctx, "revoke_permission")
	if err := svc.Repo.DeletePermissionMap(ctx, permissionID, groupID, argument); err != nil {
		return err
	}
	svc.audit(ctx, opID, &domain.AuditLog{
		ActorID:        actorID,
		Action:         domain.AuditActionRevokePermission,
		Description:    fmt.Sprintf("Revoked permission %d with argument %q", permissionID, argument),
		OnGroupID:      groupID,
		OnPermissionID: permissionID,
	})
	return nil
}

func (svc *Service) SetUserEnabled(ctx context.Context, actorID int64, userID int64, enabled bool) error {
	ctx, opID := svc.startOperation(ctx, "set_user_enabled")
	if err := svc.Repo.SetUserEnabled(ctx, userID, enabled); err != nil {
		return err
	}
	action := domain.AuditActionDisableUser
	if enabled {
		action = domain.AuditActionEnableUser
	}
	svc.audit(ctx, opID, &domain.AuditLog{ActorID: actorID, Action: action, OnUserID: userID})
	return nil
}

func (svc *Service) SetGroupEnabled(ctx context.Context, actorID int64, groupID int64, enabled bool) error {
	ctx, opID := svc.startOperation(ctx, "set_group_enabled")
	if err := svc.Repo.SetGroupEnabled(ctx, groupID, enabled); err != nil {
		return err
	}
	action := domain.AuditActionDisableGroup
	if enabled {
		action = domain.AuditActionEnableGroup
	}
	svc.audit(ctx, opID, &domain.AuditLog{ActorID: actorID, Action: action, OnGroupID: groupID})
	return nil
}

func (svc *Service) SetPermissionAudited(ctx context.Context, actorID int64, permissionID int64, audited bool) error {
	ctx, opID := svc.startOperation(ctx, "set_permission_audited")
	if err := svc.Repo.SetPermissionAudited(ctx, permissionID, audited); err != nil {
		return err
	}
	action := domain.AuditActionDisableAuditing
	if audited {
		action = domain.AuditActionEnableAuditing
	}
	svc.audit(ctx, opID, &domain.AuditLog{ActorID: actorID, Action: action, OnPermissionID: permissionID})
	return nil
}

func (svc *Service) GetUserByName(ctx context.Context, username string) (*domain.User, error) {
	opt := &domain.QueryUserOptions{Usernames: []string{username}}
	if err := svc.Repo.QueryUsers(ctx, opt); err != nil {
		return nil, err
	}
	if len(opt.Result) == 0 {
		return nil, fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
	}
	return opt.Result[0], nil
}

func (svc *Service) GetGroupByName(ctx context.Context, name string) (*domain.Group, error) {
	opt := &domain.QueryGroupOptions{Names: []string{name}}
	if err := svc.Repo.QueryGroups(ctx, opt); err != nil {
		return nil, err
	}
	if len(opt.Result) == 0 {
		return nil, fmt.Errorf("group %s: %w", name, domain.ErrNotFound)
	}
	return opt.Result[0], nil
}

func (svc *Service) GetPermissionByName(ctx context.Context, name string) (*domain.Permission, error) {
	opt := &domain.QueryPermissionOptions{Names: []string{name}}
	if err := svc.Repo.QueryPermissions(ctx, opt); err != nil {
		return nil, err
	}
	if len(opt.Result) == 0 {
		return nil, fmt.Errorf("permission %s: %w", name, domain.ErrNotFound)
	}
	return opt.Result[0], nil
}

func (svc *Service) getGroup(ctx context.Context, groupID int64) (*domain.Group, error) {
	return getGroup(ctx, svc.Repo, groupID)
}

func getGroup(ctx context.Context, repo domain.Repository, groupID int64) (*domain.Group, error) {
	opt := &domain.QueryGroupOptions{IDs: []int64{groupID}}
	if err := repo.QueryGroups(ctx, opt); err != nil {
		return nil, err
	}
	if len(opt.Result) == 0 {
		return nil, fmt.Errorf("group %d: %w", groupID, domain.ErrNotFound)
	}
	return opt.Result[0], nil
}

func getUser(ctx context.Context, repo domain.Repository, userID int64) (*domain.User, error) {
	opt := &domain.QueryUserOptions{IDs: []int64{userID}}
	if err := repo.QueryUsers(ctx, opt); err != nil {
		return nil, err
	}
	if len(opt.Result) == 0 {
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return opt.Result[0], nil
}

func getPermission(ctx context.Context, repo domain.Repository, permissionID int64) (*domain.Permission, error) {
	opt := &domain.QueryPermissionOptions{IDs: []int64{permissionID}}
	if err := repo.QueryPermissions(ctx, opt); err != nil {
		return nil, err
	}
	if len(opt.Result) == 0 {
		return nil, fmt.Errorf("permission %d: %w", permissionID, domain.ErrNotFound)
	}
	return opt.Result[0], nil
}

// usernamesOf returns the usernames of enabled users directly in the groups.
func usernamesOf(ctx context.Context, repo domain.Repository, groupIDs []int64, now time.Time) ([]string, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	edgeOpt := &domain.QueryGroupEdgeOptions{GroupIDs: groupIDs, ActiveAt: &now}
	if err := repo.QueryGroupEdges(ctx, edgeOpt); err != nil {
		return nil, err
	}
	var userIDs []int64
	seen := map[int64]bool{}
	for _, edge := range edgeOpt.Result {
		if edge.Member.Type != domain.MemberTypeUser || seen[edge.Member.ID] {
			continue
		}
		seen[edge.Member.ID] = true
		userIDs = append(userIDs, edge.Member.ID)
	}
	if len(userIDs) == 0 {
		return nil, nil
	}
	userOpt := &domain.QueryUserOptions{IDs: userIDs}
	if err := repo.QueryUsers(ctx, userOpt); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(userOpt.Result))
	for _, user := range userOpt.Result {
		names = append(names, user.Username)
	}
	return names, nil
}
