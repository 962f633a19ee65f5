package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/groupgraph/api/manager/domain"
)

func (r *repo) CreatePermission(ctx context.Context, permission *domain.Permission) error {
	if permission == nil {
		return errors.New("nil permission")
	}
	permission.CreatedOn = nowIfZero(permission.CreatedOn)
	return r.mutate(ctx, func(ctx context.Context, q querier) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO permissions (name, description, audited, enabled, created_on) VALUES (?, ?, ?, ?, ?)`,
			permission.Name, permission.Description, permission.Audited, permission.Enabled, toMillis(permission.CreatedOn))
		if err != nil {
			return fmt.Errorf("create permission %s, err: %w", permission.Name, mapDBError(err))
		}
		permission.ID, err = res.LastInsertId()
		return err
	})
}

func (r *repo) QueryPermissions(ctx context.Context, opt *domain.QueryPermissionOptions) error {
	if opt == nil {
		return domain.ErrNilQueryInput
	}
	f := &filter{}
	addIn(f, "id", opt.IDs)
	addIn(f, "name", opt.Names)
	if opt.EnabledOnly {
		f.add("enabled = 1")
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, description, audited, enabled, created_on FROM permissions`+f.String()+` ORDER BY name`,
		f.args...)
	if err != nil {
		return fmt.Errorf("find permissions, err: %w", err)
	}
	defer rows.Close()

	var result []*domain.Permission
	for rows.Next() {
		var (
			p         domain.Permission
			createdOn int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Audited, &p.Enabled, &createdOn); err != nil {
			return fmt.Errorf("decode permissions, err: %w", err)
		}
		p.CreatedOn = fromMillis(createdOn)
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate permissions, err: %w", err)
	}
	opt.Result = result
	return nil
}

func (r *repo) SetPermissionAudited(ctx context.Context, permissionID int64, audited bool) error {
	return r.mutate(ctx, func(ctx context.Context, q querier) error {
		res, err := q.ExecContext(ctx, `UPDATE permissions SET audited = ? WHERE id = ?`, audited, permissionID)
		if err != nil {
			return fmt.Errorf("update permission %d, err: %w", permissionID, err)
		}
		return expectAffected(res, fmt.Sprintf("update permission %d", permissionID))
	})
}

// CreatePermissionMap grants a permission. Granting an identical
// (permission, group, argument) twice fails with domain.ErrConflict.
func (r *repo) CreatePermissionMap(ctx context.Context, grant *domain.PermissionMap) error {
	if grant == nil {
		return errors.New("nil permission map")
	}
	grant.GrantedOn = nowIfZero(grant.GrantedOn)
	return r.mutate(ctx, func(ctx context.Context, q querier) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO permissions_map (permission_id, group_id, argument, granted_on) VALUES (?, ?, ?, ?)`,
			grant.PermissionID, grant.GroupID, grant.Argument, toMillis(grant.GrantedOn))
		if err != nil {
			return fmt.Errorf("grant permission %d to group %d, err: %w", grant.PermissionID, grant.GroupID, mapDBError(err))
		}
		grant.ID, err = res.LastInsertId()
		return err
	})
}

func (r *repo) DeletePermissionMap(ctx context.Context, permissionID, groupID int64, argument string) error {
	return r.mutate(ctx, func(ctx context.Context, q querier) error {
		res, err := q.ExecContext(ctx,
			`DELETE FROM permissions_map WHERE permission_id = ? AND group_id = ? AND argument = ?`,
			permissionID, groupID, argument)
		if err != nil {
			return fmt.Errorf("revoke permission %d from group %d, err: %w", permissionID, groupID, err)
		}
		return expectAffected(res, fmt.Sprintf("revoke permission %d from group %d", permissionID, groupID))
	})
}

func (r *repo) QueryPermissionMaps(ctx context.Context, opt *domain.QueryPermissionMapOptions) error {
	if opt == nil {
		return domain.ErrNilQueryInput
	}
	f := &filter{}
	addIn(f, "pm.group_id", opt.GroupIDs)
	addIn(f, "pm.permission_id", opt.PermissionIDs)
	addIn(f, "p.name", opt.PermissionNames)
	if opt.Arguments != nil {
		if len(opt.Arguments) == 0 {
			opt.Result = nil
			return nil
		}
		addIn(f, "pm.argument", opt.Arguments)
	}
	if opt.EnabledOnly {
		f.add("g.enabled = 1")
		f.add("p.enabled = 1")
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT pm.id, pm.permission_id, pm.group_id, pm.argument, pm.granted_on, p.name, g.groupname
		 FROM permissions_map pm
		 JOIN permissions p ON p.id = pm.permission_id
		 JOIN access_groups g ON g.id = pm.group_id`+f.String()+`
		 ORDER BY p.name, pm.argument, g.groupname`,
		f.args...)
	if err != nil {
		return fmt.Errorf("find permission maps, err: %w", err)
	}
	defer rows.Close()

	var result []*domain.PermissionMap
	for rows.Next() {
		var (
			pm        domain.PermissionMap
			grantedOn int64
		)
		if err := rows.Scan(&pm.ID, &pm.PermissionID, &pm.GroupID, &pm.Argument, &grantedOn, &pm.PermissionName, &pm.GroupName); err != nil {
			return fmt.Errorf("decode permission maps, err: %w", err)
		}
		pm.GrantedOn = fromMillis(grantedOn)
		result = append(result, &pm)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate permission maps, err: %w", err)
	}
	opt.Result = result
	return nil
}
