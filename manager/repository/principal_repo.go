package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/groupgraph/api/manager/domain"
)

func (r *repo) CreateUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	user.CreatedOn = nowIfZero(user.CreatedOn)
	return r.mutate(ctx, func(ctx context.Context, q querier) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO users (username, enabled, role_user, service_account, created_on) VALUES (?, ?, ?, ?, ?)`,
			user.Username, user.Enabled, user.RoleUser, user.ServiceAccount, toMillis(user.CreatedOn))
		if err != nil {
			return fmt.Errorf("create user %s, err: %w", user.Username, mapDBError(err))
		}
		user.ID, err = res.LastInsertId()
		return err
	})
}

func (r *repo) QueryUsers(ctx context.Context, opt *domain.QueryUserOptions) error {
	if opt == nil {
		return domain.ErrNilQueryInput
	}
	f := &filter{}
	addIn(f, "id", opt.IDs)
	addIn(f, "username", opt.Usernames)

	rows, err := r.q.QueryContext(ctx,
		`SELECT id, username, enabled, role_user, service_account, created_on FROM users`+f.String()+` ORDER BY username`,
		f.args...)
	if err != nil {
		return fmt.Errorf("find users, err: %w", err)
	}
	defer rows.Close()

	var result []*domain.User
	for rows.Next() {
		var (
			u         domain.User
			createdOn int64
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Enabled, &u.RoleUser, &u.ServiceAccount, &createdOn); err != nil {
			return fmt.Errorf("decode users, err: %w", err)
		}
		u.CreatedOn = fromMillis(createdOn)
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate users, err: %w", err)
	}
	opt.Result = result
	return nil
}

func (r *repo) SetUserEnabled(ctx context.Context, userID int64, enabled bool) error {
	return r.mutate(ctx, func(ctx context.Context, q querier) error {
		res, err := q.ExecContext(ctx, `UPDATE users SET enabled = ? WHERE id = ?`, enabled, userID)
		if err != nil {
			return fmt.Errorf("update user %d, err: %w", userID, err)
		}
		return expectAffected(res, fmt.Sprintf("update user %d", userID))
	})
}

func (r *repo) CreateGroup(ctx context.Context, group *domain.Group) error {
	if group == nil {
		return errors.New("nil group")
	}
	group.CreatedOn = nowIfZero(group.CreatedOn)
	return r.mutate(ctx, func(ctx context.Context, q querier) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO access_groups (groupname, description, enabled, created_on) VALUES (?, ?, ?, ?)`,
			group.Name, group.Description, group.Enabled, toMillis(group.CreatedOn))
		if err != nil {
			return fmt.Errorf("create group %s, err: %w", group.Name, mapDBError(err))
		}
		group.ID, err = res.LastInsertId()
		return err
	})
}

func (r *repo) QueryGroups(ctx context.Context, opt *domain.QueryGroupOptions) error {
	if opt == nil {
		return domain.ErrNilQueryInput
	}
	f := &filter{}
	addIn(f, "id", opt.IDs)
	addIn(f, "groupname", opt.Names)
	if opt.EnabledOnly {
		f.add("enabled = 1")
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT id, groupname, description, enabled, created_on FROM access_groups`+f.String()+` ORDER BY groupname`,
		f.args...)
	if err != nil {
		return fmt.Errorf("find groups, err: %w", err)
	}
	defer rows.Close()

	var result []*domain.Group
	for rows.Next() {
		var (
			g         domain.Group
			createdOn int64
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Enabled, &createdOn); err != nil {
			return fmt.Errorf("decode groups, err: %w", err)
		}
		g.CreatedOn = fromMillis(createdOn)
		result = append(result, &g)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate groups, err: %w", err)
	}
	opt.Result = result
	return nil
}

func (r *repo) SetGroupEnabled(ctx context.Context, groupID int64, enabled bool) error {
	return r.mutate(ctx, func(ctx context.Context, q querier) error {
		res, err := q.ExecContext(ctx, `UPDATE access_groups SET enabled = ? WHERE id = ?`, enabled, groupID)
		if err != nil {
			return fmt.Errorf("update group %d, err: %w", groupID, err)
		}
		return expectAffected(res, fmt.Sprintf("update group %d", groupID))
	})
}

// UpsertGroupEdge inserts the edge or replaces role, active flag and
// expiration of the existing edge between the same endpoints.
func (r *repo) UpsertGroupEdge(ctx context.Context, edge *domain.GroupEdge) error {
	if edge == nil {
		return errors.New("nil group edge")
	}
	if !edge.Member.Type.Valid() {
		return fmt.Errorf("upsert group edge: %w: member type %d", domain.ErrInvariant, edge.Member.Type)
	}
	if !edge.Role.Valid() {
		return fmt.Errorf("upsert group edge: %w: role %d", domain.ErrInvariant, edge.Role)
	}
	return r.mutate(ctx, func(ctx context.Context, q querier) error {
		err := q.QueryRowContext(ctx,
			`INSERT INTO group_edges (group_id, member_type, member_pk, role, active, expiration)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (group_id, member_type, member_pk)
			 DO UPDATE SET role = excluded.role, active = excluded.active, expiration = excluded.expiration
			 RETURNING id`,
			edge.GroupID, edge.Member.Type, edge.Member.ID, edge.Role, edge.Active, nullMillis(edge.Expiration),
		).Scan(&edge.ID)
		if err != nil {
			return fmt.Errorf("upsert group edge %d <- %s, err: %w", edge.GroupID, edge.Member, mapDBError(err))
		}
		return nil
	})
}

func (r *repo) DeactivateGroupEdge(ctx context.Context, groupID int64, member domain.Member) error {
	return r.mutate(ctx, func(ctx context.Context, q querier) error {
		res, err := q.ExecContext(ctx,
			`UPDATE group_edges SET active = 0 WHERE group_id = ? AND member_type = ? AND member_pk = ? AND active = 1`,
			groupID, member.Type, member.ID)
		if err != nil {
			return fmt.Errorf("deactivate group edge %d <- %s, err: %w", groupID, member, err)
		}
		return expectAffected(res, fmt.Sprintf("deactivate group edge %d <- %s", groupID, member))
	})
}

func (r *repo) QueryGroupEdges(ctx context.Context, opt *domain.QueryGroupEdgeOptions) error {
	if opt == nil {
		return domain.ErrNilQueryInput
	}
	f := &filter{}
	addIn(f, "e.group_id", opt.GroupIDs)
	addIn(f, "e.role", opt.Roles)
	if len(opt.Members) > 0 {
		byType := map[domain.MemberType][]int64{}
		for _, m := range opt.Members {
			byType[m.Type] = append(byType[m.Type], m.ID)
		}
		var ors []string
		var args []any
		for _, typ := range []domain.MemberType{domain.MemberTypeUser, domain.MemberTypeGroup} {
			ids, ok := byType[typ]
			if !ok {
				continue
			}
			clause, inArgs := inClause("e.member_pk", ids)
			ors = append(ors, "(e.member_type = ? AND "+clause+")")
			args = append(args, typ)
			args = append(args, inArgs...)
		}
		if len(ors) != len(byType) {
			return fmt.Errorf("query group edges: %w: unknown member type", domain.ErrInvariant)
		}
		f.add("("+strings.Join(ors, " OR ")+")", args...)
	}
	if opt.ActiveAt != nil {
		f.add("e.active = 1")
		f.add("(e.expiration IS NULL OR e.expiration > ?)", toMillis(*opt.ActiveAt))
		f.add("g.enabled = 1")
		f.add("((e.member_type = 0 AND mu.enabled = 1) OR (e.member_type = 1 AND mg.enabled = 1))")
	}
	if opt.ExpiringBefore != nil {
		f.add("e.expiration IS NOT NULL AND e.expiration <= ?", toMillis(*opt.ExpiringBefore))
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT e.id, e.group_id, e.member_type, e.member_pk, e.role, e.active, e.expiration
		 FROM group_edges e
		 JOIN access_groups g ON g.id = e.group_id
		 LEFT JOIN users mu ON e.member_type = 0 AND mu.id = e.member_pk
		 LEFT JOIN access_groups mg ON e.member_type = 1 AND mg.id = e.member_pk`+f.String()+`
		 ORDER BY e.id`,
		f.args...)
	if err != nil {
		return fmt.Errorf("find group edges, err: %w", err)
	}
	defer rows.Close()

	var result []*domain.GroupEdge
	for rows.Next() {
		var (
			e          domain.GroupEdge
			expiration sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Member.Type, &e.Member.ID, &e.Role, &e.Active, &expiration); err != nil {
			return fmt.Errorf("decode group edges, err: %w", err)
		}
		if !e.Member.Type.Valid() || !e.Role.Valid() {
			return fmt.Errorf("decode group edge %d: %w: member type %d role %d",
				e.ID, domain.ErrInvariant, e.Member.Type, e.Role)
		}
		if expiration.Valid {
			exp := fromMillis(expiration.Int64)
			e.Expiration = &exp
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate group edges, err: %w", err)
	}
	opt.Result = result
	return nil
}

func (r *repo) RecordExpirationNotice(ctx context.Context, edgeID int64, expiration time.Time, sentAt time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO expiration_notices (edge_id, expiration, sent_at) VALUES (?, ?, ?)
		 ON CONFLICT (edge_id, expiration) DO NOTHING`,
		edgeID, toMillis(expiration), toMillis(sentAt))
	if err != nil {
		return false, fmt.Errorf("record expiration notice for edge %d, err: %w", edgeID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record expiration notice for edge %d, err: %w", edgeID, err)
	}
	return n == 1, nil
}
