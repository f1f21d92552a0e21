package rbac

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const roleCols = `id, name, display_name, description, permissions, active, created_at`

func (r *repoPG) scanRole(row pgx.Row) (*Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description,
		&role.Permissions, &role.Active, &role.CreatedAt)
	return &role, err
}

func (r *repoPG) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	role, err := r.scanRole(r.conn(ctx).QueryRow(ctx,
		`SELECT `+roleCols+` FROM roles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (r *repoPG) ListRoles(ctx context.Context) ([]*Role, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+roleCols+` FROM roles WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

func (r *repoPG) ListUserRoles(ctx context.Context, userID uuid.UUID) ([]*Role, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT r.id, r.name, r.display_name, r.description, r.permissions, r.active, r.created_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1 AND ur.active AND r.active
		ORDER BY ur.position, ur.assigned_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

func collectRoles(rows pgx.Rows) ([]*Role, error) {
	var roles []*Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description,
			&role.Permissions, &role.Active, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

func (r *repoPG) UserHasRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	var has bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles
			WHERE user_id = $1 AND role_id = $2 AND active
		)`, userID, roleID).Scan(&has)
	return has, err
}

func (r *repoPG) CountUserRoles(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM user_roles WHERE user_id = $1 AND active`, userID).Scan(&n)
	return n, err
}

func (r *repoPG) RecordSwitch(ctx context.Context, entry *RoleSwitchLog) error {
	entry.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO role_switch_log (id, user_id, from_role_id, to_role_id, session_id, ip_address, user_agent, switched_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		entry.ID, entry.UserID, entry.FromRoleID, entry.ToRoleID,
		entry.SessionID, entry.IPAddress, entry.UserAgent, entry.SwitchedAt)
	return err
}
