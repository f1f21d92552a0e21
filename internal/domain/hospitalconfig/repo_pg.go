package hospitalconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

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

const configCols = `id, hospital_name, operating_mode, allow_multi_role_users,
	require_role_switching, billing_interrupt_enabled, enabled_departments,
	compliance_rules, updated_at`

func (r *repoPG) scanConfig(row pgx.Row) (*HospitalConfig, error) {
	var c HospitalConfig
	var rules []byte
	err := row.Scan(&c.ID, &c.HospitalName, &c.OperatingMode, &c.AllowMultiRoleUsers,
		&c.RequireRoleSwitching, &c.BillingInterruptEnabled, &c.EnabledDepartments,
		&rules, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &c.ComplianceRules); err != nil {
			return nil, fmt.Errorf("decode compliance rules: %w", err)
		}
	}
	return &c, nil
}

// Live returns the singleton configuration row. The row is seeded by the
// initial migration, so a missing row is a deployment error.
func (r *repoPG) Live(ctx context.Context) (*HospitalConfig, error) {
	cfg, err := r.scanConfig(r.conn(ctx).QueryRow(ctx,
		`SELECT `+configCols+` FROM hospital_config ORDER BY updated_at DESC LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("hospital configuration row is missing")
	}
	return cfg, err
}

func (r *repoPG) Update(ctx context.Context, cfg *HospitalConfig) error {
	rules, err := json.Marshal(cfg.ComplianceRules)
	if err != nil {
		return fmt.Errorf("encode compliance rules: %w", err)
	}
	if cfg.EnabledDepartments == nil {
		cfg.EnabledDepartments = []uuid.UUID{}
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE hospital_config SET hospital_name=$2, operating_mode=$3,
			allow_multi_role_users=$4, require_role_switching=$5,
			billing_interrupt_enabled=$6, enabled_departments=$7,
			compliance_rules=$8, updated_at=NOW()
		WHERE id = $1`,
		cfg.ID, cfg.HospitalName, cfg.OperatingMode, cfg.AllowMultiRoleUsers,
		cfg.RequireRoleSwitching, cfg.BillingInterruptEnabled,
		cfg.EnabledDepartments, rules)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("hospital configuration row is missing")
	}
	return nil
}
