package queue

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

const visitCols = `id, patient_id, visit_type, status, current_department_id,
	queue_status, priority, queued_at, chief_complaint, created_at, updated_at`

// priorityOrder sorts emergency first, then high, normal, everything else,
// with FIFO tie-break on queued_at. Recomputed on every read.
const priorityOrder = `
	ORDER BY CASE priority
		WHEN 'emergency' THEN 1
		WHEN 'high' THEN 2
		WHEN 'normal' THEN 3
		ELSE 4
	END, queued_at ASC`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.VisitType, &v.Status, &v.CurrentDepartmentID,
		&v.QueueStatus, &v.Priority, &v.QueuedAt, &v.ChiefComplaint, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO visits (id, patient_id, visit_type, status, current_department_id,
			queue_status, priority, queued_at, chief_complaint)
		VALUES ($1,$2,$3,'active',$4,'waiting',$5,NOW(),$6)
		RETURNING queued_at, created_at, updated_at, status, queue_status`,
		v.ID, v.PatientID, v.VisitType, v.CurrentDepartmentID, v.Priority, v.ChiefComplaint).
		Scan(&v.QueuedAt, &v.CreatedAt, &v.UpdatedAt, &v.Status, &v.QueueStatus)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM visits WHERE id = $1`, id))
}

func (r *repoPG) ListByDepartment(ctx context.Context, departmentID uuid.UUID, queueStatus string, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM visits WHERE current_department_id = $1 AND queue_status = $2`,
		departmentID, queueStatus).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+visitCols+` FROM visits
		WHERE current_department_id = $1 AND queue_status = $2`+priorityOrder+`
		LIMIT $3 OFFSET $4`,
		departmentID, queueStatus, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var visits []*Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.PatientID, &v.VisitType, &v.Status, &v.CurrentDepartmentID,
			&v.QueueStatus, &v.Priority, &v.QueuedAt, &v.ChiefComplaint, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, 0, err
		}
		visits = append(visits, &v)
	}
	return visits, total, rows.Err()
}

// conditionalUpdate runs an update that must match exactly one row. When no
// row matched, the visit either does not exist (ErrNotFound) or has moved to
// a state the transition does not accept (ErrInvalidTransition).
func (r *repoPG) conditionalUpdate(ctx context.Context, id uuid.UUID, sql string, args ...interface{}) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx, sql, args...))
	if !errors.Is(err, ErrNotFound) {
		return v, err
	}

	var exists bool
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM visits WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrInvalidTransition
}

func (r *repoPG) BeginService(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return r.conditionalUpdate(ctx, id, `
		UPDATE visits SET queue_status = 'active', updated_at = NOW()
		WHERE id = $1 AND status <> 'completed' AND queue_status IN ('waiting','active')
		RETURNING `+visitCols, id)
}

func (r *repoPG) Requeue(ctx context.Context, id, departmentID uuid.UUID, priority string) (*Visit, error) {
	return r.conditionalUpdate(ctx, id, `
		UPDATE visits SET current_department_id = $2, priority = $3,
			queue_status = 'waiting', queued_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status <> 'completed'
		RETURNING `+visitCols, id, departmentID, priority)
}

func (r *repoPG) Finish(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return r.conditionalUpdate(ctx, id, `
		UPDATE visits SET queue_status = 'finished', updated_at = NOW()
		WHERE id = $1 AND status <> 'completed' AND queue_status IN ('active','finished')
		RETURNING `+visitCols, id)
}

func (r *repoPG) Complete(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return r.conditionalUpdate(ctx, id, `
		UPDATE visits SET queue_status = 'completed', status = 'completed',
			current_department_id = NULL, updated_at = NOW()
		WHERE id = $1 AND status <> 'completed'
		RETURNING `+visitCols, id)
}

func (r *repoPG) ExpandRefs(ctx context.Context, v *Visit) error {
	var p PatientRef
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, full_name, mrn FROM patients WHERE id = $1`, v.PatientID).
		Scan(&p.ID, &p.FullName, &p.MRN)
	if err == nil {
		v.Patient = &p
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if v.CurrentDepartmentID != nil {
		var d DepartmentRef
		err := r.conn(ctx).QueryRow(ctx,
			`SELECT id, name FROM departments WHERE id = $1`, *v.CurrentDepartmentID).
			Scan(&d.ID, &d.Name)
		if err == nil {
			v.Department = &d
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
	}
	return nil
}

func (r *repoPG) DepartmentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM departments WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}
