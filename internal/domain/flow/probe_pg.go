package flow

import (
	"context"

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

type probePG struct{ pool *pgxpool.Pool }

// NewProbePG builds a probe issuing EXISTS queries against the collaborator
// tables.
func NewProbePG(pool *pgxpool.Pool) ClinicalStateProbe { return &probePG{pool: pool} }

func (p *probePG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return p.pool
}

func (p *probePG) exists(ctx context.Context, sql string, args ...interface{}) (bool, error) {
	var ok bool
	err := p.conn(ctx).QueryRow(ctx, sql, args...).Scan(&ok)
	return ok, err
}

func (p *probePG) RegistrationComplete(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return p.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)`, patientID)
}

func (p *probePG) VitalsRecorded(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return p.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM vitals WHERE patient_id = $1)`, patientID)
}

func (p *probePG) ConsultationCompleted(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return p.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM consultations WHERE patient_id = $1 AND status = 'completed')`, patientID)
}

func (p *probePG) HasPrescription(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return p.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM prescriptions WHERE patient_id = $1)`, patientID)
}

func (p *probePG) DrugsDispensed(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return p.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM dispenses WHERE patient_id = $1)`, patientID)
}

func (p *probePG) HasLabOrder(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return p.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM lab_orders WHERE patient_id = $1)`, patientID)
}

func (p *probePG) LabCompleted(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return p.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM lab_results WHERE patient_id = $1)`, patientID)
}

func (p *probePG) InvoicePaid(ctx context.Context, patientID uuid.UUID, invoiceType string) (bool, error) {
	return p.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE patient_id = $1 AND invoice_type = $2 AND status = 'paid')`,
		patientID, invoiceType)
}
