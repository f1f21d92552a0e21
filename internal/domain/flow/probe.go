package flow

import (
	"context"

	"github.com/google/uuid"
)

// Invoice types consulted by the billing guards.
const (
	InvoiceConsultation = "consultation"
	InvoicePharmacy     = "pharmacy"
	InvoiceLab          = "lab"
)

// ClinicalStateProbe answers boolean questions about a patient's clinical and
// billing records. The records themselves belong to external collaborators;
// this package only reads facts from them.
type ClinicalStateProbe interface {
	RegistrationComplete(ctx context.Context, patientID uuid.UUID) (bool, error)
	VitalsRecorded(ctx context.Context, patientID uuid.UUID) (bool, error)
	ConsultationCompleted(ctx context.Context, patientID uuid.UUID) (bool, error)
	HasPrescription(ctx context.Context, patientID uuid.UUID) (bool, error)
	DrugsDispensed(ctx context.Context, patientID uuid.UUID) (bool, error)
	HasLabOrder(ctx context.Context, patientID uuid.UUID) (bool, error)
	LabCompleted(ctx context.Context, patientID uuid.UUID) (bool, error)
	InvoicePaid(ctx context.Context, patientID uuid.UUID, invoiceType string) (bool, error)
}
