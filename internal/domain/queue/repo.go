package queue

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists visits and their queue state. Mutations are conditional
// updates so a row that already moved elsewhere fails visibly instead of
// being silently overwritten.
type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)

	// ListByDepartment returns visits for (department, queueStatus) ordered
	// by priority rank then queued_at ascending.
	ListByDepartment(ctx context.Context, departmentID uuid.UUID, queueStatus string, limit, offset int) ([]*Visit, int, error)

	// BeginService moves a waiting visit to active. Already-active visits
	// succeed unchanged; visits that left the queue fail with
	// ErrInvalidTransition.
	BeginService(ctx context.Context, id uuid.UUID) (*Visit, error)

	// Requeue places the visit on a department's waiting list, used for
	// both initial enqueue bookkeeping and transfers.
	Requeue(ctx context.Context, id, departmentID uuid.UUID, priority string) (*Visit, error)

	// Finish marks service at the current department done, keeping the
	// department for reference.
	Finish(ctx context.Context, id uuid.UUID) (*Visit, error)

	// Complete ends the visit. Terminal; clears the department.
	Complete(ctx context.Context, id uuid.UUID) (*Visit, error)

	// ExpandRefs fills the Patient and Department summaries.
	ExpandRefs(ctx context.Context, v *Visit) error

	// DepartmentExists reports whether the department is known.
	DepartmentExists(ctx context.Context, id uuid.UUID) (bool, error)
}
