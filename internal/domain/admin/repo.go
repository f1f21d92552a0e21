package admin

import (
	"context"

	"github.com/google/uuid"
)

// Repository reads departments and staff profiles.
type Repository interface {
	GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error)
	ListDepartments(ctx context.Context, limit, offset int) ([]*Department, int, error)
	GetStaffProfile(ctx context.Context, userID uuid.UUID) (*StaffProfile, error)
}
