package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound means the department or staff profile does not exist.
var ErrNotFound = errors.New("not found")

// Service exposes the read side of the department and staff directory.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	return s.repo.GetDepartment(ctx, id)
}

func (s *Service) ListDepartments(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	return s.repo.ListDepartments(ctx, limit, offset)
}

func (s *Service) StaffProfile(ctx context.Context, userID uuid.UUID) (*StaffProfile, error) {
	return s.repo.GetStaffProfile(ctx, userID)
}

// DepartmentOf resolves a user's department assignment. Inactive profiles and
// profiles without a department report no assignment.
func (s *Service) DepartmentOf(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error) {
	profile, err := s.repo.GetStaffProfile(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	if !profile.Active || profile.DepartmentID == nil {
		return uuid.Nil, false, nil
	}
	return *profile.DepartmentID, true, nil
}
