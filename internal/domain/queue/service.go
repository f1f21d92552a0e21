package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/hospitalconfig"
	"github.com/careflow/careflow/internal/platform/auth"
)

// Permissions checked by queue operations.
const (
	PermViewQueue   = "view_queue"
	PermCheckIn     = "checkin_patient"
	PermManageQueue = "manage_queue"
)

// Authorizer checks a named permission against the caller's session.
type Authorizer interface {
	Authorize(ctx context.Context, sess *auth.SessionContext, permission string) error
}

// ConfigSource reads the live hospital configuration.
type ConfigSource interface {
	Live(ctx context.Context) (*hospitalconfig.HospitalConfig, error)
}

// StaffDirectory resolves a staff member's department assignment, used by the
// my-queue listing.
type StaffDirectory interface {
	DepartmentOf(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error)
}

// TxRunner executes fn atomically. Wired to db.RunInTx in production; tests
// pass a plain pass-through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Service owns the per-visit queue lifecycle. Every mutation runs as a single
// atomic unit; listings are point-in-time reads with no cross-call guarantee.
type Service struct {
	repo   Repository
	cfg    ConfigSource
	authz  Authorizer
	tx     TxRunner
	logger zerolog.Logger
}

func NewService(repo Repository, cfg ConfigSource, authz Authorizer, tx TxRunner, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{repo: repo, cfg: cfg, authz: authz, tx: tx, logger: logger}
}

// CheckInRequest is the enqueue input.
type CheckInRequest struct {
	PatientID      uuid.UUID `json:"patient_id"`
	DepartmentID   uuid.UUID `json:"department_id"`
	VisitType      string    `json:"visit_type,omitempty"`
	Priority       string    `json:"priority,omitempty"`
	ChiefComplaint string    `json:"chief_complaint,omitempty"`
}

// checkDepartment validates that the department exists and is enabled.
func (s *Service) checkDepartment(ctx context.Context, id uuid.UUID) error {
	exists, err := s.repo.DepartmentExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("department %s: %w", id, ErrNotFound)
	}

	cfg, err := s.cfg.Live(ctx)
	if err != nil {
		return err
	}
	if !cfg.DepartmentEnabled(id) {
		return ErrDepartmentDisabled
	}
	return nil
}

// CheckIn creates a visit and places it on the department's waiting list.
func (s *Service) CheckIn(ctx context.Context, sess *auth.SessionContext, req CheckInRequest) (*Visit, error) {
	if err := s.authz.Authorize(ctx, sess, PermCheckIn); err != nil {
		return nil, err
	}
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if req.DepartmentID == uuid.Nil {
		return nil, fmt.Errorf("department_id is required")
	}
	if req.Priority == "" {
		req.Priority = PriorityNormal
	}
	if !ValidPriority(req.Priority) {
		return nil, fmt.Errorf("invalid priority %q", req.Priority)
	}
	if req.VisitType == "" {
		req.VisitType = VisitTypeOPD
	}
	if !ValidVisitType(req.VisitType) {
		return nil, fmt.Errorf("invalid visit_type %q", req.VisitType)
	}

	if err := s.checkDepartment(ctx, req.DepartmentID); err != nil {
		return nil, err
	}

	deptID := req.DepartmentID
	visit := &Visit{
		PatientID:           req.PatientID,
		VisitType:           req.VisitType,
		CurrentDepartmentID: &deptID,
		Priority:            req.Priority,
		ChiefComplaint:      req.ChiefComplaint,
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, visit); err != nil {
			return err
		}
		return s.repo.ExpandRefs(ctx, visit)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("visit_id", visit.ID.String()).
		Str("department_id", deptID.String()).
		Str("priority", visit.Priority).
		Msg("visit checked in")

	return visit, nil
}

// BeginService moves a waiting visit to active. Idempotent on already-active
// visits; a visit that left the department queue fails with
// ErrInvalidTransition so a racing transfer or completion is not lost.
func (s *Service) BeginService(ctx context.Context, sess *auth.SessionContext, id uuid.UUID) (*Visit, error) {
	if err := s.authz.Authorize(ctx, sess, PermManageQueue); err != nil {
		return nil, err
	}

	var visit *Visit
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		visit, err = s.repo.BeginService(ctx, id)
		return err
	})
	return visit, err
}

// Transfer moves the visit to another department's waiting list, the same
// operation as the initial enqueue.
func (s *Service) Transfer(ctx context.Context, sess *auth.SessionContext, id, departmentID uuid.UUID, priority string) (*Visit, error) {
	if err := s.authz.Authorize(ctx, sess, PermManageQueue); err != nil {
		return nil, err
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !ValidPriority(priority) {
		return nil, fmt.Errorf("invalid priority %q", priority)
	}
	if err := s.checkDepartment(ctx, departmentID); err != nil {
		return nil, err
	}

	var visit *Visit
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		visit, err = s.repo.Requeue(ctx, id, departmentID, priority)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("visit_id", id.String()).
		Str("department_id", departmentID.String()).
		Msg("visit transferred")

	return visit, nil
}

// Finish marks service at the current department done.
func (s *Service) Finish(ctx context.Context, sess *auth.SessionContext, id uuid.UUID) (*Visit, error) {
	if err := s.authz.Authorize(ctx, sess, PermManageQueue); err != nil {
		return nil, err
	}

	var visit *Visit
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		visit, err = s.repo.Finish(ctx, id)
		return err
	})
	return visit, err
}

// Complete ends the visit and the queue lifecycle. Terminal.
func (s *Service) Complete(ctx context.Context, sess *auth.SessionContext, id uuid.UUID) (*Visit, error) {
	if err := s.authz.Authorize(ctx, sess, PermManageQueue); err != nil {
		return nil, err
	}

	var visit *Visit
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		visit, err = s.repo.Complete(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("visit_id", id.String()).Msg("visit completed")
	return visit, nil
}

// ListQueue returns the ordered listing for (department, queueStatus).
func (s *Service) ListQueue(ctx context.Context, sess *auth.SessionContext, departmentID uuid.UUID, queueStatus string, limit, offset int) ([]*Visit, int, error) {
	if err := s.authz.Authorize(ctx, sess, PermViewQueue); err != nil {
		return nil, 0, err
	}
	switch queueStatus {
	case QueueWaiting, QueueActive, QueueFinished:
	default:
		return nil, 0, fmt.Errorf("invalid queue status %q", queueStatus)
	}

	visits, total, err := s.repo.ListByDepartment(ctx, departmentID, queueStatus, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, v := range visits {
		if err := s.repo.ExpandRefs(ctx, v); err != nil {
			return nil, 0, err
		}
	}
	return visits, total, nil
}
