package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/hospitalconfig"
	"github.com/careflow/careflow/internal/domain/rbac"
	"github.com/careflow/careflow/internal/platform/auth"
)

// ErrStepBehind rejects transitions back to a step the patient already
// passed.
var ErrStepBehind = errors.New("cannot go back to a previous step")

// ErrUnknownStep rejects targets outside the pathway.
var ErrUnknownStep = errors.New("unknown workflow step")

// Requirement names what blocks a denied transition.
const (
	RequiresPayment    = "payment"
	RequiresVitals     = "vitals"
	RequiresPermission = "permission"
)

// Decision is the outcome of a CanProceed evaluation.
type Decision struct {
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
	Requires   string `json:"requires,omitempty"`
	Permission string `json:"permission,omitempty"`
}

// Action is one candidate next step with its evaluation result.
type Action struct {
	Step             Step   `json:"step"`
	Allowed          bool   `json:"allowed"`
	Reason           string `json:"reason,omitempty"`
	Requires         string `json:"requires,omitempty"`
	ConventionalRole string `json:"conventional_role,omitempty"`
}

// Authorizer checks a named permission against the caller's session.
type Authorizer interface {
	Authorize(ctx context.Context, sess *auth.SessionContext, permission string) error
}

// ConfigSource reads the live hospital configuration.
type ConfigSource interface {
	Live(ctx context.Context) (*hospitalconfig.HospitalConfig, error)
}

// Service derives a patient's position in the care pathway and gates
// advancement. The current step is recomputed from live facts on every call
// and never persisted; caching it would let it drift from the records it is
// derived from.
type Service struct {
	probe  ClinicalStateProbe
	cfg    ConfigSource
	authz  Authorizer
	logger zerolog.Logger
}

func NewService(probe ClinicalStateProbe, cfg ConfigSource, authz Authorizer, logger zerolog.Logger) *Service {
	return &Service{probe: probe, cfg: cfg, authz: authz, logger: logger}
}

// CurrentStep walks the guard sequence and returns the first step whose guard
// fails. The pharmacy and lab sub-chains only apply when a prescription or
// lab order exists.
func (s *Service) CurrentStep(ctx context.Context, patientID uuid.UUID) (Step, error) {
	registered, err := s.probe.RegistrationComplete(ctx, patientID)
	if err != nil {
		return "", err
	}
	if !registered {
		return StepRegistration, nil
	}

	paid, err := s.probe.InvoicePaid(ctx, patientID, InvoiceConsultation)
	if err != nil {
		return "", err
	}
	if !paid {
		return StepBillingConsultation, nil
	}

	vitals, err := s.probe.VitalsRecorded(ctx, patientID)
	if err != nil {
		return "", err
	}
	if !vitals {
		return StepVitals, nil
	}

	consulted, err := s.probe.ConsultationCompleted(ctx, patientID)
	if err != nil {
		return "", err
	}
	if !consulted {
		return StepConsultation, nil
	}

	hasRx, err := s.probe.HasPrescription(ctx, patientID)
	if err != nil {
		return "", err
	}
	if hasRx {
		paid, err := s.probe.InvoicePaid(ctx, patientID, InvoicePharmacy)
		if err != nil {
			return "", err
		}
		if !paid {
			return StepBillingPharmacy, nil
		}
		dispensed, err := s.probe.DrugsDispensed(ctx, patientID)
		if err != nil {
			return "", err
		}
		if !dispensed {
			return StepPharmacy, nil
		}
	}

	hasLab, err := s.probe.HasLabOrder(ctx, patientID)
	if err != nil {
		return "", err
	}
	if hasLab {
		paid, err := s.probe.InvoicePaid(ctx, patientID, InvoiceLab)
		if err != nil {
			return "", err
		}
		if !paid {
			return StepBillingLab, nil
		}
		done, err := s.probe.LabCompleted(ctx, patientID)
		if err != nil {
			return "", err
		}
		if !done {
			return StepLab, nil
		}
	}

	return StepDischarge, nil
}

// CanProceed evaluates whether the caller may advance the patient to target.
// Backward targets fail with ErrStepBehind; every other rejection comes back
// as a Decision naming what is missing.
func (s *Service) CanProceed(ctx context.Context, sess *auth.SessionContext, patientID uuid.UUID, target Step) (*Decision, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStep, target)
	}

	current, err := s.CurrentStep(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if target.Index() < current.Index() {
		return nil, fmt.Errorf("%w: patient is at %s", ErrStepBehind, current)
	}

	cfg, err := s.cfg.Live(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.BillingInterruptEnabled {
		switch target {
		case StepConsultation:
			paid, err := s.probe.InvoicePaid(ctx, patientID, InvoiceConsultation)
			if err != nil {
				return nil, err
			}
			if !paid {
				return &Decision{Reason: "consultation invoice unpaid", Requires: RequiresPayment}, nil
			}
		case StepPharmacy:
			paid, err := s.probe.InvoicePaid(ctx, patientID, InvoicePharmacy)
			if err != nil {
				return nil, err
			}
			if !paid {
				return &Decision{Reason: "pharmacy invoice unpaid", Requires: RequiresPayment}, nil
			}
		}
	}

	if target == StepConsultation && cfg.ComplianceRules.RequireVitalsBeforeConsultation {
		recorded, err := s.probe.VitalsRecorded(ctx, patientID)
		if err != nil {
			return nil, err
		}
		if !recorded {
			return &Decision{Reason: "vitals not recorded", Requires: RequiresVitals}, nil
		}
	}

	perm := target.RequiredPermission()
	if err := s.authz.Authorize(ctx, sess, perm); err != nil {
		var forbidden *rbac.ForbiddenError
		if errors.As(err, &forbidden) {
			return &Decision{Reason: forbidden.Error(), Requires: RequiresPermission, Permission: perm}, nil
		}
		return nil, err
	}

	return &Decision{Allowed: true}, nil
}

// NextAvailableActions evaluates CanProceed over the current step's successor
// set, annotating each candidate with the role that conventionally performs
// it.
func (s *Service) NextAvailableActions(ctx context.Context, sess *auth.SessionContext, patientID uuid.UUID) (Step, []Action, error) {
	current, err := s.CurrentStep(ctx, patientID)
	if err != nil {
		return "", nil, err
	}

	successors := current.Successors()
	actions := make([]Action, 0, len(successors))
	for _, step := range successors {
		decision, err := s.CanProceed(ctx, sess, patientID, step)
		if err != nil {
			return "", nil, err
		}
		actions = append(actions, Action{
			Step:             step,
			Allowed:          decision.Allowed,
			Reason:           decision.Reason,
			Requires:         decision.Requires,
			ConventionalRole: step.ConventionalRole(),
		})
	}
	return current, actions, nil
}
