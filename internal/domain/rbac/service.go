package rbac

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/auth"
)

// Policy is the slice of hospital configuration this package consults.
type Policy struct {
	AllowMultiRoleUsers  bool
	RequireRoleSwitching bool
}

// PolicySource supplies the live policy. The config service is adapted to
// this at wiring time; keeping the interface here avoids a domain import.
type PolicySource interface {
	Policy(ctx context.Context) (Policy, error)
}

// PolicyFunc adapts a function to PolicySource.
type PolicyFunc func(ctx context.Context) (Policy, error)

func (f PolicyFunc) Policy(ctx context.Context) (Policy, error) { return f(ctx) }

// SwitchMeta carries request metadata into the switch audit record.
type SwitchMeta struct {
	IPAddress string
	UserAgent string
}

// Service resolves active roles and answers permission checks. The active
// role lives in the SessionStore keyed by session id; everything else is
// read from the repository on demand.
type Service struct {
	repo     Repository
	sessions SessionStore
	policy   PolicySource
	logger   zerolog.Logger
}

func NewService(repo Repository, sessions SessionStore, policy PolicySource, logger zerolog.Logger) *Service {
	return &Service{repo: repo, sessions: sessions, policy: policy, logger: logger}
}

// SwitchRole makes roleID the session's active role. The target must exist
// and be assigned to the caller; when multi-role users are disabled, a user
// holding several roles cannot switch at all. Every successful switch is
// appended to the switch log.
func (s *Service) SwitchRole(ctx context.Context, sess *auth.SessionContext, roleID uuid.UUID, meta SwitchMeta) (*Role, error) {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	assigned, err := s.repo.UserHasRole(ctx, sess.UserID, roleID)
	if err != nil {
		return nil, err
	}
	if !assigned || !role.Active {
		return nil, ErrInvalidRole
	}

	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return nil, err
	}
	if !policy.AllowMultiRoleUsers {
		n, err := s.repo.CountUserRoles(ctx, sess.UserID)
		if err != nil {
			return nil, err
		}
		if n > 1 {
			return nil, ErrPolicyViolation
		}
	}

	entry := &RoleSwitchLog{
		UserID:     sess.UserID,
		ToRoleID:   role.ID,
		SessionID:  sess.SessionID,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		SwitchedAt: time.Now().UTC(),
	}
	if prev, ok := s.sessions.ActiveRole(sess.SessionID); ok {
		prevID := prev
		entry.FromRoleID = &prevID
	}
	if err := s.repo.RecordSwitch(ctx, entry); err != nil {
		return nil, err
	}

	s.sessions.SetActiveRole(sess.SessionID, role.ID)
	sess.ActiveRoleID = &role.ID
	sess.ActiveRoleName = role.Name

	s.logger.Info().
		Str("user_id", sess.UserID.String()).
		Str("session_id", sess.SessionID).
		Str("to_role", role.Name).
		Msg("role switched")

	return role, nil
}

// ActiveRole returns the session's active role, lazily defaulting to the
// user's first active assigned role and persisting that choice in the
// session. Returns (nil, nil) when the user holds no active role.
func (s *Service) ActiveRole(ctx context.Context, sess *auth.SessionContext) (*Role, error) {
	if id, ok := s.sessions.ActiveRole(sess.SessionID); ok {
		role, err := s.repo.GetRole(ctx, id)
		if err == nil {
			return role, nil
		}
		if err != ErrRoleNotFound {
			return nil, err
		}
		// Stale session entry; fall through to the default
		s.sessions.Clear(sess.SessionID)
	}

	roles, err := s.repo.ListUserRoles(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, nil
	}

	first := roles[0]
	s.sessions.SetActiveRole(sess.SessionID, first.ID)
	return first, nil
}

// CanPerform reports whether the session's active role grants the permission.
func (s *Service) CanPerform(ctx context.Context, sess *auth.SessionContext, permission string) (bool, error) {
	role, err := s.ActiveRole(ctx, sess)
	if err != nil {
		return false, err
	}
	if role == nil {
		return false, nil
	}
	return role.HasPermission(permission), nil
}

// Authorize enforces the permission. With require_role_switching off, the
// union of the user's roles is consulted; otherwise only the active role
// counts, and the denial names it.
func (s *Service) Authorize(ctx context.Context, sess *auth.SessionContext, permission string) error {
	if sess == nil {
		return &ForbiddenError{Permission: permission}
	}

	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return err
	}

	if !policy.RequireRoleSwitching {
		roles, err := s.repo.ListUserRoles(ctx, sess.UserID)
		if err != nil {
			return err
		}
		for _, role := range roles {
			if role.HasPermission(permission) {
				return nil
			}
		}
		return &ForbiddenError{Permission: permission}
	}

	role, err := s.ActiveRole(ctx, sess)
	if err != nil {
		return err
	}
	if role == nil {
		return &ForbiddenError{Permission: permission}
	}
	if !role.HasPermission(permission) {
		return &ForbiddenError{Role: role.DisplayName, Permission: permission}
	}
	return nil
}

// UserRoles lists the caller's active assigned roles.
func (s *Service) UserRoles(ctx context.Context, sess *auth.SessionContext) ([]*Role, error) {
	return s.repo.ListUserRoles(ctx, sess.UserID)
}

// LookupActiveRole adapts the service to auth.RoleLookup so the auth
// middleware can stamp the active role onto the SessionContext.
func (s *Service) LookupActiveRole(ctx context.Context, userID uuid.UUID, sessionID string) (uuid.UUID, string, bool, error) {
	role, err := s.ActiveRole(ctx, &auth.SessionContext{UserID: userID, SessionID: sessionID})
	if err != nil {
		return uuid.Nil, "", false, err
	}
	if role == nil {
		return uuid.Nil, "", false, nil
	}
	return role.ID, role.Name, true, nil
}
