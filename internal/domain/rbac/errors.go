package rbac

import (
	"errors"
	"fmt"
)

var (
	// ErrRoleNotFound means the referenced role does not exist at all.
	ErrRoleNotFound = errors.New("role not found")

	// ErrInvalidRole means the switch target exists but is not assigned to
	// the user.
	ErrInvalidRole = errors.New("role is not assigned to this user")

	// ErrPolicyViolation means hospital policy forbids the switch, e.g.
	// multi-role users are disabled while the user holds several roles.
	ErrPolicyViolation = errors.New("role switch not permitted by hospital policy")
)

// ForbiddenError reports a failed permission check. Role carries the active
// role's display name when one was consulted, so the caller can tell the user
// which role fell short.
type ForbiddenError struct {
	Role       string
	Permission string
}

func (e *ForbiddenError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("permission %q denied", e.Permission)
	}
	return fmt.Sprintf("role %q does not grant permission %q", e.Role, e.Permission)
}
