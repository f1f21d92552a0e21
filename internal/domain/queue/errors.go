package queue

import "errors"

var (
	// ErrNotFound means the referenced visit or department does not exist.
	ErrNotFound = errors.New("visit not found")

	// ErrInvalidTransition means the queue transition is not permitted from
	// the visit's current state, including any mutation of a completed
	// visit. Callers should re-read the visit and retry with a valid
	// target; the service never retries.
	ErrInvalidTransition = errors.New("invalid queue transition")

	// ErrDepartmentDisabled means the target department is not in the
	// hospital configuration's enabled set.
	ErrDepartmentDisabled = errors.New("department is not enabled")
)
