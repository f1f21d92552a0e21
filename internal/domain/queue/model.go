package queue

import (
	"time"

	"github.com/google/uuid"
)

// Visit types.
const (
	VisitTypeOPD       = "opd"
	VisitTypeIPD       = "ipd"
	VisitTypeEmergency = "emergency"
)

// Visit lifecycle status. Completed is terminal.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Queue status. waiting -> active -> {finished, transferred, completed};
// transferred loops back to waiting at the new department.
const (
	QueueWaiting     = "waiting"
	QueueActive      = "active"
	QueueFinished    = "finished"
	QueueTransferred = "transferred"
	QueueCompleted   = "completed"
)

// Priorities, emergency highest.
const (
	PriorityLow       = "low"
	PriorityNormal    = "normal"
	PriorityHigh      = "high"
	PriorityEmergency = "emergency"
)

// PriorityRank maps a priority to its sort rank; lower ranks are served
// first. Unknown values sort last.
func PriorityRank(priority string) int {
	switch priority {
	case PriorityEmergency:
		return 1
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 3
	default:
		return 4
	}
}

// ValidPriority reports whether p is one of the four fixed priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityEmergency:
		return true
	}
	return false
}

// ValidVisitType reports whether t is a recognized visit type.
func ValidVisitType(t string) bool {
	switch t {
	case VisitTypeOPD, VisitTypeIPD, VisitTypeEmergency:
		return true
	}
	return false
}

// PatientRef is the expanded patient summary attached to queue listings.
// Patient records belong to an external collaborator; only these fields are
// read here.
type PatientRef struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	MRN      string    `json:"mrn"`
}

// DepartmentRef is the expanded department summary.
type DepartmentRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Visit is one episode of care from check-in to discharge. The queue fields
// (current_department_id, queue_status, priority, queued_at) are mutated only
// by this package.
type Visit struct {
	ID                  uuid.UUID  `json:"id"`
	PatientID           uuid.UUID  `json:"patient_id"`
	VisitType           string     `json:"visit_type"`
	Status              string     `json:"status"`
	CurrentDepartmentID *uuid.UUID `json:"current_department_id,omitempty"`
	QueueStatus         string     `json:"queue_status"`
	Priority            string     `json:"priority"`
	QueuedAt            time.Time  `json:"queued_at"`
	ChiefComplaint      string     `json:"chief_complaint,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Patient    *PatientRef    `json:"patient,omitempty"`
	Department *DepartmentRef `json:"department,omitempty"`
}

// Terminal reports whether the visit accepts no further transitions.
func (v *Visit) Terminal() bool {
	return v.Status == StatusCompleted
}
