package hospitalconfig

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Operating modes recognized by the workflow engine.
const (
	ModeStandard      = "standard"
	ModeEmergencyOnly = "emergency_only"
)

// ComplianceRules is the closed set of policy toggles the workflow engine
// checks. Unknown keys in an update payload are an error rather than being
// silently dropped, so an admin cannot "enable" a rule the engine never
// evaluates.
type ComplianceRules struct {
	RequireVitalsBeforeConsultation bool `json:"require_vitals_before_consultation"`
	RequireConsentBeforeLab         bool `json:"require_consent_before_lab"`
}

// UnmarshalStrict decodes rules from JSON, rejecting unknown keys.
func (r *ComplianceRules) UnmarshalStrict(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(r)
}

// HospitalConfig is the single live configuration record. The service always
// re-reads it so rule changes take effect on the next request.
type HospitalConfig struct {
	ID                      uuid.UUID       `json:"id"`
	HospitalName            string          `json:"hospital_name"`
	OperatingMode           string          `json:"operating_mode"`
	AllowMultiRoleUsers     bool            `json:"allow_multi_role_users"`
	RequireRoleSwitching    bool            `json:"require_role_switching"`
	BillingInterruptEnabled bool            `json:"billing_interrupt_enabled"`
	EnabledDepartments      []uuid.UUID     `json:"enabled_departments"`
	ComplianceRules         ComplianceRules `json:"compliance_rules"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// DepartmentEnabled reports whether a department may receive check-ins. An
// empty enabled set means every department is enabled.
func (c *HospitalConfig) DepartmentEnabled(id uuid.UUID) bool {
	if len(c.EnabledDepartments) == 0 {
		return true
	}
	for _, d := range c.EnabledDepartments {
		if d == id {
			return true
		}
	}
	return false
}
