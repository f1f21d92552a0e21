package hospitalconfig

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/domain/rbac"
	"github.com/careflow/careflow/internal/platform/auth"
)

// PermManageConfig guards configuration writes.
const PermManageConfig = "manage_hospital_config"

// Authorizer checks a named permission against the caller's session.
type Authorizer interface {
	Authorize(ctx context.Context, sess *auth.SessionContext, permission string) error
}

type Handler struct {
	svc   *Service
	authz Authorizer
}

func NewHandler(svc *Service, authz Authorizer) *Handler {
	return &Handler{svc: svc, authz: authz}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/hospital-config", h.GetConfig)
	api.PUT("/hospital-config", h.UpdateConfig)
}

func (h *Handler) GetConfig(c echo.Context) error {
	cfg, err := h.svc.Live(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cfg)
}

// updateRequest mirrors HospitalConfig without the server-owned fields.
// compliance_rules stays raw so unknown rule keys can be rejected.
type updateRequest struct {
	HospitalName            string          `json:"hospital_name"`
	OperatingMode           string          `json:"operating_mode"`
	AllowMultiRoleUsers     bool            `json:"allow_multi_role_users"`
	RequireRoleSwitching    bool            `json:"require_role_switching"`
	BillingInterruptEnabled bool            `json:"billing_interrupt_enabled"`
	EnabledDepartments      []uuid.UUID     `json:"enabled_departments"`
	ComplianceRules         json.RawMessage `json:"compliance_rules"`
}

func (h *Handler) UpdateConfig(c echo.Context) error {
	ctx := c.Request().Context()
	sess := auth.SessionFromContext(ctx)

	if err := h.authz.Authorize(ctx, sess, PermManageConfig); err != nil {
		var fe *rbac.ForbiddenError
		if errors.As(err, &fe) {
			return echo.NewHTTPError(http.StatusForbidden, fe.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	var req updateRequest
	if err := dec.Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var rules ComplianceRules
	if len(req.ComplianceRules) > 0 {
		if err := rules.UnmarshalStrict(req.ComplianceRules); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown compliance rule: "+err.Error())
		}
	}

	cfg := &HospitalConfig{
		HospitalName:            req.HospitalName,
		OperatingMode:           req.OperatingMode,
		AllowMultiRoleUsers:     req.AllowMultiRoleUsers,
		RequireRoleSwitching:    req.RequireRoleSwitching,
		BillingInterruptEnabled: req.BillingInterruptEnabled,
		EnabledDepartments:      req.EnabledDepartments,
		ComplianceRules:         rules,
	}

	updated, err := h.svc.Update(ctx, cfg)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}
