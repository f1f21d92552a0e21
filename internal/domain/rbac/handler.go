package rbac

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/switch-role", h.SwitchRole)
	api.GET("/auth/roles", h.ListMyRoles)
	api.GET("/auth/active-role", h.GetActiveRole)
}

type switchRoleRequest struct {
	RoleID uuid.UUID `json:"role_id"`
}

func (h *Handler) SwitchRole(c echo.Context) error {
	ctx := c.Request().Context()
	sess := auth.SessionFromContext(ctx)
	if sess == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req switchRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.RoleID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "role_id is required")
	}

	meta := SwitchMeta{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}

	role, err := h.svc.SwitchRole(ctx, sess, req.RoleID, meta)
	switch {
	case errors.Is(err, ErrRoleNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrPolicyViolation):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"active_role": role,
	})
}

func (h *Handler) ListMyRoles(c echo.Context) error {
	ctx := c.Request().Context()
	sess := auth.SessionFromContext(ctx)
	if sess == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	roles, err := h.svc.UserRoles(ctx, sess)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if roles == nil {
		roles = []*Role{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"roles": roles})
}

func (h *Handler) GetActiveRole(c echo.Context) error {
	ctx := c.Request().Context()
	sess := auth.SessionFromContext(ctx)
	if sess == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	role, err := h.svc.ActiveRole(ctx, sess)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if role == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no active role")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"active_role": role})
}
