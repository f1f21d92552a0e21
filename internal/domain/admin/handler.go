package admin

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/departments", h.ListDepartments)
	api.GET("/departments/:id", h.GetDepartment)
	api.GET("/staff/me", h.MyProfile)
}

func (h *Handler) ListDepartments(c echo.Context) error {
	page := pagination.FromContext(c)
	depts, total, err := h.svc.ListDepartments(c.Request().Context(), page.Limit, page.Offset)
	if err != nil {
		return err
	}
	if depts == nil {
		depts = []*Department{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(depts, total, page.Limit, page.Offset))
}

func (h *Handler) GetDepartment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid department id")
	}

	dept, err := h.svc.GetDepartment(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "department not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dept)
}

func (h *Handler) MyProfile(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	if sess == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	profile, err := h.svc.StaffProfile(c.Request().Context(), sess.UserID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "staff profile not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}
