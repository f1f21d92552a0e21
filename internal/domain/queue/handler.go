package queue

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/domain/rbac"
	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/pkg/pagination"
)

type Handler struct {
	svc   *Service
	staff StaffDirectory
}

func NewHandler(svc *Service, staff StaffDirectory) *Handler {
	return &Handler{svc: svc, staff: staff}
}

// RegisterRoutes mounts the queue endpoints. my-queue is registered before the
// :departmentId wildcard so echo matches the literal path first.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/queues/my-queue", h.MyQueue)
	api.GET("/queues/:departmentId", h.ListQueue)
	api.POST("/queues/checkin", h.CheckIn)
	api.POST("/queues/visits/:visitId/start", h.StartService)
	api.POST("/queues/visits/:visitId/transfer", h.Transfer)
	api.POST("/queues/visits/:visitId/finish", h.Finish)
	api.POST("/queues/visits/:visitId/complete", h.Complete)
}

func httpError(err error) error {
	var forbidden *rbac.ForbiddenError
	switch {
	case errors.As(err, &forbidden):
		return echo.NewHTTPError(http.StatusForbidden, forbidden.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrDepartmentDisabled):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return err
}

func (h *Handler) CheckIn(c echo.Context) error {
	var req CheckInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	visit, err := h.svc.CheckIn(c.Request().Context(), auth.SessionFromContext(c.Request().Context()), req)
	if err != nil {
		var forbidden *rbac.ForbiddenError
		if errors.As(err, &forbidden) || errors.Is(err, ErrNotFound) ||
			errors.Is(err, ErrDepartmentDisabled) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, visit)
}

func (h *Handler) ListQueue(c echo.Context) error {
	departmentID, err := uuid.Parse(c.Param("departmentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid department id")
	}

	queueStatus := c.QueryParam("status")
	if queueStatus == "" {
		queueStatus = QueueWaiting
	}

	page := pagination.FromContext(c)
	visits, total, err := h.svc.ListQueue(c.Request().Context(), auth.SessionFromContext(c.Request().Context()),
		departmentID, queueStatus, page.Limit, page.Offset)
	if err != nil {
		var forbidden *rbac.ForbiddenError
		if errors.As(err, &forbidden) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if visits == nil {
		visits = []*Visit{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(visits, total, page.Limit, page.Offset))
}

// MyQueue returns the waiting and active lists for the caller's own
// department. Staff without a department assignment cannot use it.
func (h *Handler) MyQueue(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	if sess == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	departmentID, ok, err := h.staff.DepartmentOf(c.Request().Context(), sess.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "no department assignment")
	}

	waiting, _, err := h.svc.ListQueue(c.Request().Context(), sess, departmentID, QueueWaiting, 100, 0)
	if err != nil {
		return httpError(err)
	}
	active, _, err := h.svc.ListQueue(c.Request().Context(), sess, departmentID, QueueActive, 100, 0)
	if err != nil {
		return httpError(err)
	}
	if waiting == nil {
		waiting = []*Visit{}
	}
	if active == nil {
		active = []*Visit{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"department_id": departmentID,
		"waiting":       waiting,
		"active":        active,
	})
}

func (h *Handler) visitID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("visitId"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	return id, nil
}

func (h *Handler) StartService(c echo.Context) error {
	id, err := h.visitID(c)
	if err != nil {
		return err
	}
	visit, err := h.svc.BeginService(c.Request().Context(), auth.SessionFromContext(c.Request().Context()), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, visit)
}

type transferRequest struct {
	DepartmentID uuid.UUID `json:"department_id"`
	Priority     string    `json:"priority,omitempty"`
}

func (h *Handler) Transfer(c echo.Context) error {
	id, err := h.visitID(c)
	if err != nil {
		return err
	}

	var req transferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.DepartmentID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "department_id is required")
	}

	visit, err := h.svc.Transfer(c.Request().Context(), auth.SessionFromContext(c.Request().Context()), id, req.DepartmentID, req.Priority)
	if err != nil {
		var forbidden *rbac.ForbiddenError
		if errors.As(err, &forbidden) || errors.Is(err, ErrNotFound) ||
			errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrDepartmentDisabled) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, visit)
}

func (h *Handler) Finish(c echo.Context) error {
	id, err := h.visitID(c)
	if err != nil {
		return err
	}
	visit, err := h.svc.Finish(c.Request().Context(), auth.SessionFromContext(c.Request().Context()), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, visit)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := h.visitID(c)
	if err != nil {
		return err
	}
	visit, err := h.svc.Complete(c.Request().Context(), auth.SessionFromContext(c.Request().Context()), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, visit)
}
