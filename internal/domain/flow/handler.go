package flow

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
	api.GET("/flow/patients/:patientId/current-step", h.CurrentStep)
	api.POST("/flow/patients/:patientId/can-proceed", h.CanProceed)
	api.GET("/flow/patients/:patientId/actions", h.Actions)
}

func (h *Handler) patientID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	return id, nil
}

func (h *Handler) CurrentStep(c echo.Context) error {
	patientID, err := h.patientID(c)
	if err != nil {
		return err
	}

	step, err := h.svc.CurrentStep(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient_id":   patientID,
		"current_step": step,
	})
}

type canProceedRequest struct {
	TargetStep Step `json:"target_step"`
}

func (h *Handler) CanProceed(c echo.Context) error {
	patientID, err := h.patientID(c)
	if err != nil {
		return err
	}

	var req canProceedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TargetStep == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "target_step is required")
	}

	decision, err := h.svc.CanProceed(c.Request().Context(),
		auth.SessionFromContext(c.Request().Context()), patientID, req.TargetStep)
	switch {
	case errors.Is(err, ErrUnknownStep):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrStepBehind):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return err
	}

	if !decision.Allowed {
		return c.JSON(http.StatusForbidden, decision)
	}
	return c.JSON(http.StatusOK, decision)
}

func (h *Handler) Actions(c echo.Context) error {
	patientID, err := h.patientID(c)
	if err != nil {
		return err
	}

	current, actions, err := h.svc.NextAvailableActions(c.Request().Context(),
		auth.SessionFromContext(c.Request().Context()), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient_id":   patientID,
		"current_step": current,
		"actions":      actions,
	})
}
