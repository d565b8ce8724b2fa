package appointment

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medroute/medroute/internal/platform/auth"
	"github.com/medroute/medroute/internal/platform/middleware"
	"github.com/medroute/medroute/pkg/pagination"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the appointment endpoints on g, normally /v1/appointment.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/update/status", h.UpdateStatus, auth.RequirePermission(auth.PermUpdateAppointment))
	g.GET("/detail/:id", h.GetDetail, auth.RequirePermission(auth.PermViewAppointment))
	g.POST("/upcoming", h.ListUpcoming, auth.RequirePermission(auth.PermListAppointment))
	g.POST("/allocate", h.AllocateDoctor, auth.RequirePermission(auth.PermAllocateDoctor))
}

type updateStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type allocateRequest struct {
	AppointmentID string `json:"appointmentId"`
	DoctorID      string `json:"doctorId"`
}

type upcomingRequest struct {
	Page     *int   `json:"page"`
	Limit    *int   `json:"limit"`
	Search   string `json:"search"`
	From     string `json:"from"`
	To       string `json:"to"`
	Datetime string `json:"datetime"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	id, err := parseID(req.ID, "id")
	if err != nil {
		return toHTTPError(err)
	}
	status := Status(strings.TrimSpace(req.Status))
	if status == "" {
		return badRequest("Please provide status")
	}
	if !status.Valid() {
		return badRequest("Invalid status")
	}

	actorID, err := actorFromContext(c)
	if err != nil {
		return err
	}

	if _, err := h.svc.SetStatus(c.Request().Context(), id, status, actorID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": StatusMessage(status)})
}

func (h *Handler) AllocateDoctor(c echo.Context) error {
	var req allocateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	id, err := parseID(req.AppointmentID, "appointmentId")
	if err != nil {
		return toHTTPError(err)
	}
	doctorID, err := parseID(req.DoctorID, "doctorId")
	if err != nil {
		return toHTTPError(err)
	}

	actorID, err := actorFromContext(c)
	if err != nil {
		return err
	}

	if err := h.svc.AllocateDoctor(c.Request().Context(), id, doctorID, actorID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "doctor allocated"})
}

func (h *Handler) GetDetail(c echo.Context) error {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		return toHTTPError(err)
	}

	d, err := h.svc.GetDetail(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": d})
}

func (h *Handler) ListUpcoming(c echo.Context) error {
	var req upcomingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	q, err := req.toQuery()
	if err != nil {
		return toHTTPError(err)
	}

	items, total, err := h.svc.ListUpcoming(c.Request().Context(), q)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total))
}

// toQuery validates the request in field order; the first failure wins.
func (r upcomingRequest) toQuery() (UpcomingQuery, error) {
	var q UpcomingQuery
	if r.Limit == nil {
		return q, invalid("limit", "Please provide limit")
	}
	if *r.Limit < 1 {
		return q, invalid("limit", "limit must be a positive integer")
	}
	if *r.Limit > pagination.MaxLimit {
		return q, invalid("limit", fmt.Sprintf("limit must be at most %d", pagination.MaxLimit))
	}
	if r.Page == nil {
		return q, invalid("page", "Please provide page")
	}
	if *r.Page < 1 {
		return q, invalid("page", "page must be a positive integer")
	}
	q.Params = pagination.New(*r.Page, *r.Limit)

	q.Search = strings.TrimSpace(r.Search)

	var err error
	if q.From, err = parseDay(r.From, "from"); err != nil {
		return q, err
	}
	if q.To, err = parseDay(r.To, "to"); err != nil {
		return q, err
	}
	if r.Datetime != "" {
		dt, err := time.Parse(time.RFC3339, r.Datetime)
		if err != nil {
			return q, invalid("datetime", "datetime must be an RFC 3339 timestamp")
		}
		q.DateTime = &dt
	}
	return q, nil
}

func parseDay(v, field string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, invalid(field, field+" must be a date in YYYY-MM-DD format")
	}
	return &d, nil
}

func parseID(v, field string) (uuid.UUID, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return uuid.Nil, invalid(field, "Please provide "+field)
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, invalid(field, "Invalid "+field)
	}
	return id, nil
}

func actorFromContext(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "token subject is not a valid user id")
	}
	return id, nil
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

func toHTTPError(err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return badRequest(ve.Message)
	case errors.Is(err, ErrNotFound):
		// 404 is left to unmatched routes; the code tells the two apart.
		return middleware.NewError(http.StatusBadRequest, "appointment_not_found", ErrNotFound.Error())
	case errors.Is(err, ErrExpertiseMismatch):
		return middleware.NewError(http.StatusUnprocessableEntity, "expertise_mismatch", ErrExpertiseMismatch.Error())
	case errors.Is(err, ErrAllocationBusy):
		return middleware.NewError(http.StatusConflict, "allocation_in_progress", ErrAllocationBusy.Error())
	}
	return err
}
