package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-ticketing/internal/repository"
	"github.com/iliyamo/show-ticketing/internal/service"
)

// RSVPHandler serves reservation creation, cancellation and the
// caller's own reservation list.
type RSVPHandler struct {
	Workflow *service.RSVPService
	RSVPs    *repository.RSVPRepo
}

func NewRSVPHandler(w *service.RSVPService, r *repository.RSVPRepo) *RSVPHandler {
	return &RSVPHandler{Workflow: w, RSVPs: r}
}

// Create registers the caller for a show through the direct path.
func (h *RSVPHandler) Create(c echo.Context) error {
	id, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	showID := pathID(c, "id")
	if showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid show id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rec, err := h.Workflow.Reserve(ctx, id.ID, showID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrShowNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Show does not exist"})
		case errors.Is(err, service.ErrShowCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"message": "Show is cancelled"})
		case errors.Is(err, service.ErrSoldOut):
			return c.JSON(http.StatusConflict, echo.Map{"message": "Show is sold out"})
		case errors.Is(err, service.ErrAlreadyRegistered):
			return c.JSON(http.StatusConflict, echo.Map{"message": "User already registered for this show"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "rsvp failed"})
	}
	return c.JSON(http.StatusCreated, rec)
}

// Cancel cancels a reservation by its identifier.
func (h *RSVPHandler) Cancel(c echo.Context) error {
	id, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	rsvpID := pathID(c, "id")
	if rsvpID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid rsvp id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Workflow.Cancel(ctx, id, rsvpID)
	return h.respondCancel(c, res, err)
}

// CancelByShow cancels the caller's reservation for a show.  This backs
// the PUT /shows/:id/rsvp route where the client knows the show but not
// the reservation identifier.
func (h *RSVPHandler) CancelByShow(c echo.Context) error {
	id, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	showID := pathID(c, "id")
	if showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid show id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Workflow.CancelByShow(ctx, id, showID)
	return h.respondCancel(c, res, err)
}

func (h *RSVPHandler) respondCancel(c echo.Context, res *service.CancelResult, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRSVPNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "RSVP not found"})
		case errors.Is(err, service.ErrAlreadyCancelled):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "RSVP is already cancelled"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "cancel failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"rsvp_id":           res.RSVPID,
		"show_id":           res.ShowID,
		"status":            res.Status,
		"available_tickets": res.AvailableTickets,
	})
}

// Mine lists the caller's reservations, newest first.
func (h *RSVPHandler) Mine(c echo.Context) error {
	id, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, err := h.RSVPs.ListByUser(ctx, id.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "list rsvps failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"rsvps": list})
}
