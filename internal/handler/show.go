package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-ticketing/internal/model"
	"github.com/iliyamo/show-ticketing/internal/repository"
)

// ShowHandler serves show management and public browsing.
type ShowHandler struct {
	Shows *repository.ShowRepo
	RSVPs *repository.RSVPRepo
}

func NewShowHandler(s *repository.ShowRepo, r *repository.RSVPRepo) *ShowHandler {
	return &ShowHandler{Shows: s, RSVPs: r}
}

type createShowReq struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Location         string  `json:"location"`
	Date             string  `json:"date"` // RFC 3339
	TicketPriceCents uint32  `json:"ticket_price_cents"`
	TotalTickets     *uint32 `json:"total_tickets"` // null means unlimited
}

// Create registers a new show under the calling artist.  A duplicate
// title for the same artist is rejected with 409.
func (h *ShowHandler) Create(c echo.Context) error {
	id, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req createShowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Location = strings.TrimSpace(req.Location)
	if req.Title == "" || req.Location == "" || req.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "title/location/date required"})
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "date must be RFC 3339"})
	}
	if req.TotalTickets != nil && *req.TotalTickets == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "total_tickets must be positive or omitted"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	show := &model.Show{
		ArtistID:         id.ID,
		Title:            req.Title,
		Description:      req.Description,
		Location:         req.Location,
		Date:             date.UTC(),
		TicketPriceCents: req.TicketPriceCents,
		TotalTickets:     req.TotalTickets,
	}
	if err := h.Shows.Create(ctx, show); err != nil {
		if errors.Is(err, repository.ErrTitleExists) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "show title already exists for this artist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "create show failed"})
	}
	return c.JSON(http.StatusCreated, show)
}

// List is the public browse endpoint with pagination and filters.
func (h *ShowHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	f := repository.ShowFilter{
		Query: strings.TrimSpace(c.QueryParam("q")),
		Page:  page,
		Limit: limit,
	}
	if v := c.QueryParam("artist_id"); v != "" {
		f.ArtistID, _ = strconv.ParseUint(v, 10, 64)
	}
	if v := c.QueryParam("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = t
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = t
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	shows, total, err := h.Shows.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "list shows failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"shows": shows,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// Detail returns one show with its artist and registered RSVP count.
func (h *ShowHandler) Detail(c echo.Context) error {
	showID := pathID(c, "id")
	if showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid show id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Shows.GetDetail(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Show does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "load show failed"})
	}
	return c.JSON(http.StatusOK, d)
}

// Attendees lists the registrations for a show.  Only the show's artist
// or an admin may see the attendee list.
func (h *ShowHandler) Attendees(c echo.Context) error {
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

	show, err := h.Shows.GetByID(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Show does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "load show failed"})
	}
	if show.ArtistID != id.ID && id.Role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}

	attendees, err := h.RSVPs.ListByShow(ctx, showID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "list attendees failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"show_id":   showID,
		"attendees": attendees,
	})
}

// Delete removes a show.  When registrations or payments reference it
// the show is soft-cancelled instead, preserving the history.
func (h *ShowHandler) Delete(c echo.Context) error {
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

	show, err := h.Shows.GetByID(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Show does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "load show failed"})
	}
	if show.ArtistID != id.ID && id.Role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}

	referenced, err := h.Shows.HasReferences(ctx, showID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "delete show failed"})
	}
	if referenced {
		if err := h.Shows.SoftCancel(ctx, showID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "cancel show failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "cancelled": true})
	}
	if err := h.Shows.HardDelete(ctx, showID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// An RSVP landed between the check and the delete; keep the
			// row and cancel instead.
			if err := h.Shows.SoftCancel(ctx, showID); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"message": "cancel show failed"})
			}
			return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "cancelled": true})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "delete show failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
