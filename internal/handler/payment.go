package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-ticketing/internal/payment"
	"github.com/iliyamo/show-ticketing/internal/repository"
	"github.com/iliyamo/show-ticketing/internal/service"
)

// PaymentHandler starts the paid reservation flow and offers a manual
// verification fallback for payments whose webhook never arrived.
type PaymentHandler struct {
	Workflow *service.RSVPService
	Gateway  *payment.Client
}

func NewPaymentHandler(w *service.RSVPService, g *payment.Client) *PaymentHandler {
	return &PaymentHandler{Workflow: w, Gateway: g}
}

// Initiate creates a pending reservation plus payment and returns the
// gateway's hosted checkout URL.
func (h *PaymentHandler) Initiate(c echo.Context) error {
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

	init, err := h.Workflow.InitiatePayment(ctx, id, showID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrShowNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Show does not exist"})
		case errors.Is(err, service.ErrShowCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"message": "Show is cancelled"})
		case errors.Is(err, service.ErrFreeShow):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "This show is free, no payment required"})
		case errors.Is(err, service.ErrAlreadyPaid):
			return c.JSON(http.StatusConflict, echo.Map{"message": "Already registered and paid"})
		case errors.Is(err, service.ErrActivePayment):
			return c.JSON(http.StatusConflict, echo.Map{"message": "An active payment already exists for this RSVP"})
		case errors.Is(err, service.ErrPaymentInit):
			return c.JSON(http.StatusBadGateway, echo.Map{"message": "Payment initialization failed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "initiate payment failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"authorization_url": init.AuthorizationURL,
		"reference":         init.Reference,
	})
}

// Verify asks the gateway for the transaction state by reference and
// reconciles it the same way a webhook delivery would.  Clients poll it
// when they return from the checkout page before a webhook lands.
func (h *PaymentHandler) Verify(c echo.Context) error {
	if _, ok := caller(c); !ok {
		return unauthorized(c)
	}
	reference := c.Param("reference")
	if reference == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "reference required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"message": "verification failed"})
	}

	var event string
	switch res.Status {
	case "success":
		event = service.EventChargeSuccess
	case "failed", "abandoned":
		event = service.EventChargeFailed
	default:
		// Still processing on the gateway side; nothing to reconcile.
		return c.JSON(http.StatusOK, echo.Map{"reference": reference, "status": res.Status})
	}

	if err := h.Workflow.ApplyGatewayEvent(ctx, event, reference); err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "verification failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reference": reference, "status": res.Status})
}
