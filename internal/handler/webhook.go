package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-ticketing/internal/payment"
	"github.com/iliyamo/show-ticketing/internal/repository"
	"github.com/iliyamo/show-ticketing/internal/service"
)

// WebhookHandler receives gateway callbacks.  The signature is checked
// over the raw body before any JSON parsing, so a forged or corrupted
// delivery never reaches the workflow.
type WebhookHandler struct {
	Secret   string
	Workflow *service.RSVPService
}

func NewWebhookHandler(secret string, w *service.RSVPService) *WebhookHandler {
	return &WebhookHandler{Secret: secret, Workflow: w}
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// Paystack handles POST deliveries from the payment gateway.  The
// response is 200 for every accepted (verified) delivery, including
// replays and unknown event types, so the gateway stops retrying.
func (h *WebhookHandler) Paystack(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "unreadable body"})
	}

	sig := c.Request().Header.Get("X-Paystack-Signature")
	if !payment.VerifySignature(h.Secret, body, sig) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid webhook signature"})
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil || p.Data.Reference == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid payload"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Workflow.ApplyGatewayEvent(ctx, p.Event, p.Data.Reference); err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "webhook processing failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
