package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-ticketing/internal/handler"
	"github.com/iliyamo/show-ticketing/internal/middleware"
)

// RegisterReservations wires the RSVP and payment routes.  The webhook
// endpoint stays outside the JWT group: the gateway authenticates with
// its body signature, not a bearer token.
func RegisterReservations(e *echo.Echo, r *handler.RSVPHandler, p *handler.PaymentHandler, w *handler.WebhookHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	g.POST("/shows/:id/rsvp", r.Create, allow("rsvps.create"))
	g.PUT("/shows/:id/rsvp", r.CancelByShow, allow("rsvps.cancel"))
	g.DELETE("/rsvps/:id", r.Cancel, allow("rsvps.cancel"))
	g.GET("/my-reservations", r.Mine, allow("rsvps.mine"))

	g.POST("/shows/:id/rsvp/pay", p.Initiate, allow("payments.init"))
	g.GET("/payments/:reference/verify", p.Verify, allow("payments.verify"))

	e.POST("/v1/payments/paystack/webhook", w.Paystack)
}
