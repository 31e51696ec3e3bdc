package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-ticketing/internal/handler"
	"github.com/iliyamo/show-ticketing/internal/middleware"
)

// RegisterShows wires both the public browse endpoints and the
// protected show management endpoints.  browse carries optional extra
// middleware (rate limiting, response cache) applied only to the
// public surface.
func RegisterShows(e *echo.Echo, h *handler.ShowHandler, jwtSecret string, browse ...echo.MiddlewareFunc) {
	// Guests can list and inspect shows without a token.
	e.GET("/v1/shows", h.List, browse...)
	e.GET("/v1/shows/:id", h.Detail, browse...)

	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.POST("/shows", h.Create, allow("shows.create"))
	g.GET("/shows/:id/rsvps", h.Attendees, allow("shows.attendees"))
	g.DELETE("/shows/:id", h.Delete, allow("shows.delete"))
}
