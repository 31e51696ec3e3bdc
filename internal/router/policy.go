package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-ticketing/internal/middleware"
	"github.com/iliyamo/show-ticketing/internal/model"
)

// policy is the authorization table: one row per protected operation,
// listing the roles allowed to call it.  Route registration looks
// roles up here instead of sprinkling literals through the files, so
// the full permission surface is readable in one place.
var policy = map[string][]model.Role{
	"shows.create":    {model.RoleArtist, model.RoleAdmin},
	"shows.attendees": {model.RoleArtist, model.RoleAdmin},
	"shows.delete":    {model.RoleArtist, model.RoleAdmin},
	"rsvps.create":    {model.RoleUser, model.RoleAdmin},
	"rsvps.cancel":    {model.RoleUser, model.RoleArtist, model.RoleAdmin},
	"rsvps.mine":      {model.RoleUser, model.RoleArtist, model.RoleAdmin},
	"payments.init":   {model.RoleUser, model.RoleAdmin},
	"payments.verify": {model.RoleUser, model.RoleAdmin},
}

// allow returns the RequireRole middleware for a policy table entry.
// Unknown operations panic at startup rather than silently allowing
// everyone through.
func allow(op string) echo.MiddlewareFunc {
	roles, ok := policy[op]
	if !ok {
		panic("router: no policy entry for operation " + op)
	}
	return middleware.RequireRole(roles...)
}
