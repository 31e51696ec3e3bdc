// Package handler contains the Echo HTTP handlers.  Each handler binds
// the request, enforces the caller's permissions, calls into the
// repositories or the reservation workflow with a bounded context and
// maps outcome errors to HTTP statuses.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-ticketing/internal/model"
	"github.com/iliyamo/show-ticketing/internal/service"
)

// dbTimeout bounds every database call made from a handler.
const dbTimeout = 5 * time.Second

// getUserID pulls the authenticated user's ID out of the context.  JWT
// numeric claims decode as float64 but some clients re-issue tokens
// with string subjects, so both are accepted.
func getUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	case uint64:
		return v, true
	}
	return 0, false
}

// caller assembles the verified identity from the claims JWTAuth stored
// in the context.  ok is false when the token claims are unusable.
func caller(c echo.Context) (service.Identity, bool) {
	uid, ok := getUserID(c)
	if !ok {
		return service.Identity{}, false
	}
	roleStr, _ := c.Get("role").(string)
	role, ok := model.ParseRole(roleStr)
	if !ok {
		return service.Identity{}, false
	}
	name, _ := c.Get("name").(string)
	email, _ := c.Get("email").(string)
	return service.Identity{ID: uid, Name: name, Email: email, Role: role}, true
}

// pathID parses a numeric path parameter; 0 means absent or malformed.
func pathID(c echo.Context, name string) uint64 {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// pageParams reads ?page= and ?limit= with sane bounds.
func pageParams(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
}
