package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-ticketing/internal/model"
)

// RequireRole enforces that the authenticated caller holds one of the
// given roles.  It assumes JWTAuth already stored the "role" claim in
// the context; a missing, malformed or disallowed role aborts the
// request with 403 Forbidden.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v, _ := c.Get("role").(string)
			role, ok := model.ParseRole(v)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
			}
			return next(c)
		}
	}
}
