package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/apperror"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// RequireRole lets through callers whose role is one of roles. It must run
// after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[model.Role(r)] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := ActorFrom(c)
			if !ok {
				return apperror.ErrUnauthorized
			}
			if !allowed[a.Role] {
				return apperror.ErrForbidden
			}
			return next(c)
		}
	}
}

// RequireCapability is RequireRole over every role holding capability.
func RequireCapability(capability model.Capability) echo.MiddlewareFunc {
	return RequireRole(model.RolesWith(capability)...)
}
