// Package middleware holds the echo middleware shared by the API routes.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/apperror"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the caller as a
// model.Actor. Requests without a valid token fail with UNAUTHORIZED.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, err := authenticate(c, secret)
			if err != nil {
				return err
			}
			SetActor(c, a)
			return next(c)
		}
	}
}

// OptionalJWT sets the actor when a valid token is present and lets
// anonymous requests through. A malformed token is still rejected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(c)
			}
			a, err := authenticate(c, secret)
			if err != nil {
				return err
			}
			SetActor(c, a)
			return next(c)
		}
	}
}

func authenticate(c echo.Context, secret string) (model.Actor, error) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return model.Actor{}, apperror.ErrUnauthorized.WithMessage("missing bearer token")
	}
	claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
	if err != nil {
		return model.Actor{}, apperror.ErrUnauthorized.WithMessage("invalid token")
	}
	role, ok := model.ParseRole(claims.Role)
	if !ok {
		return model.Actor{}, apperror.ErrUnauthorized.WithMessage("invalid token")
	}
	return model.Actor{ID: claims.UserID, Role: role}, nil
}

// Identify sets the actor when the request carries a valid token and
// ignores anything else. It runs ahead of the rate limiter so buckets can be
// keyed per user; JWTAuth still guards protected routes.
func Identify(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if a, err := authenticate(c, secret); err == nil {
				SetActor(c, a)
			}
			return next(c)
		}
	}
}
