package middleware // reusable HTTP middleware for the notes API

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/notes-backend/internal/logging"
	"github.com/iliyamo/notes-backend/internal/model"
	"github.com/iliyamo/notes-backend/internal/service"
)

// Resolver maps a raw bearer token to a user. *service.AccountService
// implements it.
type Resolver interface {
	ResolveCurrentUser(ctx context.Context, raw string) (*model.User, error)
}

// MsgCouldNotValidate is the only body a client sees for any token failure.
const MsgCouldNotValidate = "Could not validate credentials"

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively. An empty string is
// returned when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Challenge answers 401 with the bearer challenge header and detail.
func Challenge(c echo.Context, detail string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"detail": detail})
}

// JWTAuth resolves the bearer token of every request into the current user
// and stores it in the echo context. Missing, invalid or expired tokens and
// tokens naming an unknown user all receive the same 401; the reason is only
// logged.
func JWTAuth(resolver Resolver, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			u, err := resolver.ResolveCurrentUser(ctx, BearerToken(c.Request()))
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) {
					logging.FromContext(ctx, log).Info("authentication rejected",
						zap.String("reason", service.Reason(err)),
						zap.String("path", c.Path()))
					return Challenge(c, MsgCouldNotValidate)
				}
				return err
			}
			SetCurrentUser(c, u)
			return next(c)
		}
	}
}
