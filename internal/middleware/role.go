package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/notes-backend/internal/logging"
	"github.com/iliyamo/notes-backend/internal/model"
)

// ActivePolicy decides whether a resolved user may proceed.
// *service.AccountService implements it.
type ActivePolicy interface {
	RequireActive(u *model.User) (*model.User, error)
}

// MsgInactiveUser is the body returned for a disabled account.
const MsgInactiveUser = "Inactive user"

// RequireActive must run after JWTAuth. A disabled account is answered with
// 400 Inactive user.
func RequireActive(policy ActivePolicy, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return Challenge(c, MsgCouldNotValidate)
			}
			if _, err := policy.RequireActive(u); err != nil {
				logging.FromContext(c.Request().Context(), log).Info("authentication rejected",
					zap.String("reason", "account_disabled"),
					zap.String("user_id", u.ID.String()))
				return c.JSON(http.StatusBadRequest, echo.Map{"detail": MsgInactiveUser})
			}
			return next(c)
		}
	}
}
