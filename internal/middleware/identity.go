package middleware

// identity.go holds the context accessors shared by the auth middleware and
// the handlers. JWTAuth stores the resolved *model.User under userKey; the
// handlers read it back through CurrentUser.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/notes-backend/internal/model"
)

const userKey = "user"

// CurrentUser returns the user resolved by JWTAuth, or false when the route
// is not protected.
func CurrentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(userKey).(*model.User)
	return u, ok && u != nil
}

// SetCurrentUser stores u in the echo context.
func SetCurrentUser(c echo.Context, u *model.User) {
	c.Set(userKey, u)
}

// userID returns the id of the authenticated user, or "guest".
func userID(c echo.Context) string {
	if u, ok := CurrentUser(c); ok {
		return u.ID.String()
	}
	return "guest"
}
