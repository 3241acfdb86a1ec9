package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// CurrentUser returns the authenticated user id stored by JWTAuth.
func CurrentUser(c echo.Context) (uint64, bool) {
	uid, ok := c.Get(ctxUserID).(uint64)
	return uid, ok && uid != 0
}

// CurrentRole returns the authenticated role, or "" for anonymous calls.
func CurrentRole(c echo.Context) string {
	role, _ := c.Get(ctxRole).(string)
	return role
}

// subject identifies the caller in rate-limit keys; anonymous callers
// share "anon".
func subject(c echo.Context) string {
	if uid, ok := CurrentUser(c); ok {
		return strconv.FormatUint(uid, 10)
	}
	return "anon"
}
