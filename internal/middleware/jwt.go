package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

var errMissingToken = errors.New("missing bearer token")

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the caller's numeric user id and role into the request
// context.  The secret must match the one used when issuing tokens.
// Handlers read the values back through CurrentUser and CurrentRole.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := authenticate(c, secret); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			return next(c)
		}
	}
}

// JWTOptional is JWTAuth for endpoints that also serve anonymous
// callers: a missing header passes through, a bad token is still 401.
func JWTOptional(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := authenticate(c, secret)
			if err != nil && !errors.Is(err, errMissingToken) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, secret string) error {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return errMissingToken
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	// Only HMAC signatures are accepted.
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return errors.New("invalid token")
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	uid, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || uid == 0 {
		return errors.New("invalid subject")
	}
	role, _ := claims["role"].(string)

	c.Set(ctxUserID, uid)
	c.Set(ctxRole, role)
	return nil
}
