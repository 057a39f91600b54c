package middleware

// identity.go holds helpers shared across middleware files for pulling
// the caller's identity out of the Echo context.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated member's identifier from the
// context, or "anon" when the request is unauthenticated.  JWTAuth
// stores the sub claim under "user_id"; the raw claim value may be a
// string or a JSON number depending on how the token was minted.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return "anon"
}
