package middleware

import (
	"net/http"
	"strings"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// ClaimsKey is where verified claims are stored on the echo context.
const ClaimsKey = "user"

// TokenParser verifies a bearer token.
type TokenParser interface {
	Parse(token string) (*models.JwtCustomClaims, error)
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// JWTAuth rejects requests without a token with 401 and with a bad token with 403.
func JWTAuth(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}
			token, ok := bearerToken(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}

			claims, err := tokens.Parse(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "Invalid or expired token")
			}

			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

// OptionalJWTAuth attaches claims when a valid token is present and otherwise
// continues as an anonymous request.
func OptionalJWTAuth(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token, ok := bearerToken(c); ok {
				if claims, err := tokens.Parse(token); err == nil {
					c.Set(ClaimsKey, claims)
				}
			}
			return next(c)
		}
	}
}

// Claims returns the verified claims, or nil for anonymous requests.
func Claims(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get(ClaimsKey).(*models.JwtCustomClaims)
	return claims
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(c echo.Context) uint {
	if claims := Claims(c); claims != nil {
		return claims.UserID
	}
	return 0
}
