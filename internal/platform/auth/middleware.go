package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context keys populated by the JWT middleware.
const (
	UserIDKey   = "user_id"
	UserNameKey = "user_name"
	UserRoleKey = "user_role"
	CenterIDKey = "center_id"
)

// Roles understood by the portal.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// publicPaths may be reached without a session token. Auth endpoints have to
// be open or nobody could ever log in; health endpoints are for probes.
var publicPaths = map[string]bool{
	"/health":                    true,
	"/health/db":                 true,
	"/api/v1/auth/bootstrap":     true,
	"/api/v1/auth/registered":    true,
	"/api/v1/auth/login":         true,
	"/api/v1/auth/signup":        true,
	"/api/v1/auth/reset-request": true,
	"/api/v1/auth/reset":         true,
}

// Skipper reports whether the request path bypasses JWT validation.
func Skipper(c echo.Context) bool {
	path := c.Request().URL.Path
	if publicPaths[path] {
		return true
	}
	// Invitation lookup is public: the invitee has a token link, not a
	// session.
	if c.Request().Method == http.MethodGet && strings.HasPrefix(path, "/api/v1/invitations/") {
		return true
	}
	return false
}

// JWTMiddleware validates the bearer token and stores the caller's identity
// in the echo context.
func JWTMiddleware(tokens *TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Skipper(c) {
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := tokens.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			c.Set(UserIDKey, userID)
			c.Set(UserNameKey, claims.Name)
			c.Set(UserRoleKey, claims.Role)
			c.Set(CenterIDKey, claims.CenterID)
			return next(c)
		}
	}
}

// UserID returns the authenticated user's id, or uuid.Nil on a public route.
func UserID(c echo.Context) uuid.UUID {
	if id, ok := c.Get(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// Role returns the authenticated user's role.
func Role(c echo.Context) string {
	if role, ok := c.Get(UserRoleKey).(string); ok {
		return role
	}
	return ""
}

// CenterID returns the caller's center, nil when they have none.
func CenterID(c echo.Context) *int64 {
	if id, ok := c.Get(CenterIDKey).(*int64); ok {
		return id
	}
	return nil
}
