package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

const (
	PermGraphCreate = "graph.create"
	PermGraphDelete = "graph.delete"
	PermGraphWrite  = "graph.write"
	PermGraphRead   = "graph.read"
	PermGraphQuery  = "graph.query"
)

var allPermissions = []string{
	PermGraphCreate,
	PermGraphDelete,
	PermGraphWrite,
	PermGraphRead,
	PermGraphQuery,
}

var readerPermissions = []string{PermGraphRead, PermGraphQuery}

// defaultPermissions is used when a token carries no permissions claim.
func defaultPermissions(role string) []string {
	if role == "admin" {
		return allPermissions
	}
	return readerPermissions
}

func HasPermission(user *AppUser, permission string) bool {
	if user == nil {
		return false
	}
	return slices.Contains(user.Permissions, permission)
}

// RequirePermission rejects requests whose user lacks permission. It must run
// after AuthMiddleware.
func RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.(*AppContext).User
			if user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			if !HasPermission(user, permission) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: missing permission " + permission})
			}
			return next(c)
		}
	}
}
