package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	PermissionView   = "kb.view"
	PermissionCreate = "kb.create"
	PermissionExport = "kb.export"
	PermissionDelete = "kb.delete"
)

var allPermissions = []string{
	PermissionView,
	PermissionCreate,
	PermissionExport,
	PermissionDelete,
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
}

// userFromClaims reads the id, role and permissions claims. Admins without
// explicit permissions get all of them.
func userFromClaims(claims jwt.MapClaims) (*AppUser, bool) {
	var userID int64
	switch id := claims["id"].(type) {
	case string:
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, false
		}
		userID = parsed
	case float64:
		userID = int64(id)
	default:
		return nil, false
	}

	role := "user"
	if roleClaim, ok := claims["role"].(string); ok {
		role = roleClaim
	}

	var permissions []string
	if permsClaim, ok := claims["permissions"].([]any); ok {
		for _, p := range permsClaim {
			if pStr, ok := p.(string); ok {
				permissions = append(permissions, pStr)
			}
		}
	}
	if role == "admin" && len(permissions) == 0 {
		permissions = allPermissions
	}

	return &AppUser{UserID: userID, Role: role, Permissions: permissions}, true
}

func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			return unauthorized(c)
		}

		cc := c.(*AppContext)
		app := cc.App

		if app.MasterAPIKey != "" && token == app.MasterAPIKey {
			cc.User = &AppUser{
				UserID:      app.MasterUserID,
				Role:        "admin",
				Permissions: allPermissions,
			}
			return next(c)
		}

		if app.Key == nil {
			return unauthorized(c)
		}
		parsed, err := jwt.Parse(token, app.Key.Keyfunc)
		if err != nil || !parsed.Valid {
			return unauthorized(c)
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c)
		}
		user, ok := userFromClaims(claims)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid user ID"})
		}

		cc.User = user
		return next(c)
	}
}
