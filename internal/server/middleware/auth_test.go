package middleware

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func TestUserFromClaims(t *testing.T) {
	tests := []struct {
		name      string
		claims    jwt.MapClaims
		ok        bool
		wantID    int64
		wantPerms []string
	}{
		{"string id", jwt.MapClaims{"id": "7", "permissions": []any{"kb.view"}}, true, 7, []string{"kb.view"}},
		{"numeric id", jwt.MapClaims{"id": float64(3)}, true, 3, nil},
		{"admin default permissions", jwt.MapClaims{"id": "1", "role": "admin"}, true, 1, allPermissions},
		{"bad id", jwt.MapClaims{"id": "x"}, false, 0, nil},
		{"missing id", jwt.MapClaims{}, false, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, ok := userFromClaims(tt.claims)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if user.UserID != tt.wantID || !slices.Equal(user.Permissions, tt.wantPerms) {
				t.Fatalf("unexpected user %+v", user)
			}
		})
	}
}

func serve(t *testing.T, app *App, header string, permission string) int {
	t.Helper()
	e := echo.New()
	e.Use(AppContextMiddleware(app))
	e.GET("/api/kbs", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, AuthMiddleware, RequirePermission(permission))

	req := httptest.NewRequest(http.MethodGet, "/api/kbs", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthMiddleware(t *testing.T) {
	app := &App{MasterAPIKey: "secret", MasterUserID: 1}
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"master key", "Bearer secret", http.StatusOK},
		{"unknown token without jwks", "Bearer other", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := serve(t, app, tt.header, PermissionDelete); got != tt.want {
				t.Fatalf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	e := echo.New()
	handler := RequirePermission(PermissionDelete)(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	tests := []struct {
		name string
		user *AppUser
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"viewer", &AppUser{Role: "user", Permissions: []string{PermissionView}}, http.StatusForbidden},
		{"deleter", &AppUser{Role: "user", Permissions: []string{PermissionDelete}}, http.StatusNoContent},
		{"admin", &AppUser{Role: "admin"}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := &AppContext{Context: e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec), User: tt.user}
			if err := handler(c); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
