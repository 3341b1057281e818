package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/store-locator/internal/model"
	"github.com/iliyamo/store-locator/internal/utils"
)

const testSecret = "unit-test-secret"

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/stores", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// The pre-database checks reject without touching the repositories, so
// they are testable with nil repos.
func TestAuthenticateRejectsBeforeLookup(t *testing.T) {
	e := echo.New()
	e.GET("/stores", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, Authenticate(testSecret, nil, nil))

	refresh, err := utils.NewRefreshToken(testSecret, 42, 7)
	require.NoError(t, err)
	wrongSecret, err := utils.NewAccessToken("other-secret", 42, "a@b.c", "admin", 15)
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
	}{
		{"missing header", ""},
		{"garbage token", "not-a-jwt"},
		{"refresh token as access", refresh.Token},
		{"wrong secret", wrongSecret.Token},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, authedRequest(tc.token))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid authentication credentials")
		})
	}
}

func TestRequirePermission(t *testing.T) {
	e := echo.New()
	h := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	seed := func(perms map[string]bool) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				c.Set(CtxPermissions, perms)
				return next(c)
			}
		}
	}

	e.GET("/allowed", h, seed(map[string]bool{"write:stores": true}), RequirePermission("write:stores"))
	e.GET("/denied", h, seed(map[string]bool{"read:stores": true}), RequirePermission("write:stores"))
	e.GET("/unseeded", h, RequirePermission("write:stores"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/allowed", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/denied", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "write:stores")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unseeded", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	h := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	asRole := func(role string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				c.Set(CtxUser, &model.User{ID: 1, RoleName: role})
				return next(c)
			}
		}
	}

	e.GET("/admin-only", h, asRole("admin"), RequireRole("admin"))
	e.GET("/viewer-blocked", h, asRole("viewer"), RequireRole("admin"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin-only", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/viewer-blocked", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCurrentUserOutsideAuth(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Nil(t, CurrentUser(c))
}
