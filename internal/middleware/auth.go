package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-locator/internal/apperr"
	"github.com/iliyamo/store-locator/internal/model"
	"github.com/iliyamo/store-locator/internal/repository"
	"github.com/iliyamo/store-locator/internal/utils"
)

// Context keys set by Authenticate and consumed by handlers and the
// authorization middleware.
const (
	CtxUser        = "user"        // *model.User
	CtxPermissions = "permissions" // map[string]bool
)

// authFailed writes the single generic 401 used for every authentication
// failure.  The precise reason (bad signature, wrong type, unknown or
// inactive subject) is deliberately not surfaced.
func authFailed(c echo.Context) error {
	h := apperr.MapToHTTP(apperr.New(apperr.Authentication, ""))
	return c.JSON(h.StatusCode, h)
}

// Authenticate returns an Echo middleware that validates a Bearer access
// token and loads the subject into the request context.  The checks run
// in order: token decodes with our secret, carries the "access" type
// marker and a subject, the subject exists, and the account is active.
// Any miss aborts with the uniform 401.  On success the user record and
// the permission set of its current role are stored in context, so
// RequirePermission runs a pure membership test.
func Authenticate(secret string, users *repository.UserRepo, roles *repository.RoleRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return authFailed(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims := utils.VerifyToken(secret, raw)
			if claims == nil || claims.Type != utils.TokenTypeAccess || claims.UserID == 0 {
				return authFailed(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				return authFailed(c)
			}
			if u.Status != model.UserStatusActive {
				return authFailed(c)
			}

			perms, err := roles.PermissionsFor(ctx, u.RoleID)
			if err != nil {
				return authFailed(c)
			}
			permSet := make(map[string]bool, len(perms))
			for _, p := range perms {
				permSet[p] = true
			}

			c.Set(CtxUser, &u)
			c.Set(CtxPermissions, permSet)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user stored by Authenticate, or
// nil when the route is not behind it.
func CurrentUser(c echo.Context) *model.User {
	if u, ok := c.Get(CtxUser).(*model.User); ok {
		return u
	}
	return nil
}

// RequirePermission enforces that the authenticated user's role carries
// the named permission.  Unlike authentication failures, the 403 names
// the missing capability: the caller is known, only under-privileged.
func RequirePermission(name string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			perms, ok := c.Get(CtxPermissions).(map[string]bool)
			if !ok || !perms[name] {
				h := apperr.MapToHTTP(apperr.New(apperr.Authorization, "permission denied: requires '"+name+"'"))
				return c.JSON(h.StatusCode, h)
			}
			return next(c)
		}
	}
}

// RequireRole enforces that the user has one of the given role names.
// Permission checks are preferred; this exists for endpoints tied to a
// role rather than a capability.
func RequireRole(names ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil || !allowed[u.RoleName] {
				h := apperr.MapToHTTP(apperr.New(apperr.Authorization, "access denied: insufficient role"))
				return c.JSON(h.StatusCode, h)
			}
			return next(c)
		}
	}
}
