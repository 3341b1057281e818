// Package router attaches HTTP routes to the Echo instance.  Grouping
// mirrors the API surface: public system and search endpoints, the auth
// flow, and the admin surface guarded by permission middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-locator/internal/handler"
	"github.com/iliyamo/store-locator/internal/middleware"
)

// Handlers collects everything the router wires up.
type Handlers struct {
	Health *handler.HealthHandler
	Auth   *handler.AuthHandler
	Stores *handler.StoreHandler
	Search *handler.SearchHandler
	Users  *handler.AdminUserHandler
	Import *handler.ImportHandler
}

// Middlewares collects the shared middleware built once in main.
type Middlewares struct {
	Authenticate echo.MiddlewareFunc
	RateLimit    echo.MiddlewareFunc
}

// Register attaches every route.
func Register(e *echo.Echo, h Handlers, mw Middlewares) {
	// System endpoints, no auth.
	e.GET("/", h.Health.Root)
	e.GET("/health", h.Health.Health)
	e.GET("/cache/stats", h.Health.CacheStats)

	// Auth flow.  Login and refresh are rate limited since they are the
	// natural targets for credential stuffing.
	auth := e.Group("/auth")
	auth.POST("/login", h.Auth.Login, mw.RateLimit)
	auth.POST("/refresh", h.Auth.Refresh, mw.RateLimit)
	auth.POST("/logout", h.Auth.Logout, mw.Authenticate)
	auth.GET("/me", h.Auth.Me, mw.Authenticate)

	// Public store reads and the proximity search.
	e.POST("/stores/search", h.Search.Post, mw.RateLimit)

	stores := e.Group("/stores", mw.Authenticate)
	stores.GET("", h.Stores.List, middleware.RequirePermission("read:stores"))
	stores.GET("/:store_id", h.Stores.Get, middleware.RequirePermission("read:stores"))
	stores.POST("", h.Stores.Create, middleware.RequirePermission("write:stores"))
	stores.PATCH("/:store_id", h.Stores.Update, middleware.RequirePermission("write:stores"))
	stores.DELETE("/:store_id", h.Stores.Delete, middleware.RequirePermission("delete:stores"))

	// Admin surface.
	admin := e.Group("/admin", mw.Authenticate)
	admin.GET("/users", h.Users.List, middleware.RequirePermission("write:users"))
	admin.GET("/users/:user_id", h.Users.Get, middleware.RequirePermission("write:users"))
	admin.POST("/users", h.Users.Create, middleware.RequirePermission("write:users"))
	admin.PUT("/users/:user_id", h.Users.Update, middleware.RequirePermission("write:users"))
	admin.DELETE("/users/:user_id", h.Users.Delete, middleware.RequirePermission("write:users"))

	admin.POST("/stores/import", h.Import.Post, middleware.RequirePermission("write:stores"), mw.RateLimit)

	admin.POST("/cache/clear", h.Health.CacheClear, middleware.RequireRole("admin"))
}
