package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-locator/internal/cache"
)

// HealthHandler serves liveness and cache introspection endpoints.
type HealthHandler struct {
	Cache *cache.Cache
}

func NewHealthHandler(c *cache.Cache) *HealthHandler {
	return &HealthHandler{Cache: c}
}

// Root describes the service.
func (h *HealthHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"service": "store-locator",
		"docs":    "/health for liveness, POST /stores/search for proximity search",
	})
}

// Health reports liveness.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "healthy"})
}

// CacheStats exposes in-memory cache counters for operators.
func (h *HealthHandler) CacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Cache.GetStats())
}

// CacheClear flushes the cache.
func (h *HealthHandler) CacheClear(c echo.Context) error {
	h.Cache.Clear()
	return c.JSON(http.StatusOK, echo.Map{"message": "cache cleared"})
}
