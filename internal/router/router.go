package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/aquapass/pool-reservation/internal/config"
	"github.com/aquapass/pool-reservation/internal/handler"
	"github.com/aquapass/pool-reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems probe this endpoint to
	// verify that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAvailability registers the availability query under /v1.  The
// route requires a valid JWT with the MEMBER role.  Responses are cached
// briefly in Redis keyed by route and query string; rdb may be nil, in
// which case caching is skipped.
func RegisterAvailability(e *echo.Echo, h *handler.AvailabilityHandler, jwtSecret string, cacheCfg config.CacheConfig, rdb *redis.Client) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("MEMBER"),
	)
	g.GET("/availability", h.ListAvailable, middleware.NewRedisCache(cacheCfg, rdb))
}
