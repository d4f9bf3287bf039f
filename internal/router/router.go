package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"seatmap/internal/config"
	"seatmap/internal/handler"
	"seatmap/internal/middleware"
)

// RegisterRoutes registers all application routes on the provided Echo
// instance. The snapshot GET sits behind the Redis response cache and
// the mutating endpoints behind the token-bucket rate limiter; both
// middlewares become no-ops when rdb is nil, so a missing Redis only
// costs the protections, never the endpoints.
//
// The event stream is deliberately registered without middleware: its
// response never ends, so it must not pass through anything that
// buffers or caches the body.
func RegisterRoutes(e *echo.Echo, h *handler.SeatHandler, rdb *redis.Client, cacheCfg config.CacheConfig, rlCfg config.RateLimitConfig) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	g := e.Group("/v1")

	// Full seat snapshot; viewers call this on session start and on
	// every (re)connect of the event stream.
	g.GET("/seats", h.GetSeats, middleware.NewRedisCache(cacheCfg, rdb))

	// Mutations. Both publish to the hub on success.
	limiter := middleware.NewTokenBucket(rlCfg, rdb)
	g.POST("/seats", h.UpsertSeat, limiter)
	g.DELETE("/seats", h.ClearSeat, limiter)

	// Long-lived SSE stream of seat change events.
	g.GET("/seats/stream", h.Stream)
}
