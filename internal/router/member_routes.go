package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/aquapass/pool-reservation/internal/config"
	"github.com/aquapass/pool-reservation/internal/handler"
	"github.com/aquapass/pool-reservation/internal/middleware"
)

// RegisterMember registers member-scoped booking endpoints under /v1.
// All routes require a valid JWT and the MEMBER role.  Members can book
// sessions against their packages, cancel their own reservations, list
// and inspect their bookings, and mint check-in tokens.  The write
// endpoints sit behind the Redis token-bucket limiter so one client
// cannot hammer the ledger; rdb may be nil, which disables limiting.
func RegisterMember(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("MEMBER"),
	)
	limited := middleware.NewTokenBucket(rlCfg, rdb)

	g.POST("/reservations", h.CreateReservation, limited)
	g.DELETE("/reservations/:id", h.CancelReservation, limited)
	g.GET("/my-reservations", h.ListMyReservations)
	g.GET("/reservations/:id", h.GetReservation)
	g.POST("/reservations/:id/checkin-token", h.IssueCheckinToken, limited)
}
