package router

import (
	"github.com/labstack/echo/v4"

	"github.com/aquapass/pool-reservation/internal/handler"
	"github.com/aquapass/pool-reservation/internal/middleware"
)

// RegisterAdmin registers staff-scoped endpoints under /v1/admin.  All
// routes require a valid JWT and the STAFF role.  Staff manage ad-hoc
// sessions, override reservation lifecycles, trigger the background
// jobs manually and review holiday conflicts.  The check-in scan also
// lives here: the front desk scans tokens, members never call it
// directly.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, ch *handler.CheckinHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("STAFF"),
	)

	g.POST("/sessions", a.CreateSession)
	g.POST("/sessions/:id/deactivate", a.DeactivateSession)
	g.GET("/sessions/:id/reservations", a.ListSessionReservations)

	g.POST("/reservations/:id/complete", a.CompleteReservation)
	g.POST("/reservations/:id/no-show", a.NoShowReservation)
	g.DELETE("/reservations/:id", a.CancelReservationOverride)

	g.POST("/jobs/sweep", a.RunSweep)
	g.POST("/jobs/generate", a.RunGenerate)
	g.GET("/holiday-conflicts", a.HolidayConflicts)

	// Scan endpoint for the front desk.  STAFF only: the token is the
	// member's proof, the scanner is the trusted party.
	scan := e.Group(
		"/v1/checkin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("STAFF"),
	)
	scan.POST("", ch.Scan)
}
