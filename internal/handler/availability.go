package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aquapass/pool-reservation/internal/repository"
	"github.com/aquapass/pool-reservation/internal/service"
)

// AvailabilityHandler exposes the read side of the booking engine: the
// list of sessions a member could actually book on a given date with a
// given package.  The calculation is advisory; the authoritative checks
// run again inside the ledger transaction at booking time.
type AvailabilityHandler struct {
	Calc *service.AvailabilityCalculator
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(calc *service.AvailabilityCalculator) *AvailabilityHandler {
	if calc == nil {
		panic("nil calculator passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Calc: calc}
}

// ListAvailable handles GET /v1/availability?package_id=&date=.  The
// date defaults to today (UTC) when omitted.  The response carries the
// bookable sessions and, when the list is empty for a categorical
// reason (holiday, inactive package, exhausted package, ineligible
// member), a machine-readable reason code.
func (h *AvailabilityHandler) ListAvailable(c echo.Context) error {
	memberID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	pkgID, err := strconv.ParseUint(c.QueryParam("package_id"), 10, 64)
	if err != nil || pkgID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "package_id is required"})
	}
	date := c.QueryParam("date")
	if date == "" {
		date = time.Now().UTC().Format(repository.DateLayout)
	} else if _, perr := time.Parse(repository.DateLayout, date); perr != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD"})
	}
	ctx := c.Request().Context()
	sessions, reason, err := h.Calc.ListAvailableSessions(ctx, memberID, pkgID, date)
	if err != nil {
		return bookingError(c, err)
	}
	if sessions == nil {
		sessions = []service.AvailableSession{}
	}
	resp := echo.Map{
		"date":     date,
		"sessions": sessions,
	}
	if reason != "" {
		resp["reason"] = reason
	}
	return c.JSON(http.StatusOK, resp)
}
