package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aquapass/pool-reservation/internal/queue"
	"github.com/aquapass/pool-reservation/internal/service"
)

// CheckinHandler exposes the front-desk scan endpoint.  It is mounted
// behind the STAFF role: members present their token, staff scan it,
// and a valid scan completes the reservation.
type CheckinHandler struct {
	Checkin *service.CheckinService
}

// NewCheckinHandler constructs a CheckinHandler.
func NewCheckinHandler(checkin *service.CheckinService) *CheckinHandler {
	if checkin == nil {
		panic("nil service passed to NewCheckinHandler")
	}
	return &CheckinHandler{Checkin: checkin}
}

// Scan handles POST /v1/checkin.  The request body carries the raw
// token string.  A valid scan transitions the reservation to COMPLETED
// and returns it; the same token scanned twice fails with 409 because
// the reservation is no longer CONFIRMED.  Expired and not-yet-valid
// tokens are reported distinctly so the front desk can tell a latecomer
// from an early bird.
func (h *CheckinHandler) Scan(c echo.Context) error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&body); err != nil || body.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}
	ctx := c.Request().Context()
	res, err := h.Checkin.VerifyAndConsume(ctx, body.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenExpired):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
		case errors.Is(err, service.ErrTokenNotYetValid):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token not yet valid"})
		case errors.Is(err, service.ErrTokenInvalid):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}
		return bookingError(c, err)
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ev := queue.ReservationEvent{
			Type:          queue.EventReservationCompleted,
			ReservationID: res.ID,
			MemberID:      res.MemberID,
			SessionID:     res.SessionID,
			OccurredAt:    res.UpdatedAt.Format(time.RFC3339),
		}
		_ = queue.PublishReservationEvent(pubCtx, ev)
	}()
	return c.JSON(http.StatusOK, echo.Map{"reservation": reservationJSON(res)})
}
