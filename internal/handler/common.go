package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aquapass/pool-reservation/internal/model"
	"github.com/aquapass/pool-reservation/internal/repository"
	"github.com/aquapass/pool-reservation/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it to
// uint64.  The JWT middleware stores the raw sub claim, which may arrive
// as a string or a JSON number depending on the token issuer.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// bookingError translates a ledger or repository error into the HTTP
// response the booking API documents.  Unknown errors become 500 with a
// generic message so internal details never leak to clients.
func bookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, repository.ErrPackageNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "package not found"})
	case errors.Is(err, repository.ErrMemberNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
	case errors.Is(err, repository.ErrPoolNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "pool not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrDuplicateBooking):
		return c.JSON(http.StatusConflict, echo.Map{"error": "active reservation already exists for this session"})
	case errors.Is(err, service.ErrInvalidStateTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation state does not allow this operation"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflicting update, please retry"})
	case errors.Is(err, service.ErrCapacityExceeded):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "session is full"})
	case errors.Is(err, service.ErrEntitlementExhausted):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "package grants no booking for this session"})
	case errors.Is(err, service.ErrInvalidSession):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "session is not bookable"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// reservationJSON shapes a reservation for API responses.
func reservationJSON(res *model.Reservation) echo.Map {
	return echo.Map{
		"id":                res.ID,
		"member_id":         res.MemberID,
		"session_id":        res.SessionID,
		"member_package_id": res.MemberPackageID,
		"status":            res.Status,
		"created_at":        res.CreatedAt.Format(time.RFC3339),
		"updated_at":        res.UpdatedAt.Format(time.RFC3339),
	}
}

// sessionJSON shapes a session for API responses.
func sessionJSON(s *model.Session) echo.Map {
	return echo.Map{
		"id":               s.ID,
		"pool_id":          s.PoolID,
		"session_date":     s.SessionDate,
		"starts_at":        s.StartsAt.Format(time.RFC3339),
		"ends_at":          s.EndsAt.Format(time.RFC3339),
		"capacity":         s.Capacity,
		"current_bookings": s.CurrentBookings,
		"remaining":        s.RemainingCapacity(),
		"is_education":     s.IsEducationSession,
		"is_active":        s.IsActive,
	}
}
