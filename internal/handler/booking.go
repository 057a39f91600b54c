package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aquapass/pool-reservation/internal/queue"
	"github.com/aquapass/pool-reservation/internal/repository"
	"github.com/aquapass/pool-reservation/internal/service"
)

// BookingHandler exposes the member-facing reservation API.  All methods
// assume that JWT authentication and role validation has already been
// performed by middleware; they may still return 401 when the user ID
// cannot be extracted from the context.  The booking rules themselves
// (capacity, entitlement, duplicates, lifecycle) live in the ledger
// service, so the handler only binds input, maps errors and publishes
// lifecycle events after a successful commit.
type BookingHandler struct {
	Ledger       *service.Ledger
	Checkin      *service.CheckinService
	Reservations *repository.ReservationRepo
	Sessions     *repository.SessionRepo
}

// NewBookingHandler constructs a BookingHandler.  All dependencies must
// be non-nil.
func NewBookingHandler(ledger *service.Ledger, checkin *service.CheckinService, reservations *repository.ReservationRepo, sessions *repository.SessionRepo) *BookingHandler {
	if ledger == nil || checkin == nil || reservations == nil || sessions == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{
		Ledger:       ledger,
		Checkin:      checkin,
		Reservations: reservations,
		Sessions:     sessions,
	}
}

// CreateReservation handles POST /v1/reservations.  The request body
// must contain the session to book and the package to consume from.
// On success it returns 201 Created with the confirmed reservation; one
// entitlement has been consumed and one capacity slot taken, both inside
// a single transaction.  Failure reasons are reported individually:
// 404 unknown session or package, 403 someone else's package, 409
// duplicate booking, 422 full session or exhausted package.
func (h *BookingHandler) CreateReservation(c echo.Context) error {
	memberID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		SessionID uint64 `json:"session_id"`
		PackageID uint64 `json:"package_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.SessionID == 0 || body.PackageID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_id and package_id are required"})
	}
	ctx := c.Request().Context()
	res, err := h.Ledger.CreateReservation(ctx, memberID, body.SessionID, body.PackageID)
	if err != nil {
		return bookingError(c, err)
	}
	h.publishEvent(queue.EventReservationConfirmed, res.ID, res.MemberID, res.SessionID)
	return c.JSON(http.StatusCreated, echo.Map{"reservation": reservationJSON(res)})
}

// CancelReservation handles DELETE /v1/reservations/:id.  Members may
// only cancel their own reservations, and only while the reservation is
// still active.  A successful cancellation refunds the consumed
// entitlement and frees the capacity slot.  Returns the cancelled
// reservation so clients can show the final state.
func (h *BookingHandler) CancelReservation(c echo.Context) error {
	memberID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx := c.Request().Context()
	res, err := h.Ledger.CancelReservation(ctx, resID, memberID, false)
	if err != nil {
		return bookingError(c, err)
	}
	h.publishEvent(queue.EventReservationCancelled, res.ID, res.MemberID, res.SessionID)
	return c.JSON(http.StatusOK, echo.Map{"reservation": reservationJSON(res)})
}

// ListMyReservations handles GET /v1/my-reservations.  It returns all
// reservations created by the current member along with session and pool
// details.  When no reservations exist, it returns an empty array.
func (h *BookingHandler) ListMyReservations(c echo.Context) error {
	memberID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	details, err := h.Reservations.ListByMember(ctx, memberID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// GetReservation handles GET /v1/reservations/:id.  It returns a single
// reservation for the authenticated member.  When the reservation does
// not exist it responds with 404; when it belongs to a different member
// it responds with 403.
func (h *BookingHandler) GetReservation(c echo.Context) error {
	memberID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx := c.Request().Context()
	res, err := h.Reservations.GetByID(ctx, resID)
	if err != nil {
		return bookingError(c, err)
	}
	if res.MemberID != memberID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": reservationJSON(res)})
}

// IssueCheckinToken handles POST /v1/reservations/:id/checkin-token.  It
// mints a signed token the member presents at the front desk.  The
// token is only issued for the member's own CONFIRMED reservation and
// is valid from shortly before the session starts until it ends.
func (h *BookingHandler) IssueCheckinToken(c echo.Context) error {
	memberID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx := c.Request().Context()
	tok, err := h.Checkin.Issue(ctx, resID, memberID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"token":       tok.Token,
		"valid_from":  tok.ValidFrom.Format(time.RFC3339),
		"valid_until": tok.ValidUntil.Format(time.RFC3339),
	})
}

// publishEvent emits a reservation lifecycle event in the background.
// The event is enriched with session details on a best-effort basis;
// broker failures are logged inside the queue package and never affect
// the API response.
func (h *BookingHandler) publishEvent(eventType string, reservationID, memberID, sessionID uint64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ev := queue.ReservationEvent{
			Type:          eventType,
			ReservationID: reservationID,
			MemberID:      memberID,
			SessionID:     sessionID,
			OccurredAt:    time.Now().UTC().Format(time.RFC3339),
		}
		if sess, err := h.Sessions.GetByID(ctx, sessionID); err == nil {
			ev.SessionDate = sess.SessionDate
			ev.StartsAt = sess.StartsAt.Format(time.RFC3339)
			ev.EndsAt = sess.EndsAt.Format(time.RFC3339)
		}
		_ = queue.PublishReservationEvent(ctx, ev)
	}()
}
