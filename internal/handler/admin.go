package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aquapass/pool-reservation/internal/model"
	"github.com/aquapass/pool-reservation/internal/queue"
	"github.com/aquapass/pool-reservation/internal/repository"
	"github.com/aquapass/pool-reservation/internal/service"
)

// AdminHandler bundles the staff-facing operations: ad-hoc session
// management, reservation lifecycle overrides and manual triggers for
// the background jobs.  All routes using this handler sit behind the
// STAFF role.
type AdminHandler struct {
	Sessions     *repository.SessionRepo
	Pools        *repository.PoolRepo
	Reservations *repository.ReservationRepo
	Ledger       *service.Ledger
	Sweeper      *service.Sweeper
	Generator    *service.Generator
}

// NewAdminHandler constructs an AdminHandler and panics if any
// dependency is nil.
func NewAdminHandler(sessions *repository.SessionRepo, pools *repository.PoolRepo, reservations *repository.ReservationRepo, ledger *service.Ledger, sweeper *service.Sweeper, generator *service.Generator) *AdminHandler {
	if sessions == nil || pools == nil || reservations == nil || ledger == nil || sweeper == nil || generator == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Sessions:     sessions,
		Pools:        pools,
		Reservations: reservations,
		Ledger:       ledger,
		Sweeper:      sweeper,
		Generator:    generator,
	}
}

// CreateSession handles POST /v1/admin/sessions.  Staff use it to
// materialize ad-hoc sessions outside the weekly template, for example
// a special event or a make-up class.  The slot must not collide with
// an existing session at the same pool, date and start time; collisions
// return 409.
func (h *AdminHandler) CreateSession(c echo.Context) error {
	var body struct {
		PoolID      uint64 `json:"pool_id"`
		SessionDate string `json:"session_date"`
		StartTime   string `json:"start_time"`
		EndTime     string `json:"end_time"`
		Capacity    int    `json:"capacity"`
		IsEducation bool   `json:"is_education"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.PoolID == 0 || body.SessionDate == "" || body.StartTime == "" || body.EndTime == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pool_id, session_date, start_time and end_time are required"})
	}
	if body.Capacity <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}
	startsAt, err := time.ParseInLocation(repository.DateLayout+" "+repository.ClockLayout, body.SessionDate+" "+body.StartTime, time.UTC)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session_date or start_time"})
	}
	endsAt, err := time.ParseInLocation(repository.DateLayout+" "+repository.ClockLayout, body.SessionDate+" "+body.EndTime, time.UTC)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time"})
	}
	if !endsAt.After(startsAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be after start_time"})
	}
	ctx := c.Request().Context()
	pool, err := h.Pools.GetByID(ctx, body.PoolID)
	if err != nil {
		return bookingError(c, err)
	}
	if !pool.IsActive {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "pool is not active"})
	}
	// Clock strings compare lexicographically in the shared "15:04"
	// layout; formatting the parsed times normalizes unpadded input.
	if startsAt.Format(repository.ClockLayout) < pool.OpenTime ||
		endsAt.Format(repository.ClockLayout) > pool.CloseTime {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "session falls outside pool operating hours"})
	}

	tx, err := h.Sessions.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	exists, err := h.Sessions.ExistsForSlotTx(ctx, tx, body.PoolID, body.SessionDate, repository.FormatDateTime(startsAt))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check slot"})
	}
	if exists {
		return c.JSON(http.StatusConflict, echo.Map{"error": "session already exists for this slot"})
	}
	sess := &model.Session{
		PoolID:             body.PoolID,
		SessionDate:        body.SessionDate,
		StartsAt:           startsAt,
		EndsAt:             endsAt,
		Capacity:           body.Capacity,
		IsEducationSession: body.IsEducation,
		IsActive:           true,
	}
	if err := h.Sessions.CreateTx(ctx, tx, sess); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create session"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusCreated, echo.Map{"session": sessionJSON(sess)})
}

// DeactivateSession handles POST /v1/admin/sessions/:id/deactivate.
// Deactivated sessions stop accepting bookings but existing
// reservations are untouched; staff cancel those individually with the
// override endpoint when the session is truly called off.
func (h *AdminHandler) DeactivateSession(c echo.Context) error {
	sessID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	if err := h.Sessions.Deactivate(ctx, sessID, time.Now().UTC()); err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deactivated": sessID})
}

// ListSessionReservations handles GET /v1/admin/sessions/:id/reservations.
// The front desk uses it as the attendance sheet for a session.
func (h *AdminHandler) ListSessionReservations(c echo.Context) error {
	sessID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Sessions.GetByID(ctx, sessID); err != nil {
		return bookingError(c, err)
	}
	items, err := h.Reservations.ListBySession(ctx, sessID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	active, err := h.Reservations.CountActiveBySession(ctx, sessID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count reservations"})
	}
	out := make([]echo.Map, 0, len(items))
	for i := range items {
		out = append(out, reservationJSON(&items[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":  out,
		"active": active,
	})
}

// CompleteReservation handles POST /v1/admin/reservations/:id/complete.
// It is the manual fallback when a member shows up without a scannable
// token; the same CONFIRMED-only rule applies as for a token scan.
func (h *AdminHandler) CompleteReservation(c echo.Context) error {
	return h.override(c, func(ctx echo.Context, id uint64) (*model.Reservation, string, error) {
		res, err := h.Ledger.MarkReservationAsCompleted(ctx.Request().Context(), id)
		return res, queue.EventReservationCompleted, err
	})
}

// NoShowReservation handles POST /v1/admin/reservations/:id/no-show.
// Staff mark a member who never appeared; the entitlement stays
// consumed.
func (h *AdminHandler) NoShowReservation(c echo.Context) error {
	return h.override(c, func(ctx echo.Context, id uint64) (*model.Reservation, string, error) {
		res, err := h.Ledger.MarkReservationAsNoShow(ctx.Request().Context(), id)
		return res, queue.EventReservationNoShow, err
	})
}

// CancelReservationOverride handles DELETE /v1/admin/reservations/:id.
// Unlike the member endpoint it skips the ownership check, so staff can
// cancel on behalf of any member.  The refund rules are identical.
func (h *AdminHandler) CancelReservationOverride(c echo.Context) error {
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx := c.Request().Context()
	res, err := h.Ledger.CancelReservation(ctx, resID, staffID, true)
	if err != nil {
		return bookingError(c, err)
	}
	publishReservationEvent(queue.EventReservationCancelled, res)
	return c.JSON(http.StatusOK, echo.Map{"reservation": reservationJSON(res)})
}

// RunSweep handles POST /v1/admin/jobs/sweep.  It triggers the
// missed-reservation sweeper immediately instead of waiting for the
// next scheduled run, and reports how many reservations were swept.
func (h *AdminHandler) RunSweep(c echo.Context) error {
	swept, failed, err := h.Sweeper.ProcessMissedReservations(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"swept":  swept,
		"failed": failed,
	})
}

// RunGenerate handles POST /v1/admin/jobs/generate.  It triggers the
// session generator immediately and reports how many sessions were
// materialized.
func (h *AdminHandler) RunGenerate(c echo.Context) error {
	created, err := h.Generator.GenerateScheduledSessions(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generation failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"created": created})
}

// HolidayConflicts handles GET /v1/admin/holiday-conflicts.  It lists
// active sessions that fall on days later declared holidays, so staff
// can decide what to cancel.  Nothing is deleted automatically.
func (h *AdminHandler) HolidayConflicts(c echo.Context) error {
	sessions, err := h.Generator.ReportHolidayConflicts(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to scan for conflicts"})
	}
	out := make([]echo.Map, 0, len(sessions))
	for i := range sessions {
		out = append(out, sessionJSON(&sessions[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// override runs a lifecycle transition endpoint: parse the id, apply
// the transition, publish the resulting event.
func (h *AdminHandler) override(c echo.Context, fn func(echo.Context, uint64) (*model.Reservation, string, error)) error {
	resID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, eventType, err := fn(c, resID)
	if err != nil {
		return bookingError(c, err)
	}
	publishReservationEvent(eventType, res)
	return c.JSON(http.StatusOK, echo.Map{"reservation": reservationJSON(res)})
}

// publishReservationEvent emits a lifecycle event in the background on a
// best-effort basis.
func publishReservationEvent(eventType string, res *model.Reservation) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue.PublishReservationEvent(ctx, queue.ReservationEvent{
			Type:          eventType,
			ReservationID: res.ID,
			MemberID:      res.MemberID,
			SessionID:     res.SessionID,
			OccurredAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}()
}
