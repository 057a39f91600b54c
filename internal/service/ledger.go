package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/aquapass/pool-reservation/internal/model"
	"github.com/aquapass/pool-reservation/internal/repository"
)

// Ledger is the reservation state machine and the only writer of
// reservation status, session booking counters and package entitlement
// counters.  Every operation runs inside a single transaction whose
// capacity and entitlement mutations are conditional updates, so two
// concurrent bookings can never both take the last slot and racing
// lifecycle transitions can never double-apply their side effects.
type Ledger struct {
	db           *sql.DB
	sessions     *repository.SessionRepo
	packages     *repository.PackageRepo
	reservations *repository.ReservationRepo
	members      *repository.MemberRepo
	entitlements *EntitlementResolver
	now          func() time.Time
}

// NewLedger constructs the reservation ledger.  All dependencies must be
// non-nil.
func NewLedger(db *sql.DB, sessions *repository.SessionRepo, packages *repository.PackageRepo, reservations *repository.ReservationRepo, members *repository.MemberRepo, entitlements *EntitlementResolver) *Ledger {
	if db == nil || sessions == nil || packages == nil || reservations == nil || members == nil || entitlements == nil {
		panic("nil dependency passed to NewLedger")
	}
	return &Ledger{
		db:           db,
		sessions:     sessions,
		packages:     packages,
		reservations: reservations,
		members:      members,
		entitlements: entitlements,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateReservation books one slot in a session against a member's
// package.  Preconditions are checked inside the transaction: the
// session must exist, be active and start in the future; the package
// must be owned by the member, usable on the session date and
// compatible with the session; and the member must not already hold an
// active reservation for it.  The capacity increment and entitlement
// decrement are conditional updates re-checked at commit time, so the
// returned errors are authoritative under concurrency:
// ErrCapacityExceeded when the session filled up, and
// ErrEntitlementExhausted when the last package unit was taken.
func (l *Ledger) CreateReservation(ctx context.Context, memberID, sessionID, memberPackageID uint64) (*model.Reservation, error) {
	now := l.now()
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sess, err := l.sessions.GetByIDTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive || !sess.StartsAt.After(now) {
		return nil, ErrInvalidSession
	}

	pkg, err := l.packages.GetByIDTx(ctx, tx, memberPackageID)
	if err != nil {
		return nil, err
	}
	if pkg.MemberID != memberID {
		return nil, repository.ErrForbidden
	}
	member, err := l.members.GetByIDTx(ctx, tx, memberID)
	if err != nil {
		return nil, err
	}
	if err := l.entitlements.Usable(pkg, member, sess.SessionDate); err != nil {
		return nil, err
	}
	if err := l.entitlements.CompatibleWithSession(pkg, member, sess); err != nil {
		return nil, err
	}

	active, err := l.reservations.HasActiveForSessionTx(ctx, tx, memberID, sessionID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrDuplicateBooking
	}

	ok, err := l.sessions.IncrementBookingsTx(ctx, tx, sessionID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCapacityExceeded
	}
	ok, err = l.packages.ConsumeSessionTx(ctx, tx, memberPackageID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEntitlementExhausted
	}
	if err := l.packages.DeactivateIfExhaustedTx(ctx, tx, memberPackageID, now); err != nil {
		return nil, err
	}

	res := &model.Reservation{
		MemberID:        memberID,
		SessionID:       sessionID,
		MemberPackageID: memberPackageID,
		Status:          model.StatusConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	created, err := l.reservations.CreateTx(ctx, tx, res)
	if err != nil {
		return nil, err
	}
	if !created {
		// A concurrent booking for the same member and session slipped
		// past the earlier read; the conditional insert is authoritative.
		return nil, ErrDuplicateBooking
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// CancelReservation transitions an active reservation to CANCELLED,
// releases its session slot and refunds one entitlement unit to the
// package.  Only the owning member may cancel unless adminOverride is
// set.  Cancelling a terminal reservation fails with
// ErrInvalidStateTransition and changes nothing.
func (l *Ledger) CancelReservation(ctx context.Context, reservationID, byMemberID uint64, adminOverride bool) (*model.Reservation, error) {
	now := l.now()
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := l.reservations.GetByIDTx(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}
	if !adminOverride && res.MemberID != byMemberID {
		return nil, repository.ErrForbidden
	}
	if !model.IsActiveStatus(res.Status) {
		return nil, ErrInvalidStateTransition
	}
	ok, err := l.reservations.UpdateStatusTx(ctx, tx, reservationID, model.StatusCancelled, now,
		model.StatusPending, model.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStateTransition
	}
	// The booking counter matches the active reservation count, so the
	// decrement must land; a miss means the ledger invariant is broken.
	if ok, err = l.sessions.DecrementBookingsTx(ctx, tx, res.SessionID, now); err != nil {
		return nil, err
	} else if !ok {
		return nil, repository.ErrConflict
	}
	if err := l.packages.RestoreSessionTx(ctx, tx, res.MemberPackageID, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	res.Status = model.StatusCancelled
	res.UpdatedAt = now
	return res, nil
}

// MarkReservationAsCompleted records attendance.  Allowed only from
// CONFIRMED; completion keeps the consumed entitlement and the booked
// capacity (the slot was used).
func (l *Ledger) MarkReservationAsCompleted(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	return l.transition(ctx, reservationID, model.StatusCompleted, model.StatusConfirmed)
}

// MarkReservationAsNoShow records a missed session by staff decision.
// Allowed only from CONFIRMED; no-show does not refund the entitlement.
func (l *Ledger) MarkReservationAsNoShow(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	return l.transition(ctx, reservationID, model.StatusNoShow, model.StatusConfirmed)
}

// MarkReservationAsMissed is the sweeper's transition: any still-active
// reservation whose session has ended becomes NO_SHOW, including ones
// stuck in PENDING.
func (l *Ledger) MarkReservationAsMissed(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	return l.transition(ctx, reservationID, model.StatusNoShow, model.StatusPending, model.StatusConfirmed)
}

// transition applies a compare-and-set status change with no capacity or
// entitlement side effects.  The state machine table is consulted before
// the CAS so an illegal move is rejected without issuing a write; the
// CAS still decides races between writers that both saw a legal source
// state.
func (l *Ledger) transition(ctx context.Context, reservationID uint64, to string, from ...string) (*model.Reservation, error) {
	now := l.now()
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := l.reservations.GetByIDTx(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(res.Status, to) {
		return nil, ErrInvalidStateTransition
	}
	ok, err := l.reservations.UpdateStatusTx(ctx, tx, reservationID, to, now, from...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStateTransition
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	res.Status = to
	res.UpdatedAt = now
	return res, nil
}
