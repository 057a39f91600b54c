package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aquapass/pool-reservation/internal/model"
	"github.com/aquapass/pool-reservation/internal/repository"
)

// bookingFixture is the standard scenario: one pool, one member with a
// paid multi-session package, one future session.
type bookingFixture struct {
	env       *testEnv
	poolID    uint64
	memberID  uint64
	packageID uint64
	sessionID uint64
}

func newBookingFixture(t *testing.T, capacity, remaining int) *bookingFixture {
	env := newTestEnv(t)
	env.setNow(ts(t, "2025-06-02", "08:00"))
	poolID := env.addPool(t, "Main Pool")
	memberID := env.addMember(t, "Alice Waters", true, true)
	packageID := env.addPackage(t, memberID, remaining, "2025-06-01", "2025-06-30")
	sessionID := env.addSession(t, poolID, "2025-06-02",
		ts(t, "2025-06-02", "10:00"), ts(t, "2025-06-02", "11:00"), capacity, false)
	return &bookingFixture{env: env, poolID: poolID, memberID: memberID, packageID: packageID, sessionID: sessionID}
}

func TestCreateReservationHappyPath(t *testing.T) {
	f := newBookingFixture(t, 3, 5)
	ctx := context.Background()

	res, err := f.env.ledger.CreateReservation(ctx, f.memberID, f.sessionID, f.packageID)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if res.Status != model.StatusConfirmed {
		t.Errorf("status = %s, want %s", res.Status, model.StatusConfirmed)
	}
	if res.ID == 0 {
		t.Error("reservation ID was not populated")
	}
	if got := f.env.mustSession(t, f.sessionID).CurrentBookings; got != 1 {
		t.Errorf("current_bookings = %d, want 1", got)
	}
	if got := f.env.mustPackage(t, f.packageID).SessionsRemaining; got != 4 {
		t.Errorf("sessions_remaining = %d, want 4", got)
	}
}

func TestCreateReservationSessionFull(t *testing.T) {
	f := newBookingFixture(t, 1, 5)
	ctx := context.Background()

	otherID := f.env.addMember(t, "Bob Stone", true, true)
	otherPkg := f.env.addPackage(t, otherID, 5, "2025-06-01", "2025-06-30")
	if _, err := f.env.ledger.CreateReservation(ctx, otherID, f.sessionID, otherPkg); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err := f.env.ledger.CreateReservation(ctx, f.memberID, f.sessionID, f.packageID)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	// The failed booking must not consume anything.
	if got := f.env.mustPackage(t, f.packageID).SessionsRemaining; got != 5 {
		t.Errorf("sessions_remaining = %d, want 5", got)
	}
	if got := f.env.mustSession(t, f.sessionID).CurrentBookings; got != 1 {
		t.Errorf("current_bookings = %d, want 1", got)
	}
}

func TestCreateReservationDuplicate(t *testing.T) {
	f := newBookingFixture(t, 3, 5)
	ctx := context.Background()

	if _, err := f.env.ledger.CreateReservation(ctx, f.memberID, f.sessionID, f.packageID); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	_, err := f.env.ledger.CreateReservation(ctx, f.memberID, f.sessionID, f.packageID)
	if !errors.Is(err, ErrDuplicateBooking) {
		t.Fatalf("err = %v, want ErrDuplicateBooking", err)
	}
	if got := f.env.mustSession(t, f.sessionID).CurrentBookings; got != 1 {
		t.Errorf("current_bookings = %d, want 1", got)
	}
	if got := f.env.mustPackage(t, f.packageID).SessionsRemaining; got != 4 {
		t.Errorf("sessions_remaining = %d, want 4", got)
	}
}

func TestCreateReservationExhaustedPackage(t *testing.T) {
	f := newBookingFixture(t, 3, 0)
	_, err := f.env.ledger.CreateReservation(context.Background(), f.memberID, f.sessionID, f.packageID)
	if !errors.Is(err, ErrEntitlementExhausted) {
		t.Fatalf("err = %v, want ErrEntitlementExhausted", err)
	}
	if got := f.env.mustSession(t, f.sessionID).CurrentBookings; got != 0 {
		t.Errorf("current_bookings = %d, want 0", got)
	}
}

func TestCreateReservationConsumesLastUnit(t *testing.T) {
	f := newBookingFixture(t, 3, 1)
	if _, err := f.env.ledger.CreateReservation(context.Background(), f.memberID, f.sessionID, f.packageID); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	pkg := f.env.mustPackage(t, f.packageID)
	if pkg.SessionsRemaining != 0 {
		t.Errorf("sessions_remaining = %d, want 0", pkg.SessionsRemaining)
	}
	if pkg.Active {
		t.Error("package should be deactivated once exhausted")
	}
}

func TestCreateReservationWrongOwner(t *testing.T) {
	f := newBookingFixture(t, 3, 5)
	intruder := f.env.addMember(t, "Carol Reed", true, true)
	_, err := f.env.ledger.CreateReservation(context.Background(), intruder, f.sessionID, f.packageID)
	if !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestCreateReservationPastSession(t *testing.T) {
	f := newBookingFixture(t, 3, 5)
	f.env.setNow(ts(t, "2025-06-02", "12:00")) // session ran 10:00-11:00
	_, err := f.env.ledger.CreateReservation(context.Background(), f.memberID, f.sessionID, f.packageID)
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("err = %v, want ErrInvalidSession", err)
	}
}

func TestCreateReservationPoolRestrictedPackage(t *testing.T) {
	f := newBookingFixture(t, 3, 5)
	otherPool := f.env.addPool(t, "Dive Pool")
	f.env.exec(t, `UPDATE member_packages SET pool_id = ? WHERE id = ?`, otherPool, f.packageID)
	_, err := f.env.ledger.CreateReservation(context.Background(), f.memberID, f.sessionID, f.packageID)
	if !errors.Is(err, ErrEntitlementExhausted) {
		t.Fatalf("err = %v, want ErrEntitlementExhausted", err)
	}
}

func TestCancelReservationRefunds(t *testing.T) {
	f := newBookingFixture(t, 3, 1)
	ctx := context.Background()

	res, err := f.env.ledger.CreateReservation(ctx, f.memberID, f.sessionID, f.packageID)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	cancelled, err := f.env.ledger.CancelReservation(ctx, res.ID, f.memberID, false)
	if err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Errorf("status = %s, want %s", cancelled.Status, model.StatusCancelled)
	}
	if got := f.env.mustSession(t, f.sessionID).CurrentBookings; got != 0 {
		t.Errorf("current_bookings = %d, want 0", got)
	}
	pkg := f.env.mustPackage(t, f.packageID)
	if pkg.SessionsRemaining != 1 {
		t.Errorf("sessions_remaining = %d, want 1", pkg.SessionsRemaining)
	}
	if !pkg.Active {
		t.Error("package should be reactivated after the refund")
	}
}

func TestCancelReservationTwice(t *testing.T) {
	f := newBookingFixture(t, 3, 5)
	ctx := context.Background()

	res, err := f.env.ledger.CreateReservation(ctx, f.memberID, f.sessionID, f.packageID)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if _, err := f.env.ledger.CancelReservation(ctx, res.ID, f.memberID, false); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	_, err = f.env.ledger.CancelReservation(ctx, res.ID, f.memberID, false)
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("err = %v, want ErrInvalidStateTransition", err)
	}
	// The failed second cancel must not double-refund.
	if got := f.env.mustPackage(t, f.packageID).SessionsRemaining; got != 5 {
		t.Errorf("sessions_remaining = %d, want 5", got)
	}
	if got := f.env.mustSession(t, f.sessionID).CurrentBookings; got != 0 {
		t.Errorf("current_bookings = %d, want 0", got)
	}
}

func TestCancelReservationOwnership(t *testing.T) {
	f := newBookingFixture(t, 3, 5)
	ctx := context.Background()

	res, err := f.env.ledger.CreateReservation(ctx, f.memberID, f.sessionID, f.packageID)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	intruder := f.env.addMember(t, "Carol Reed", true, true)
	if _, err := f.env.ledger.CancelReservation(ctx, res.ID, intruder, false); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	// Staff override skips the ownership check.
	if _, err := f.env.ledger.CancelReservation(ctx, res.ID, intruder, true); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestCompleteAndNoShowTransitions(t *testing.T) {
	f := newBookingFixture(t, 3, 5)
	ctx := context.Background()

	res, err := f.env.ledger.CreateReservation(ctx, f.memberID, f.sessionID, f.packageID)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	done, err := f.env.ledger.MarkReservationAsCompleted(ctx, res.ID)
	if err != nil {
		t.Fatalf("MarkReservationAsCompleted: %v", err)
	}
	if done.Status != model.StatusCompleted {
		t.Errorf("status = %s, want %s", done.Status, model.StatusCompleted)
	}
	// Completion is terminal: no further transitions.
	if _, err := f.env.ledger.MarkReservationAsNoShow(ctx, res.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("err = %v, want ErrInvalidStateTransition", err)
	}
	if _, err := f.env.ledger.CancelReservation(ctx, res.ID, f.memberID, false); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("err = %v, want ErrInvalidStateTransition", err)
	}
	// Attendance keeps the entitlement consumed and the slot booked.
	if got := f.env.mustPackage(t, f.packageID).SessionsRemaining; got != 4 {
		t.Errorf("sessions_remaining = %d, want 4", got)
	}
	if got := f.env.mustSession(t, f.sessionID).CurrentBookings; got != 1 {
		t.Errorf("current_bookings = %d, want 1", got)
	}
}

// The duplicate guard lives in the INSERT itself, so it holds even for a
// writer whose earlier read predates a competing booking.
func TestDuplicateGuardAtInsert(t *testing.T) {
	f := newBookingFixture(t, 3, 5)
	ctx := context.Background()

	first, err := f.env.ledger.CreateReservation(ctx, f.memberID, f.sessionID, f.packageID)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	now := ts(t, "2025-06-02", "08:30")
	dup := &model.Reservation{
		MemberID:        f.memberID,
		SessionID:       f.sessionID,
		MemberPackageID: f.packageID,
		Status:          model.StatusConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	tx, err := f.env.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	created, err := f.env.reservations.CreateTx(ctx, tx, dup)
	if err != nil {
		t.Fatalf("CreateTx: %v", err)
	}
	_ = tx.Rollback()
	if created {
		t.Fatal("insert succeeded despite an existing active reservation")
	}

	// Once the first reservation resolves, the same slot is insertable
	// again: only active statuses block.
	if _, err := f.env.ledger.CancelReservation(ctx, first.ID, f.memberID, false); err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}
	tx, err = f.env.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	created, err = f.env.reservations.CreateTx(ctx, tx, dup)
	if err != nil {
		t.Fatalf("CreateTx after cancel: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !created {
		t.Fatal("insert blocked by a cancelled reservation")
	}
	if dup.ID == 0 {
		t.Error("reservation ID was not populated")
	}
}

func TestConcurrentDuplicateBooking(t *testing.T) {
	f := newBookingFixture(t, 3, 5)
	ctx := context.Background()
	secondPkg := f.env.addPackage(t, f.memberID, 5, "2025-06-01", "2025-06-30")

	packages := []uint64{f.packageID, secondPkg}
	errs := make([]error, len(packages))
	var wg sync.WaitGroup
	for i, pkgID := range packages {
		wg.Add(1)
		go func(i int, pkgID uint64) {
			defer wg.Done()
			_, errs[i] = f.env.ledger.CreateReservation(ctx, f.memberID, f.sessionID, pkgID)
		}(i, pkgID)
	}
	wg.Wait()

	var won, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrDuplicateBooking):
			dup++
		default:
			t.Fatalf("unexpected booking error: %v", err)
		}
	}
	if won != 1 || dup != 1 {
		t.Fatalf("won = %d duplicate = %d, want exactly one of each", won, dup)
	}
	if got := f.env.mustSession(t, f.sessionID).CurrentBookings; got != 1 {
		t.Errorf("current_bookings = %d, want 1", got)
	}
	active, err := f.env.reservations.CountActiveBySession(ctx, f.sessionID)
	if err != nil {
		t.Fatalf("CountActiveBySession: %v", err)
	}
	if active != 1 {
		t.Errorf("active reservations = %d, want 1", active)
	}
}

func TestLedgerRejectsTerminalTransitions(t *testing.T) {
	f := newBookingFixture(t, 3, 5)
	ctx := context.Background()

	res, err := f.env.ledger.CreateReservation(ctx, f.memberID, f.sessionID, f.packageID)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if _, err := f.env.ledger.CancelReservation(ctx, res.ID, f.memberID, false); err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}
	// Cancellation is terminal: every lifecycle operation is rejected by
	// the transition table.
	if _, err := f.env.ledger.MarkReservationAsCompleted(ctx, res.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("complete err = %v, want ErrInvalidStateTransition", err)
	}
	if _, err := f.env.ledger.MarkReservationAsNoShow(ctx, res.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("no-show err = %v, want ErrInvalidStateTransition", err)
	}
	if _, err := f.env.ledger.MarkReservationAsMissed(ctx, res.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("missed err = %v, want ErrInvalidStateTransition", err)
	}
	if got := f.env.mustReservation(t, res.ID).Status; got != model.StatusCancelled {
		t.Errorf("status = %s, want %s", got, model.StatusCancelled)
	}
}

func TestConcurrentBookingLastSlot(t *testing.T) {
	f := newBookingFixture(t, 1, 5)
	ctx := context.Background()

	otherID := f.env.addMember(t, "Bob Stone", true, true)
	otherPkg := f.env.addPackage(t, otherID, 5, "2025-06-01", "2025-06-30")

	type attempt struct {
		memberID  uint64
		packageID uint64
	}
	attempts := []attempt{
		{f.memberID, f.packageID},
		{otherID, otherPkg},
	}
	errs := make([]error, len(attempts))
	var wg sync.WaitGroup
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a attempt) {
			defer wg.Done()
			_, errs[i] = f.env.ledger.CreateReservation(ctx, a.memberID, f.sessionID, a.packageID)
		}(i, a)
	}
	wg.Wait()

	var won, full int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrCapacityExceeded):
			full++
		default:
			t.Fatalf("unexpected booking error: %v", err)
		}
	}
	if won != 1 || full != 1 {
		t.Fatalf("won = %d full = %d, want exactly one of each", won, full)
	}
	if got := f.env.mustSession(t, f.sessionID).CurrentBookings; got != 1 {
		t.Errorf("current_bookings = %d, want 1", got)
	}
	active, err := f.env.reservations.CountActiveBySession(ctx, f.sessionID)
	if err != nil {
		t.Fatalf("CountActiveBySession: %v", err)
	}
	if active != 1 {
		t.Errorf("active reservations = %d, want 1", active)
	}
}
