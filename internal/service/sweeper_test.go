package service

import (
	"context"
	"testing"

	"github.com/aquapass/pool-reservation/internal/model"
)

func TestSweeperMarksMissedReservations(t *testing.T) {
	env := newTestEnv(t)
	env.setNow(ts(t, "2025-06-02", "08:00"))
	ctx := context.Background()

	poolID := env.addPool(t, "Main Pool")
	memberID := env.addMember(t, "Alice Waters", true, true)
	packageID := env.addPackage(t, memberID, 5, "2025-06-01", "2025-06-30")
	sessionID := env.addSession(t, poolID, "2025-06-02",
		ts(t, "2025-06-02", "10:00"), ts(t, "2025-06-02", "11:00"), 3, false)

	res, err := env.ledger.CreateReservation(ctx, memberID, sessionID, packageID)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	// Session is over, the member never checked in.
	env.setNow(ts(t, "2025-06-02", "12:00"))
	swept, failed, err := env.sweeper.ProcessMissedReservations(ctx)
	if err != nil {
		t.Fatalf("ProcessMissedReservations: %v", err)
	}
	if swept != 1 || failed != 0 {
		t.Fatalf("swept = %d failed = %d, want 1 and 0", swept, failed)
	}
	if got := env.mustReservation(t, res.ID).Status; got != model.StatusNoShow {
		t.Errorf("status = %s, want %s", got, model.StatusNoShow)
	}
	// No-show keeps the entitlement consumed.
	if got := env.mustPackage(t, packageID).SessionsRemaining; got != 4 {
		t.Errorf("sessions_remaining = %d, want 4", got)
	}
}

func TestSweeperIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.setNow(ts(t, "2025-06-02", "08:00"))
	ctx := context.Background()

	poolID := env.addPool(t, "Main Pool")
	memberID := env.addMember(t, "Alice Waters", true, true)
	packageID := env.addPackage(t, memberID, 5, "2025-06-01", "2025-06-30")
	sessionID := env.addSession(t, poolID, "2025-06-02",
		ts(t, "2025-06-02", "10:00"), ts(t, "2025-06-02", "11:00"), 3, false)
	if _, err := env.ledger.CreateReservation(ctx, memberID, sessionID, packageID); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	env.setNow(ts(t, "2025-06-02", "12:00"))
	if _, _, err := env.sweeper.ProcessMissedReservations(ctx); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	swept, failed, err := env.sweeper.ProcessMissedReservations(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if swept != 0 || failed != 0 {
		t.Errorf("second sweep swept = %d failed = %d, want 0 and 0", swept, failed)
	}
}

func TestSweeperLeavesUpcomingAndResolvedAlone(t *testing.T) {
	env := newTestEnv(t)
	env.setNow(ts(t, "2025-06-02", "08:00"))
	ctx := context.Background()

	poolID := env.addPool(t, "Main Pool")
	memberID := env.addMember(t, "Alice Waters", true, true)
	packageID := env.addPackage(t, memberID, 5, "2025-06-01", "2025-06-30")
	ended := env.addSession(t, poolID, "2025-06-02",
		ts(t, "2025-06-02", "10:00"), ts(t, "2025-06-02", "11:00"), 3, false)
	upcoming := env.addSession(t, poolID, "2025-06-02",
		ts(t, "2025-06-02", "18:00"), ts(t, "2025-06-02", "19:00"), 3, false)

	cancelledRes, err := env.ledger.CreateReservation(ctx, memberID, ended, packageID)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if _, err := env.ledger.CancelReservation(ctx, cancelledRes.ID, memberID, false); err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}
	upcomingRes, err := env.ledger.CreateReservation(ctx, memberID, upcoming, packageID)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	env.setNow(ts(t, "2025-06-02", "12:00"))
	swept, failed, err := env.sweeper.ProcessMissedReservations(ctx)
	if err != nil {
		t.Fatalf("ProcessMissedReservations: %v", err)
	}
	if swept != 0 || failed != 0 {
		t.Errorf("swept = %d failed = %d, want 0 and 0", swept, failed)
	}
	if got := env.mustReservation(t, cancelledRes.ID).Status; got != model.StatusCancelled {
		t.Errorf("cancelled reservation status = %s, want %s", got, model.StatusCancelled)
	}
	if got := env.mustReservation(t, upcomingRes.ID).Status; got != model.StatusConfirmed {
		t.Errorf("upcoming reservation status = %s, want %s", got, model.StatusConfirmed)
	}
}
