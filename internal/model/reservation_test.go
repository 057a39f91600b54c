package model

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusNoShow, StatusCompleted, false},
		{"BOGUS", StatusConfirmed, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestIsActiveStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusConfirmed} {
		if !IsActiveStatus(s) {
			t.Errorf("IsActiveStatus(%s) = false, want true", s)
		}
	}
	for _, s := range []string{StatusCompleted, StatusNoShow, StatusCancelled} {
		if IsActiveStatus(s) {
			t.Errorf("IsActiveStatus(%s) = true, want false", s)
		}
	}
}

func TestSessionOverlaps(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2025, 6, 2, h, 0, 0, 0, time.UTC) }
	a := Session{StartsAt: at(10), EndsAt: at(11)}

	if !a.Overlaps(&Session{StartsAt: at(10), EndsAt: at(11)}) {
		t.Error("identical ranges should overlap")
	}
	if !a.Overlaps(&Session{StartsAt: at(9), EndsAt: at(12)}) {
		t.Error("containing range should overlap")
	}
	// Touching boundaries are not an overlap: back-to-back sessions are
	// bookable together.
	if a.Overlaps(&Session{StartsAt: at(11), EndsAt: at(12)}) {
		t.Error("adjacent ranges should not overlap")
	}
	if a.Overlaps(&Session{StartsAt: at(8), EndsAt: at(10)}) {
		t.Error("earlier adjacent range should not overlap")
	}
}

func TestRemainingCapacity(t *testing.T) {
	s := Session{Capacity: 3, CurrentBookings: 1}
	if got := s.RemainingCapacity(); got != 2 {
		t.Errorf("RemainingCapacity = %d, want 2", got)
	}
	s.CurrentBookings = 5
	if got := s.RemainingCapacity(); got != 0 {
		t.Errorf("RemainingCapacity = %d, want 0 (never negative)", got)
	}
}
