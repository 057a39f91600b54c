package model

import "time"

// Session represents a concrete, capacity-bounded time slot at a pool on
// a specific calendar date.  Sessions are materialized ahead of time by
// the session generator or created by staff for ad-hoc events.  The
// CurrentBookings counter is owned exclusively by the reservation ledger
// and is adjusted through conditional updates so that it can never
// exceed Capacity or drop below zero.
//
// Fields:
//  ID                 – primary key identifier.
//  PoolID             – pool where the session takes place.
//  SessionDate        – calendar date ("2006-01-02", UTC).
//  StartsAt           – when the session begins.
//  EndsAt             – when the session ends (always after StartsAt).
//  Capacity           – maximum number of active reservations.
//  CurrentBookings    – number of active reservations counted against capacity.
//  IsEducationSession – true when the slot falls inside an education window.
//  IsActive           – sessions are deactivated rather than deleted.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Session struct {
	ID                 uint64    // sessions.id
	PoolID             uint64    // sessions.pool_id
	SessionDate        string    // sessions.session_date
	StartsAt           time.Time // sessions.starts_at
	EndsAt             time.Time // sessions.ends_at
	Capacity           int       // sessions.capacity
	CurrentBookings    int       // sessions.current_bookings
	IsEducationSession bool      // sessions.is_education
	IsActive           bool      // sessions.is_active
	CreatedAt          time.Time // sessions.created_at
	UpdatedAt          time.Time // sessions.updated_at
}

// RemainingCapacity returns how many more reservations the session can
// accept.  It never returns a negative number.
func (s *Session) RemainingCapacity() int {
	if s.CurrentBookings >= s.Capacity {
		return 0
	}
	return s.Capacity - s.CurrentBookings
}

// Overlaps reports whether two sessions occupy intersecting time ranges.
// Touching boundaries (one ends exactly when the other starts) do not
// count as an overlap.
func (s *Session) Overlaps(other *Session) bool {
	return s.StartsAt.Before(other.EndsAt) && other.StartsAt.Before(s.EndsAt)
}
