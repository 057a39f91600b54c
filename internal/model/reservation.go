package model

import "time"

// Reservation status values.  The set is closed: any value outside this
// list is rejected at the validation layer, and transitions are checked
// against the table encoded in CanTransition.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCompleted = "COMPLETED"
	StatusNoShow    = "NO_SHOW"
	StatusCancelled = "CANCELLED"
)

// Reservation records a member's claim on a single session, consumed
// from one of their purchased packages.  Reservations are never deleted;
// cancellation, completion and no-show are status transitions so the
// booking history stays auditable.
//
// Fields:
//  ID              – primary key identifier.
//  MemberID        – member who booked the session.
//  SessionID       – session being booked.
//  MemberPackageID – package the booking was consumed from.
//  Status          – lifecycle state (see status constants above).
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
	ID              uint64    // reservations.id
	MemberID        uint64    // reservations.member_id
	SessionID       uint64    // reservations.session_id
	MemberPackageID uint64    // reservations.member_package_id
	Status          string    // reservations.status
	CreatedAt       time.Time // reservations.created_at
	UpdatedAt       time.Time // reservations.updated_at
}

// IsActiveStatus reports whether a reservation in the given status still
// counts against session capacity.  PENDING and CONFIRMED are active;
// COMPLETED, NO_SHOW and CANCELLED are terminal.
func IsActiveStatus(status string) bool {
	return status == StatusPending || status == StatusConfirmed
}

// transitions encodes the legal reservation state machine:
//
//	PENDING   -> CONFIRMED, CANCELLED, NO_SHOW
//	CONFIRMED -> COMPLETED, NO_SHOW, CANCELLED
//
// NO_SHOW from PENDING exists for the sweeper: a reservation the member
// never confirmed nor attended is still resolved when its session ends.
// Terminal states allow no further transitions.
var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusNoShow, StatusCancelled},
}

// CanTransition reports whether moving a reservation from one status to
// another is legal.  Illegal transitions must be rejected with an
// invalid-state-transition error before any side effect is applied.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
