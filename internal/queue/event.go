// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types published on reservation lifecycle changes.
const (
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationCompleted = "reservation.completed"
	EventReservationNoShow    = "reservation.no_show"
)

// reservationQueueName is the durable queue carrying all reservation
// lifecycle events.
const reservationQueueName = "reservation.events"

// ReservationEvent is published whenever a reservation changes state.
// It carries enough information for downstream consumers to notify the
// member or feed analytics without querying the primary database.
// Notification delivery is fire-and-forget: publish failures are logged
// and never block the ledger.
type ReservationEvent struct {
	Type          string `json:"type"`
	ReservationID uint64 `json:"reservation_id"`
	MemberID      uint64 `json:"member_id"`
	SessionID     uint64 `json:"session_id"`
	PoolName      string `json:"pool_name,omitempty"`
	SessionDate   string `json:"session_date,omitempty"`
	StartsAt      string `json:"starts_at,omitempty"`
	EndsAt        string `json:"ends_at,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}
