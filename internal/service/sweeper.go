package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/aquapass/pool-reservation/internal/repository"
)

// Sweeper reconciles reservations that were never honored: any
// reservation still active after its session ended is resolved to
// NO_SHOW.  Capacity and entitlement stay untouched; a no-show does not
// refund the session.  Each reservation is processed independently so a
// single bad record never halts the batch, and re-running the sweep is a
// no-op for already-resolved reservations.
type Sweeper struct {
	reservations *repository.ReservationRepo
	ledger       *Ledger
	now          func() time.Time
}

// NewSweeper constructs the sweeper.  Both dependencies must be non-nil.
func NewSweeper(reservations *repository.ReservationRepo, ledger *Ledger) *Sweeper {
	if reservations == nil || ledger == nil {
		panic("nil dependency passed to NewSweeper")
	}
	return &Sweeper{
		reservations: reservations,
		ledger:       ledger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ProcessMissedReservations runs one sweep pass.  It returns how many
// reservations were transitioned and how many failed; failed items are
// retried naturally on the next scheduled run.  Only a store-level
// failure on the initial scan is returned as an error.
func (s *Sweeper) ProcessMissedReservations(ctx context.Context) (swept, failed int, err error) {
	ids, err := s.reservations.ListMissed(ctx, s.now())
	if err != nil {
		return 0, 0, err
	}
	for _, id := range ids {
		if _, terr := s.ledger.MarkReservationAsMissed(ctx, id); terr != nil {
			// A concurrent cancel/complete already resolved it; that
			// is the idempotence we want, not a failure.
			if errors.Is(terr, ErrInvalidStateTransition) {
				continue
			}
			failed++
			log.Printf("sweeper: reservation %d: %v", id, terr)
			continue
		}
		swept++
	}
	return swept, failed, nil
}
