// Package scheduler drives the background jobs of the booking engine:
// the missed-reservation sweeper and the session generator.  Both jobs
// are idempotent, so overlapping runs (for example a manual trigger
// from the admin API racing a scheduled tick) are harmless.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/aquapass/pool-reservation/internal/service"
)

// Runner owns the tickers for the periodic jobs.  Start launches one
// goroutine per job; Stop cancels them and waits for the current
// iteration to finish.
type Runner struct {
	Sweeper   *service.Sweeper
	Generator *service.Generator

	SweepInterval    time.Duration
	GenerateInterval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner constructs a Runner.  Intervals must be positive.
func NewRunner(sweeper *service.Sweeper, generator *service.Generator, sweepInterval, generateInterval time.Duration) *Runner {
	if sweeper == nil || generator == nil {
		panic("nil dependency passed to NewRunner")
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}
	if generateInterval <= 0 {
		generateInterval = 24 * time.Hour
	}
	return &Runner{
		Sweeper:          sweeper,
		Generator:        generator,
		SweepInterval:    sweepInterval,
		GenerateInterval: generateInterval,
	}
}

// Start launches the background jobs.  An initial generation pass runs
// immediately so a freshly deployed instance has sessions to sell
// before the first scheduled tick.  Job failures are logged and the
// loop keeps running; a broken database is a problem for the next tick,
// not a reason to stop sweeping forever.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)

		if _, err := r.Generator.EnsureMinimumSessionAvailability(ctx); err != nil {
			log.Printf("scheduler: initial generation: %v", err)
		}

		sweepTick := time.NewTicker(r.SweepInterval)
		genTick := time.NewTicker(r.GenerateInterval)
		defer sweepTick.Stop()
		defer genTick.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-sweepTick.C:
				swept, failed, err := r.Sweeper.ProcessMissedReservations(ctx)
				if err != nil {
					log.Printf("scheduler: sweep: %v", err)
					continue
				}
				if swept > 0 || failed > 0 {
					log.Printf("scheduler: sweep done swept=%d failed=%d", swept, failed)
				}
			case <-genTick.C:
				created, err := r.Generator.GenerateScheduledSessions(ctx)
				if err != nil {
					log.Printf("scheduler: generate: %v", err)
					continue
				}
				if created > 0 {
					log.Printf("scheduler: generated %d sessions", created)
				}
				if conflicts, err := r.Generator.ReportHolidayConflicts(ctx); err == nil && len(conflicts) > 0 {
					log.Printf("scheduler: %d active sessions fall on declared holidays", len(conflicts))
				}
			}
		}
	}()
}

// Stop cancels the job loop and blocks until it exits.
func (r *Runner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}
