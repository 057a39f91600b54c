package service

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/aquapass/pool-reservation/internal/model"
	"github.com/aquapass/pool-reservation/internal/repository"
)

// Generator materializes concrete sessions from recurring templates so a
// rolling horizon of bookable slots always exists.  Generation is
// idempotent: a pool/date/start-time combination is created at most
// once, so the job can run on a timer and on demand without duplicating
// sessions.  Holidays in the horizon are skipped; holidays declared
// after sessions were generated are reported, never silently deleted.
type Generator struct {
	db          *sql.DB
	sessions    *repository.SessionRepo
	pools       *repository.PoolRepo
	calendar    *repository.CalendarRepo
	horizonDays int
	minUpcoming int
	now         func() time.Time
}

// NewGenerator constructs the session generator.  horizonDays controls
// how far ahead sessions are materialized; minUpcoming is the per-pool
// threshold below which EnsureMinimumSessionAvailability tops up.
func NewGenerator(db *sql.DB, sessions *repository.SessionRepo, pools *repository.PoolRepo, calendar *repository.CalendarRepo, horizonDays, minUpcoming int) *Generator {
	if db == nil || sessions == nil || pools == nil || calendar == nil {
		panic("nil dependency passed to NewGenerator")
	}
	if horizonDays <= 0 {
		horizonDays = 14
	}
	return &Generator{
		db:          db,
		sessions:    sessions,
		pools:       pools,
		calendar:    calendar,
		horizonDays: horizonDays,
		minUpcoming: minUpcoming,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GenerateScheduledSessions materializes missing sessions for every
// active pool across the whole horizon.  Per-slot failures are logged
// and skipped; only a store-level failure loading the inputs aborts the
// run.  It returns the number of sessions created.
func (g *Generator) GenerateScheduledSessions(ctx context.Context) (int, error) {
	pools, err := g.pools.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	holidays, windows, err := g.loadCalendar(ctx)
	if err != nil {
		return 0, err
	}
	created := 0
	for i := range pools {
		n, err := g.generateForPool(ctx, &pools[i], holidays, windows)
		if err != nil {
			log.Printf("generator: pool %d: %v", pools[i].ID, err)
			continue
		}
		created += n
	}
	return created, nil
}

// EnsureMinimumSessionAvailability tops up only the pools whose count of
// upcoming sessions fell below the configured minimum.  Called at
// startup and available to staff on demand.
func (g *Generator) EnsureMinimumSessionAvailability(ctx context.Context) (int, error) {
	pools, err := g.pools.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	var holidays map[string]bool
	var windows []model.EducationWindow
	created := 0
	for i := range pools {
		n, err := g.sessions.CountUpcoming(ctx, pools[i].ID, g.now())
		if err != nil {
			log.Printf("generator: pool %d: %v", pools[i].ID, err)
			continue
		}
		if n >= g.minUpcoming {
			continue
		}
		if holidays == nil {
			// Load the calendar lazily; most runs find every pool topped up.
			if holidays, windows, err = g.loadCalendar(ctx); err != nil {
				return created, err
			}
		}
		made, err := g.generateForPool(ctx, &pools[i], holidays, windows)
		if err != nil {
			log.Printf("generator: pool %d: %v", pools[i].ID, err)
			continue
		}
		created += made
	}
	return created, nil
}

// ReportHolidayConflicts lists active sessions that sit on dates later
// declared holidays.  The generator never deletes them: members may
// already hold reservations, so the conflict is surfaced for staff to
// resolve.
func (g *Generator) ReportHolidayConflicts(ctx context.Context) ([]model.Session, error) {
	from := g.now().Format(repository.DateLayout)
	to := g.now().AddDate(0, 0, g.horizonDays).Format(repository.DateLayout)
	holidays, err := g.calendar.ListHolidaysBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var conflicts []model.Session
	for _, h := range holidays {
		sessions, err := g.sessions.ListForDate(ctx, h.Day, nil, false)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, sessions...)
	}
	if len(conflicts) > 0 {
		log.Printf("generator: %d session(s) fall on declared holidays and need staff resolution", len(conflicts))
	}
	return conflicts, nil
}

func (g *Generator) loadCalendar(ctx context.Context) (map[string]bool, []model.EducationWindow, error) {
	from := g.now().Format(repository.DateLayout)
	to := g.now().AddDate(0, 0, g.horizonDays).Format(repository.DateLayout)
	list, err := g.calendar.ListHolidaysBetween(ctx, from, to)
	if err != nil {
		return nil, nil, err
	}
	holidays := make(map[string]bool, len(list))
	for _, h := range list {
		holidays[h.Day] = true
	}
	windows, err := g.calendar.ListActiveEducationWindows(ctx)
	if err != nil {
		return nil, nil, err
	}
	return holidays, windows, nil
}

// generateForPool walks the horizon for one pool and materializes every
// missing slot its templates call for.
func (g *Generator) generateForPool(ctx context.Context, pool *model.Pool, holidays map[string]bool, windows []model.EducationWindow) (int, error) {
	templates, err := g.calendar.ListTemplatesForPool(ctx, pool.ID)
	if err != nil {
		return 0, err
	}
	if len(templates) == 0 {
		return 0, nil
	}
	created := 0
	start := g.now()
	for day := 0; day < g.horizonDays; day++ {
		date := start.AddDate(0, 0, day)
		dateStr := date.Format(repository.DateLayout)
		if holidays[dateStr] {
			continue
		}
		weekday := int(date.Weekday())
		for i := range templates {
			tmpl := &templates[i]
			if tmpl.Weekday != weekday {
				continue
			}
			// Templates outside the pool's operating hours are a
			// configuration mistake; skip them rather than create
			// unreachable sessions.
			if tmpl.StartTime < pool.OpenTime || tmpl.EndTime > pool.CloseTime {
				log.Printf("generator: template %d outside operating hours of pool %d, skipped", tmpl.ID, pool.ID)
				continue
			}
			made, err := g.materialize(ctx, pool.ID, dateStr, weekday, tmpl, windows)
			if err != nil {
				log.Printf("generator: pool %d date %s slot %s: %v", pool.ID, dateStr, tmpl.StartTime, err)
				continue
			}
			if made {
				created++
			}
		}
	}
	return created, nil
}

// materialize creates one session for a template slot unless it already
// exists.  The existence check and the insert share a transaction so
// concurrent generator runs stay idempotent.
func (g *Generator) materialize(ctx context.Context, poolID uint64, date string, weekday int, tmpl *model.SessionTemplate, windows []model.EducationWindow) (bool, error) {
	startsAt, err := combineDateClock(date, tmpl.StartTime)
	if err != nil {
		return false, err
	}
	endsAt, err := combineDateClock(date, tmpl.EndTime)
	if err != nil {
		return false, err
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	exists, err := g.sessions.ExistsForSlotTx(ctx, tx, poolID, date, repository.FormatDateTime(startsAt))
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	s := &model.Session{
		PoolID:             poolID,
		SessionDate:        date,
		StartsAt:           startsAt,
		EndsAt:             endsAt,
		Capacity:           tmpl.Capacity,
		IsEducationSession: insideEducationWindow(weekday, tmpl, windows),
		IsActive:           true,
	}
	if err := g.sessions.CreateTx(ctx, tx, s); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

// insideEducationWindow reports whether a template slot falls entirely
// inside an active education window on the same weekday.  Clock strings
// compare lexicographically because they share the "15:04" layout.
func insideEducationWindow(weekday int, tmpl *model.SessionTemplate, windows []model.EducationWindow) bool {
	for i := range windows {
		w := &windows[i]
		if w.Weekday != weekday {
			continue
		}
		if tmpl.StartTime >= w.StartTime && tmpl.EndTime <= w.EndTime {
			return true
		}
	}
	return false
}

// combineDateClock builds a UTC timestamp from a calendar date and a
// time-of-day string.
func combineDateClock(date, clock string) (time.Time, error) {
	return time.ParseInLocation(repository.DateLayout+" "+repository.ClockLayout, date+" "+clock, time.UTC)
}
