package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aquapass/pool-reservation/internal/model"
	"github.com/aquapass/pool-reservation/internal/repository"
)

// The suite runs against an in-memory sqlite database.  Every temporal
// column is stored as a UTC string with the shared repository layouts,
// so the exact SQL used in production runs unmodified here.  The pool is
// capped at a single connection: transactions then serialize at the
// pool, which keeps the concurrency tests deterministic while still
// exercising the conditional updates that guard the counters.
const testSchema = `
CREATE TABLE pools (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	open_time TEXT NOT NULL,
	close_time TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE members (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	full_name TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	can_swim INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pool_id INTEGER NOT NULL,
	session_date TEXT NOT NULL,
	starts_at TEXT NOT NULL,
	ends_at TEXT NOT NULL,
	capacity INTEGER NOT NULL,
	current_bookings INTEGER NOT NULL DEFAULT 0,
	is_education INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE member_packages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	member_id INTEGER NOT NULL,
	package_type_id INTEGER NOT NULL,
	purchase_date TEXT NOT NULL,
	valid_from TEXT NOT NULL,
	valid_until TEXT NOT NULL,
	sessions_remaining INTEGER NOT NULL,
	session_limit INTEGER NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	pool_id INTEGER,
	payment_status TEXT NOT NULL DEFAULT 'PAID',
	education_only INTEGER NOT NULL DEFAULT 0,
	requires_swim_ability INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE reservations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	member_id INTEGER NOT NULL,
	session_id INTEGER NOT NULL,
	member_package_id INTEGER NOT NULL,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE holidays (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	day TEXT NOT NULL,
	name TEXT NOT NULL
);
CREATE TABLE session_templates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pool_id INTEGER NOT NULL,
	weekday INTEGER NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	capacity INTEGER NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE education_windows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	weekday INTEGER NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1
);
`

// testEnv bundles the full engine wired against one test database.
type testEnv struct {
	db           *sql.DB
	sessions     *repository.SessionRepo
	packages     *repository.PackageRepo
	reservations *repository.ReservationRepo
	pools        *repository.PoolRepo
	members      *repository.MemberRepo
	calendar     *repository.CalendarRepo
	entitlements *EntitlementResolver
	ledger       *Ledger
	availability *AvailabilityCalculator
	sweeper      *Sweeper
	generator    *Generator
	checkin      *CheckinService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection total: the in-memory database lives on it, and
	// concurrent transactions queue at the pool instead of racing on
	// sqlite's file lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		db:           db,
		sessions:     repository.NewSessionRepo(db),
		packages:     repository.NewPackageRepo(db),
		reservations: repository.NewReservationRepo(db),
		pools:        repository.NewPoolRepo(db),
		members:      repository.NewMemberRepo(db),
		calendar:     repository.NewCalendarRepo(db),
	}
	env.entitlements = NewEntitlementResolver(env.packages, env.members)
	env.ledger = NewLedger(db, env.sessions, env.packages, env.reservations, env.members, env.entitlements)
	env.availability = NewAvailabilityCalculator(env.sessions, env.reservations, env.pools, env.calendar, env.entitlements)
	env.sweeper = NewSweeper(env.reservations, env.ledger)
	env.generator = NewGenerator(db, env.sessions, env.pools, env.calendar, 14, 0)
	env.checkin = NewCheckinService("test-secret", 5*time.Minute, env.reservations, env.sessions, env.ledger)
	return env
}

// setNow pins the clock of every service so tests control the passage
// of time instead of sleeping.
func (e *testEnv) setNow(now time.Time) {
	fn := func() time.Time { return now }
	e.entitlements.now = fn
	e.ledger.now = fn
	e.availability.now = fn
	e.sweeper.now = fn
	e.generator.now = fn
	e.checkin.now = fn
}

// ts builds a UTC timestamp from a date and a clock string.
func ts(t *testing.T, date, clock string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation(repository.DateLayout+" "+repository.ClockLayout, date+" "+clock, time.UTC)
	if err != nil {
		t.Fatalf("parse %s %s: %v", date, clock, err)
	}
	return v
}

func (e *testEnv) exec(t *testing.T, query string, args ...interface{}) {
	t.Helper()
	if _, err := e.db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func (e *testEnv) addPool(t *testing.T, name string) uint64 {
	t.Helper()
	res, err := e.db.Exec(`INSERT INTO pools (name, open_time, close_time, is_active) VALUES (?, '06:00', '22:00', 1)`, name)
	if err != nil {
		t.Fatalf("insert pool: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

func (e *testEnv) addMember(t *testing.T, name string, active, canSwim bool) uint64 {
	t.Helper()
	res, err := e.db.Exec(`INSERT INTO members (full_name, is_active, can_swim) VALUES (?, ?, ?)`, name, active, canSwim)
	if err != nil {
		t.Fatalf("insert member: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

func (e *testEnv) addSession(t *testing.T, poolID uint64, date string, startsAt, endsAt time.Time, capacity int, education bool) uint64 {
	t.Helper()
	now := repository.FormatDateTime(startsAt)
	res, err := e.db.Exec(
		`INSERT INTO sessions (pool_id, session_date, starts_at, ends_at, capacity, current_bookings, is_education, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, 1, ?, ?)`,
		poolID, date, repository.FormatDateTime(startsAt), repository.FormatDateTime(endsAt), capacity, education, now, now,
	)
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

func (e *testEnv) addPackage(t *testing.T, memberID uint64, remaining int, validFrom, validUntil string) uint64 {
	t.Helper()
	res, err := e.db.Exec(
		`INSERT INTO member_packages (member_id, package_type_id, purchase_date, valid_from, valid_until, sessions_remaining, session_limit, active, pool_id, payment_status, education_only, requires_swim_ability, created_at, updated_at)
		 VALUES (?, 1, ?, ?, ?, ?, ?, 1, NULL, 'PAID', 0, 0, ?, ?)`,
		memberID, validFrom, validFrom, validUntil, remaining, remaining,
		validFrom+" 00:00:00", validFrom+" 00:00:00",
	)
	if err != nil {
		t.Fatalf("insert package: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

func (e *testEnv) mustSession(t *testing.T, id uint64) *model.Session {
	t.Helper()
	s, err := e.sessions.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load session %d: %v", id, err)
	}
	return s
}

func (e *testEnv) mustPackage(t *testing.T, id uint64) *model.MemberPackage {
	t.Helper()
	p, err := e.packages.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load package %d: %v", id, err)
	}
	return p
}

func (e *testEnv) mustReservation(t *testing.T, id uint64) *model.Reservation {
	t.Helper()
	r, err := e.reservations.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load reservation %d: %v", id, err)
	}
	return r
}
