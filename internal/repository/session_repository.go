// Package repository contains data access logic for the booking engine.
// This file defines persistence for sessions. A Session is a bookable
// time slot at a pool; its current_bookings counter is only ever moved
// through the conditional updates below so capacity can never be
// oversubscribed by concurrent writers.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"       // errors for sentinel definitions
	"time"         // time for timestamp conversion

	"github.com/aquapass/pool-reservation/internal/model"
)

// Timestamp layouts shared by all repositories.  Every temporal value is
// stored in the database as a string in UTC so the same queries behave
// identically on MySQL and on the sqlite backend used in tests.
const (
	DateLayout     = "2006-01-02"          // calendar dates
	DateTimeLayout = "2006-01-02 15:04:05" // full timestamps
	ClockLayout    = "15:04"               // times of day (templates, operating hours)
)

// FormatDateTime renders a timestamp in the DB storage format (UTC).
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}

// ParseDateTime parses a DB timestamp string back into a UTC time.Time.
func ParseDateTime(s string) (time.Time, error) {
	return time.ParseInLocation(DateTimeLayout, s, time.UTC)
}

// ErrSessionNotFound indicates that a session was not located in the DB.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepo manages persistence for sessions.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *SessionRepo) DB() *sql.DB { return r.db }

const sessionCols = `id, pool_id, session_date, starts_at, ends_at, capacity, current_bookings, is_education, is_active, created_at, updated_at`

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var s model.Session
	var startsAt, endsAt, createdAt, updatedAt string
	if err := row.Scan(
		&s.ID, &s.PoolID, &s.SessionDate, &startsAt, &endsAt,
		&s.Capacity, &s.CurrentBookings, &s.IsEducationSession, &s.IsActive,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if s.StartsAt, err = ParseDateTime(startsAt); err != nil {
		return nil, err
	}
	if s.EndsAt, err = ParseDateTime(endsAt); err != nil {
		return nil, err
	}
	// created_at/updated_at are informational; tolerate legacy rows with
	// unparseable values by leaving the zero time in place.
	if t, perr := ParseDateTime(createdAt); perr == nil {
		s.CreatedAt = t
	}
	if t, perr := ParseDateTime(updatedAt); perr == nil {
		s.UpdatedAt = t
	}
	return &s, nil
}

// CreateTx inserts a new session within the scope of an existing
// transaction and populates the generated ID on the provided model.
// The caller must commit or roll back the transaction.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	const q = `INSERT INTO sessions (pool_id, session_date, starts_at, ends_at, capacity, current_bookings, is_education, is_active, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := FormatDateTime(time.Now())
	res, err := tx.ExecContext(ctx, q,
		s.PoolID, s.SessionDate, FormatDateTime(s.StartsAt), FormatDateTime(s.EndsAt),
		s.Capacity, s.CurrentBookings, s.IsEducationSession, s.IsActive, now, now,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// Create inserts a session outside of any caller transaction.  Used by
// the administrative ad-hoc session endpoint.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := r.CreateTx(ctx, tx, s); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetByID loads a single session.  ErrSessionNotFound is returned when
// no row matches.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// GetByIDTx is GetByID within the scope of an existing transaction.
func (r *SessionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE id = ?`
	s, err := scanSession(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// ListForDate returns the active sessions on a calendar date, ordered by
// start time.  When poolID is non-nil only that pool's sessions are
// returned; when educationOnly is true only education sessions are
// returned.
func (r *SessionRepo) ListForDate(ctx context.Context, date string, poolID *uint64, educationOnly bool) ([]model.Session, error) {
	q := `SELECT ` + sessionCols + ` FROM sessions WHERE session_date = ? AND is_active = 1`
	args := []interface{}{date}
	if poolID != nil {
		q += ` AND pool_id = ?`
		args = append(args, *poolID)
	}
	if educationOnly {
		q += ` AND is_education = 1`
	}
	q += ` ORDER BY starts_at, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// IncrementBookingsTx bumps current_bookings by one, but only while the
// session is active and still below capacity.  The check and the
// increment are a single statement so two concurrent bookings can never
// both succeed on the last slot.  It returns false when the session was
// full (or inactive) at commit time.
func (r *SessionRepo) IncrementBookingsTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) (bool, error) {
	const q = `UPDATE sessions
	           SET current_bookings = current_bookings + 1, updated_at = ?
	           WHERE id = ? AND is_active = 1 AND current_bookings < capacity`
	res, err := tx.ExecContext(ctx, q, FormatDateTime(now), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// DecrementBookingsTx releases one unit of capacity.  The counter never
// goes below zero: the decrement is conditional on current_bookings > 0.
func (r *SessionRepo) DecrementBookingsTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) (bool, error) {
	const q = `UPDATE sessions
	           SET current_bookings = current_bookings - 1, updated_at = ?
	           WHERE id = ? AND current_bookings > 0`
	res, err := tx.ExecContext(ctx, q, FormatDateTime(now), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ExistsForSlotTx reports whether a session already exists for the given
// pool, date and start timestamp.  The session generator uses it inside
// its transaction to stay idempotent across repeated runs.
func (r *SessionRepo) ExistsForSlotTx(ctx context.Context, tx *sql.Tx, poolID uint64, date, startsAt string) (bool, error) {
	const q = `SELECT COUNT(1) FROM sessions WHERE pool_id = ? AND session_date = ? AND starts_at = ?`
	var n int
	if err := tx.QueryRowContext(ctx, q, poolID, date, startsAt).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Deactivate flips is_active off.  Sessions referenced by reservations
// are never deleted; deactivation removes them from availability while
// preserving history.
func (r *SessionRepo) Deactivate(ctx context.Context, id uint64, now time.Time) error {
	const q = `UPDATE sessions SET is_active = 0, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, FormatDateTime(now), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// CountUpcoming returns how many active sessions a pool still has
// starting after the given instant.  The generator uses it to decide
// whether the rolling horizon needs topping up.
func (r *SessionRepo) CountUpcoming(ctx context.Context, poolID uint64, from time.Time) (int, error) {
	const q = `SELECT COUNT(1) FROM sessions WHERE pool_id = ? AND is_active = 1 AND starts_at > ?`
	var n int
	err := r.db.QueryRowContext(ctx, q, poolID, FormatDateTime(from)).Scan(&n)
	return n, err
}
