package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aquapass/pool-reservation/internal/model"
)

// ErrReservationNotFound indicates that a reservation was not located in the DB.
var ErrReservationNotFound = errors.New("reservation not found")

// ReservationRepo provides persistence for reservations.  Reservations
// are append-only apart from their status and updated_at columns: every
// lifecycle change is a compare-and-set on the current status so racing
// writers (a member cancelling while the sweeper expires, say) can never
// both apply their side effects.  All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying sql.DB for callers that need to begin
// transactions spanning multiple repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationCols = `id, member_id, session_id, member_package_id, status, created_at, updated_at`

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var createdAt, updatedAt string
	if err := row.Scan(
		&res.ID, &res.MemberID, &res.SessionID, &res.MemberPackageID, &res.Status,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if res.CreatedAt, err = ParseDateTime(createdAt); err != nil {
		return nil, err
	}
	if res.UpdatedAt, err = ParseDateTime(updatedAt); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction, unless the member already holds an active (PENDING or
// CONFIRMED) reservation for the session.  The duplicate check is part
// of the INSERT statement itself rather than a separate read: on MySQL
// the SELECT side of an INSERT takes shared locks on the rows it
// examines, so the check observes the latest committed state instead of
// the transaction's snapshot and concurrent bookings cannot both pass
// it.  It returns false, inserting nothing, when an active duplicate
// exists; on success the generated ID is populated on the provided
// model.  The caller must commit or roll back the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) (bool, error) {
	const q = `INSERT INTO reservations (member_id, session_id, member_package_id, status, created_at, updated_at)
	           SELECT ?, ?, ?, ?, ?, ?
	           FROM (SELECT 1) AS seed
	           WHERE NOT EXISTS (
	               SELECT 1 FROM reservations
	               WHERE member_id = ? AND session_id = ? AND status IN ('PENDING', 'CONFIRMED')
	           )`
	result, err := tx.ExecContext(ctx, q,
		res.MemberID, res.SessionID, res.MemberPackageID, res.Status,
		FormatDateTime(res.CreatedAt), FormatDateTime(res.UpdatedAt),
		res.MemberID, res.SessionID,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return false, err
	}
	res.ID = uint64(id)
	return true, nil
}

// GetByID loads a single reservation.  ErrReservationNotFound is
// returned when no row matches.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// GetByIDTx is GetByID within the scope of an existing transaction.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// HasActiveForSessionTx reports whether the member already holds an
// active (PENDING or CONFIRMED) reservation for the session.  The
// booking path uses it to fail fast before touching any counters; the
// authoritative duplicate guard is the conditional insert in CreateTx,
// which re-checks at insert time.
func (r *ReservationRepo) HasActiveForSessionTx(ctx context.Context, tx *sql.Tx, memberID, sessionID uint64) (bool, error) {
	const q = `SELECT COUNT(1) FROM reservations
	           WHERE member_id = ? AND session_id = ? AND status IN ('PENDING', 'CONFIRMED')`
	var n int
	if err := tx.QueryRowContext(ctx, q, memberID, sessionID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStatusTx transitions a reservation to a new status, but only
// when its current status is one of the allowed source states.  The
// compare-and-set semantics make every transition race-safe: the caller
// learns from the return value whether it won the transition.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, to string, now time.Time, from ...string) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("at least one source status is required")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(from)), ",")
	q := `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status IN (` + placeholders + `)`
	args := make([]interface{}, 0, len(from)+3)
	args = append(args, to, FormatDateTime(now), id)
	for _, f := range from {
		args = append(args, f)
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListMissed returns the IDs of reservations that are still active even
// though their session ended before the cutoff.  The sweeper resolves
// each of them independently.
func (r *ReservationRepo) ListMissed(ctx context.Context, cutoff time.Time) ([]uint64, error) {
	const q = `SELECT r.id FROM reservations r
	           JOIN sessions s ON s.id = r.session_id
	           WHERE r.status IN ('PENDING', 'CONFIRMED') AND s.ends_at < ?
	           ORDER BY r.id`
	rows, err := r.db.QueryContext(ctx, q, FormatDateTime(cutoff))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListActiveSessionsByMemberOnDate returns the sessions (with their time
// ranges) for which the member holds an active reservation on the given
// date.  The availability calculator uses it to drop slots that would
// overlap an existing booking.
func (r *ReservationRepo) ListActiveSessionsByMemberOnDate(ctx context.Context, memberID uint64, date string) ([]model.Session, error) {
	const q = `SELECT s.id, s.pool_id, s.session_date, s.starts_at, s.ends_at, s.capacity, s.current_bookings, s.is_education, s.is_active, s.created_at, s.updated_at
	           FROM reservations r
	           JOIN sessions s ON s.id = r.session_id
	           WHERE r.member_id = ? AND r.status IN ('PENDING', 'CONFIRMED') AND s.session_date = ?`
	rows, err := r.db.QueryContext(ctx, q, memberID, date)
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

// ReservationDetail joins a reservation with its session and pool so
// members see where and when they are booked without extra lookups.
type ReservationDetail struct {
	ID                 uint64 `json:"id"`
	SessionID          uint64 `json:"session_id"`
	Status             string `json:"status"`
	PoolID             uint64 `json:"pool_id"`
	PoolName           string `json:"pool_name"`
	SessionDate        string `json:"session_date"`
	StartsAt           string `json:"starts_at"`
	EndsAt             string `json:"ends_at"`
	IsEducationSession bool   `json:"is_education_session"`
	CreatedAt          string `json:"created_at"`
}

// ListByMember returns all reservations for the given member along with
// session and pool details, newest first.  When no reservations exist,
// an empty slice is returned.
func (r *ReservationRepo) ListByMember(ctx context.Context, memberID uint64) ([]ReservationDetail, error) {
	const q = `SELECT r.id, r.session_id, r.status,
	                  p.id, p.name, s.session_date, s.starts_at, s.ends_at, s.is_education,
	                  r.created_at
	           FROM reservations r
	           JOIN sessions s ON s.id = r.session_id
	           JOIN pools p ON p.id = s.pool_id
	           WHERE r.member_id = ?
	           ORDER BY r.created_at DESC, r.id DESC`
	rows, err := r.db.QueryContext(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]ReservationDetail, 0)
	for rows.Next() {
		var d ReservationDetail
		var startsAt, endsAt, createdAt string
		if err := rows.Scan(
			&d.ID, &d.SessionID, &d.Status,
			&d.PoolID, &d.PoolName, &d.SessionDate, &startsAt, &endsAt, &d.IsEducationSession,
			&createdAt,
		); err != nil {
			return nil, err
		}
		// Convert DB timestamps to RFC3339 in UTC for API consumers.
		if t, perr := ParseDateTime(startsAt); perr == nil {
			d.StartsAt = t.Format(time.RFC3339)
		}
		if t, perr := ParseDateTime(endsAt); perr == nil {
			d.EndsAt = t.Format(time.RFC3339)
		}
		if t, perr := ParseDateTime(createdAt); perr == nil {
			d.CreatedAt = t.Format(time.RFC3339)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ListBySession returns every reservation referencing a session, newest
// first.  Staff use it to review attendance for a slot.
func (r *ReservationRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE session_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// CountActiveBySession returns the number of active reservations
// referencing a session.  Used by invariant checks and staff views to
// confirm current_bookings matches the ledger.
func (r *ReservationRepo) CountActiveBySession(ctx context.Context, sessionID uint64) (int, error) {
	const q = `SELECT COUNT(1) FROM reservations WHERE session_id = ? AND status IN ('PENDING', 'CONFIRMED')`
	var n int
	err := r.db.QueryRowContext(ctx, q, sessionID).Scan(&n)
	return n, err
}
