// This file defines read access to the scheduling calendar: holidays,
// recurring session templates and education time windows. The session
// generator and the availability calculator are the only consumers.
package repository

import (
	"context"
	"database/sql"

	"github.com/aquapass/pool-reservation/internal/model"
)

// CalendarRepo provides read access to holidays, session templates and
// education windows.
type CalendarRepo struct {
	db *sql.DB
}

// NewCalendarRepo returns a new CalendarRepo bound to the given database.
func NewCalendarRepo(db *sql.DB) *CalendarRepo { return &CalendarRepo{db: db} }

// IsHoliday reports whether the given date ("2006-01-02") is a holiday.
func (r *CalendarRepo) IsHoliday(ctx context.Context, date string) (bool, error) {
	const q = `SELECT COUNT(1) FROM holidays WHERE day = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, date).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListHolidaysBetween returns the holiday dates within [from, to]
// inclusive, ordered ascending.  The generator loads the horizon's
// holidays once instead of probing day by day.
func (r *CalendarRepo) ListHolidaysBetween(ctx context.Context, from, to string) ([]model.Holiday, error) {
	const q = `SELECT id, day, name FROM holidays WHERE day >= ? AND day <= ? ORDER BY day`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	holidays := make([]model.Holiday, 0)
	for rows.Next() {
		var h model.Holiday
		if err := rows.Scan(&h.ID, &h.Day, &h.Name); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// ListTemplatesForPool returns the active recurring slot templates for a
// pool, ordered by weekday then start time.
func (r *CalendarRepo) ListTemplatesForPool(ctx context.Context, poolID uint64) ([]model.SessionTemplate, error) {
	const q = `SELECT id, pool_id, weekday, start_time, end_time, capacity, is_active
	           FROM session_templates WHERE pool_id = ? AND is_active = 1
	           ORDER BY weekday, start_time`
	rows, err := r.db.QueryContext(ctx, q, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	templates := make([]model.SessionTemplate, 0)
	for rows.Next() {
		var t model.SessionTemplate
		if err := rows.Scan(&t.ID, &t.PoolID, &t.Weekday, &t.StartTime, &t.EndTime, &t.Capacity, &t.IsActive); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// ListActiveEducationWindows returns every active education window.
func (r *CalendarRepo) ListActiveEducationWindows(ctx context.Context) ([]model.EducationWindow, error) {
	const q = `SELECT id, weekday, start_time, end_time, is_active
	           FROM education_windows WHERE is_active = 1
	           ORDER BY weekday, start_time`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	windows := make([]model.EducationWindow, 0)
	for rows.Next() {
		var w model.EducationWindow
		if err := rows.Scan(&w.ID, &w.Weekday, &w.StartTime, &w.EndTime, &w.IsActive); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}
