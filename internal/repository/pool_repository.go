// This file defines read access to pools and to the member snapshot the
// engine consumes from the external identity service. Both tables are
// owned by collaborators; the booking engine never writes them.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aquapass/pool-reservation/internal/model"
)

// ErrPoolNotFound indicates that a pool was not located in the DB.
var ErrPoolNotFound = errors.New("pool not found")

// ErrMemberNotFound indicates that a member was not located in the DB.
var ErrMemberNotFound = errors.New("member not found")

// PoolRepo provides read access to pool metadata.
type PoolRepo struct {
	db *sql.DB
}

// NewPoolRepo returns a new PoolRepo bound to the given database.
func NewPoolRepo(db *sql.DB) *PoolRepo { return &PoolRepo{db: db} }

// GetByID loads a single pool.  ErrPoolNotFound is returned when no row
// matches.
func (r *PoolRepo) GetByID(ctx context.Context, id uint64) (*model.Pool, error) {
	const q = `SELECT id, name, open_time, close_time, is_active FROM pools WHERE id = ?`
	var p model.Pool
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.OpenTime, &p.CloseTime, &p.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPoolNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActive returns all pools currently open for business, ordered by
// ID for deterministic generator runs.
func (r *PoolRepo) ListActive(ctx context.Context) ([]model.Pool, error) {
	const q = `SELECT id, name, open_time, close_time, is_active FROM pools WHERE is_active = 1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pools := make([]model.Pool, 0)
	for rows.Next() {
		var p model.Pool
		if err := rows.Scan(&p.ID, &p.Name, &p.OpenTime, &p.CloseTime, &p.IsActive); err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

// MemberRepo provides read access to the member snapshot.
type MemberRepo struct {
	db *sql.DB
}

// NewMemberRepo returns a new MemberRepo bound to the given database.
func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{db: db} }

// GetByID loads a member snapshot.  ErrMemberNotFound is returned when
// no row matches.
func (r *MemberRepo) GetByID(ctx context.Context, id uint64) (*model.Member, error) {
	const q = `SELECT id, full_name, is_active, can_swim FROM members WHERE id = ?`
	var m model.Member
	err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.FullName, &m.IsActive, &m.CanSwim)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByIDTx is GetByID within the scope of an existing transaction.
func (r *MemberRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Member, error) {
	const q = `SELECT id, full_name, is_active, can_swim FROM members WHERE id = ?`
	var m model.Member
	err := tx.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.FullName, &m.IsActive, &m.CanSwim)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
