// This file defines persistence for member packages. A member package
// is a purchased entitlement bundle; its sessions_remaining counter is
// adjusted exclusively through the conditional updates below so it can
// never go negative, mirroring how session capacity is protected.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aquapass/pool-reservation/internal/model"
)

// ErrPackageNotFound indicates that a member package was not located in the DB.
var ErrPackageNotFound = errors.New("member package not found")

// PackageRepo manages persistence for member packages.
type PackageRepo struct {
	db *sql.DB
}

// NewPackageRepo returns a new PackageRepo bound to the given database.
func NewPackageRepo(db *sql.DB) *PackageRepo { return &PackageRepo{db: db} }

const packageCols = `id, member_id, package_type_id, purchase_date, valid_from, valid_until, sessions_remaining, session_limit, active, pool_id, payment_status, education_only, requires_swim_ability, created_at, updated_at`

func scanPackage(row rowScanner) (*model.MemberPackage, error) {
	var p model.MemberPackage
	var poolID sql.NullInt64
	var createdAt, updatedAt string
	if err := row.Scan(
		&p.ID, &p.MemberID, &p.PackageTypeID, &p.PurchaseDate, &p.ValidFrom, &p.ValidUntil,
		&p.SessionsRemaining, &p.SessionLimit, &p.Active, &poolID, &p.PaymentStatus,
		&p.EducationOnly, &p.RequiresSwimAbility, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if poolID.Valid {
		id := uint64(poolID.Int64)
		p.PoolID = &id
	}
	if t, err := ParseDateTime(createdAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := ParseDateTime(updatedAt); err == nil {
		p.UpdatedAt = t
	}
	return &p, nil
}

// GetByID loads a single member package.  ErrPackageNotFound is
// returned when no row matches.
func (r *PackageRepo) GetByID(ctx context.Context, id uint64) (*model.MemberPackage, error) {
	const q = `SELECT ` + packageCols + ` FROM member_packages WHERE id = ?`
	p, err := scanPackage(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	return p, err
}

// GetByIDTx is GetByID within the scope of an existing transaction.
func (r *PackageRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.MemberPackage, error) {
	const q = `SELECT ` + packageCols + ` FROM member_packages WHERE id = ?`
	p, err := scanPackage(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	return p, err
}

// ConsumeSessionTx burns one entitlement unit.  The decrement is
// conditional on the package being active with sessions remaining, so a
// concurrent booking against the last unit leaves exactly one winner.
// It returns false when nothing could be consumed.
func (r *PackageRepo) ConsumeSessionTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) (bool, error) {
	const q = `UPDATE member_packages
	           SET sessions_remaining = sessions_remaining - 1, updated_at = ?
	           WHERE id = ? AND active = 1 AND sessions_remaining > 0`
	res, err := tx.ExecContext(ctx, q, FormatDateTime(now), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// DeactivateIfExhaustedTx clears the active flag once the last
// entitlement unit has been consumed.  Called in the same transaction as
// ConsumeSessionTx; a no-op while sessions remain.
func (r *PackageRepo) DeactivateIfExhaustedTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
	const q = `UPDATE member_packages SET active = 0, updated_at = ? WHERE id = ? AND sessions_remaining = 0`
	_, err := tx.ExecContext(ctx, q, FormatDateTime(now), id)
	return err
}

// RestoreSessionTx returns one entitlement unit to the package after a
// cancellation.  A package that went inactive through exhaustion is
// reactivated, but only while its validity window still covers today:
// cancelling against an expired package refunds the unit without making
// the package bookable again.
func (r *PackageRepo) RestoreSessionTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
	const restore = `UPDATE member_packages
	                 SET sessions_remaining = sessions_remaining + 1, updated_at = ?
	                 WHERE id = ?`
	if _, err := tx.ExecContext(ctx, restore, FormatDateTime(now), id); err != nil {
		return err
	}
	const reactivate = `UPDATE member_packages SET active = 1 WHERE id = ? AND valid_until >= ?`
	_, err := tx.ExecContext(ctx, reactivate, id, now.UTC().Format(DateLayout))
	return err
}
