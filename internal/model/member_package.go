package model

import "time"

// Payment status values for member packages.  Only PAID packages grant
// bookable sessions.
const (
	PaymentPaid    = "PAID"
	PaymentPending = "PENDING"
	PaymentFailed  = "FAILED"
)

// MemberPackage is a purchased entitlement bundle granting a bounded
// number of session bookings.  SessionsRemaining is decremented by
// exactly one per successful reservation and restored by one when that
// reservation is cancelled; completion and no-show do not refund.  Both
// mutations are conditional updates at the storage layer so the counter
// can never go negative.
//
// Fields:
//  ID                  – primary key identifier.
//  MemberID            – owning member.
//  PackageTypeID       – catalogue entry this package was purchased from.
//  PurchaseDate        – calendar date of purchase ("2006-01-02").
//  ValidFrom           – first date the package may be used ("2006-01-02").
//  ValidUntil          – last date the package may be used ("2006-01-02").
//  SessionsRemaining   – bookings left; always >= 0.
//  SessionLimit        – total bookings granted by the package type.
//  Active              – cleared when exhausted or expired.
//  PoolID              – nil means the package is valid at any pool.
//  PaymentStatus       – PAID, PENDING or FAILED.
//  EducationOnly       – restricts bookings to education sessions.
//  RequiresSwimAbility – member must be able to swim to use this package.
type MemberPackage struct {
	ID                  uint64    // member_packages.id
	MemberID            uint64    // member_packages.member_id
	PackageTypeID       uint64    // member_packages.package_type_id
	PurchaseDate        string    // member_packages.purchase_date
	ValidFrom           string    // member_packages.valid_from
	ValidUntil          string    // member_packages.valid_until
	SessionsRemaining   int       // member_packages.sessions_remaining
	SessionLimit        int       // member_packages.session_limit
	Active              bool      // member_packages.active
	PoolID              *uint64   // member_packages.pool_id (nullable)
	PaymentStatus       string    // member_packages.payment_status
	EducationOnly       bool      // member_packages.education_only
	RequiresSwimAbility bool      // member_packages.requires_swim_ability
	CreatedAt           time.Time // member_packages.created_at
	UpdatedAt           time.Time // member_packages.updated_at
}

// ValidOn reports whether the given date (formatted "2006-01-02") falls
// inside the package's validity window.  Both bounds are inclusive.
func (p *MemberPackage) ValidOn(date string) bool {
	return date >= p.ValidFrom && date <= p.ValidUntil
}
