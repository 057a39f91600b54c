package service

import (
	"context"
	"time"

	"github.com/aquapass/pool-reservation/internal/model"
	"github.com/aquapass/pool-reservation/internal/repository"
)

// EntitlementResolver decides whether a purchased package still grants a
// bookable session for a member on a given date and session.  It is
// shared by the availability calculator (query path) and the
// reservation ledger (booking path) so both apply identical rules.
type EntitlementResolver struct {
	packages *repository.PackageRepo
	members  *repository.MemberRepo
	now      func() time.Time
}

// NewEntitlementResolver constructs a resolver over the given
// repositories.
func NewEntitlementResolver(packages *repository.PackageRepo, members *repository.MemberRepo) *EntitlementResolver {
	if packages == nil || members == nil {
		panic("nil repository passed to NewEntitlementResolver")
	}
	return &EntitlementResolver{
		packages: packages,
		members:  members,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Resolve loads a package and the owning member's snapshot, verifying
// ownership.  It returns repository.ErrForbidden when the package
// belongs to a different member.
func (e *EntitlementResolver) Resolve(ctx context.Context, memberID, packageID uint64) (*model.MemberPackage, *model.Member, error) {
	pkg, err := e.packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, nil, err
	}
	if pkg.MemberID != memberID {
		return nil, nil, repository.ErrForbidden
	}
	member, err := e.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, nil, err
	}
	return pkg, member, nil
}

// Usable reports why a package cannot currently be used on the given
// date, independent of any particular session.  It returns
// ErrEntitlementExhausted for every rejection so booking callers surface
// one consistent failure mode; the availability calculator inspects the
// package fields directly when it needs a finer-grained reason code.
func (e *EntitlementResolver) Usable(pkg *model.MemberPackage, member *model.Member, date string) error {
	if !member.IsActive {
		return ErrEntitlementExhausted
	}
	if !pkg.Active || pkg.PaymentStatus != model.PaymentPaid {
		return ErrEntitlementExhausted
	}
	if !pkg.ValidOn(date) {
		return ErrEntitlementExhausted
	}
	if pkg.SessionsRemaining <= 0 {
		return ErrEntitlementExhausted
	}
	return nil
}

// CompatibleWithSession checks the session-level restrictions a package
// carries: pool binding, education-only booking and the swimming-ability
// requirement.
func (e *EntitlementResolver) CompatibleWithSession(pkg *model.MemberPackage, member *model.Member, sess *model.Session) error {
	if pkg.PoolID != nil && *pkg.PoolID != sess.PoolID {
		return ErrEntitlementExhausted
	}
	if pkg.EducationOnly && !sess.IsEducationSession {
		return ErrEntitlementExhausted
	}
	if pkg.RequiresSwimAbility && !member.CanSwim {
		return ErrEntitlementExhausted
	}
	return nil
}
