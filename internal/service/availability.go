package service

import (
	"context"
	"time"

	"github.com/aquapass/pool-reservation/internal/model"
	"github.com/aquapass/pool-reservation/internal/repository"
)

// Reason codes explaining an empty availability result.  An unusable
// package is not an error on the query path: the member simply has
// nothing to book, and the caller is told why.
const (
	ReasonHoliday          = "HOLIDAY"
	ReasonPackageInactive  = "PACKAGE_INACTIVE"
	ReasonPackageExhausted = "PACKAGE_EXHAUSTED"
	ReasonMemberIneligible = "MEMBER_INELIGIBLE"
)

// AvailableSession is a bookable slot annotated with how much capacity
// is left, shaped for API consumers.
type AvailableSession struct {
	ID                 uint64 `json:"id"`
	PoolID             uint64 `json:"pool_id"`
	SessionDate        string `json:"session_date"`
	StartsAt           string `json:"starts_at"`
	EndsAt             string `json:"ends_at"`
	Capacity           int    `json:"capacity"`
	RemainingCapacity  int    `json:"remaining_capacity"`
	IsEducationSession bool   `json:"is_education_session"`
}

// AvailabilityCalculator intersects package entitlements with session
// capacity and calendar rules to produce the list of sessions a member
// can actually book on a date.
type AvailabilityCalculator struct {
	sessions     *repository.SessionRepo
	reservations *repository.ReservationRepo
	pools        *repository.PoolRepo
	calendar     *repository.CalendarRepo
	entitlements *EntitlementResolver
	now          func() time.Time
}

// NewAvailabilityCalculator constructs the calculator.  All dependencies
// must be non-nil.
func NewAvailabilityCalculator(sessions *repository.SessionRepo, reservations *repository.ReservationRepo, pools *repository.PoolRepo, calendar *repository.CalendarRepo, entitlements *EntitlementResolver) *AvailabilityCalculator {
	if sessions == nil || reservations == nil || pools == nil || calendar == nil || entitlements == nil {
		panic("nil dependency passed to NewAvailabilityCalculator")
	}
	return &AvailabilityCalculator{
		sessions:     sessions,
		reservations: reservations,
		pools:        pools,
		calendar:     calendar,
		entitlements: entitlements,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ListAvailableSessions returns the sessions the member can book on the
// given date ("2006-01-02") using the given package.  A session is
// offered when it has free capacity, has not started yet, sits inside
// its pool's operating hours, matches the package's pool/education
// restrictions, and does not collide with another active reservation
// the member holds at an overlapping time that day.  When nothing is
// bookable for a structural reason (holiday, unusable package) the
// reason code explains the empty result; unknown member or package
// surfaces as a not-found error.
func (a *AvailabilityCalculator) ListAvailableSessions(ctx context.Context, memberID, memberPackageID uint64, date string) ([]AvailableSession, string, error) {
	pkg, member, err := a.entitlements.Resolve(ctx, memberID, memberPackageID)
	if err != nil {
		return nil, "", err
	}

	holiday, err := a.calendar.IsHoliday(ctx, date)
	if err != nil {
		return nil, "", err
	}
	if holiday {
		return []AvailableSession{}, ReasonHoliday, nil
	}

	if !member.IsActive || (pkg.RequiresSwimAbility && !member.CanSwim) {
		return []AvailableSession{}, ReasonMemberIneligible, nil
	}
	if !pkg.Active || pkg.PaymentStatus != model.PaymentPaid || !pkg.ValidOn(date) {
		return []AvailableSession{}, ReasonPackageInactive, nil
	}
	if pkg.SessionsRemaining <= 0 {
		return []AvailableSession{}, ReasonPackageExhausted, nil
	}

	candidates, err := a.sessions.ListForDate(ctx, date, pkg.PoolID, pkg.EducationOnly)
	if err != nil {
		return nil, "", err
	}
	booked, err := a.reservations.ListActiveSessionsByMemberOnDate(ctx, memberID, date)
	if err != nil {
		return nil, "", err
	}
	activePools, err := a.pools.ListActive(ctx)
	if err != nil {
		return nil, "", err
	}
	hours := make(map[uint64]model.Pool, len(activePools))
	for _, p := range activePools {
		hours[p.ID] = p
	}

	now := a.now()
	out := make([]AvailableSession, 0, len(candidates))
	for i := range candidates {
		s := &candidates[i]
		if s.RemainingCapacity() == 0 {
			continue
		}
		if !s.StartsAt.After(now) {
			continue
		}
		// Sessions at inactive pools or outside the pool's operating
		// hours are never offered, even when a slot was created by
		// mistake.
		pool, ok := hours[s.PoolID]
		if !ok {
			continue
		}
		if s.StartsAt.Format(repository.ClockLayout) < pool.OpenTime ||
			s.EndsAt.Format(repository.ClockLayout) > pool.CloseTime {
			continue
		}
		if overlapsAny(s, booked) {
			continue
		}
		out = append(out, AvailableSession{
			ID:                 s.ID,
			PoolID:             s.PoolID,
			SessionDate:        s.SessionDate,
			StartsAt:           s.StartsAt.Format(time.RFC3339),
			EndsAt:             s.EndsAt.Format(time.RFC3339),
			Capacity:           s.Capacity,
			RemainingCapacity:  s.RemainingCapacity(),
			IsEducationSession: s.IsEducationSession,
		})
	}
	return out, "", nil
}

// overlapsAny reports whether the candidate session collides with any of
// the member's already-booked sessions.  A booking for the candidate
// itself counts as a collision, which also keeps duplicates out of the
// availability list.
func overlapsAny(candidate *model.Session, booked []model.Session) bool {
	for i := range booked {
		if booked[i].ID == candidate.ID || candidate.Overlaps(&booked[i]) {
			return true
		}
	}
	return false
}
