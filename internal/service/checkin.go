package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aquapass/pool-reservation/internal/model"
	"github.com/aquapass/pool-reservation/internal/repository"
)

// CheckinService issues and verifies the signed, time-windowed tokens a
// member presents at the pool entrance (QR-scan style).  Tokens are
// stateless: validity is fully determined by the HS256 signature, the
// embedded window and the live reservation status, so no token table has
// to be kept consistent with the ledger.  Consuming a token completes
// the reservation, and since completion is terminal a second scan fails
// cleanly instead of double-processing.
type CheckinService struct {
	secret       []byte
	grace        time.Duration
	reservations *repository.ReservationRepo
	sessions     *repository.SessionRepo
	ledger       *Ledger
	now          func() time.Time
}

// CheckinToken carries a signed token along with its validity window so
// clients can render expiry information without decoding the JWT.
type CheckinToken struct {
	Token      string    `json:"token"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
}

// NewCheckinService constructs the token service.  The grace duration is
// how long before session start a token becomes valid.
func NewCheckinService(secret string, grace time.Duration, reservations *repository.ReservationRepo, sessions *repository.SessionRepo, ledger *Ledger) *CheckinService {
	if reservations == nil || sessions == nil || ledger == nil {
		panic("nil dependency passed to NewCheckinService")
	}
	if grace <= 0 {
		grace = 5 * time.Minute
	}
	return &CheckinService{
		secret:       []byte(secret),
		grace:        grace,
		reservations: reservations,
		sessions:     sessions,
		ledger:       ledger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Issue produces a signed token for a confirmed reservation owned by the
// member.  The window opens a grace period before session start and
// closes exactly at session end; the signature binds the reservation,
// the member and the window so the token cannot be replayed for another
// booking or outside its slot.
func (s *CheckinService) Issue(ctx context.Context, reservationID, memberID uint64) (*CheckinToken, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.MemberID != memberID {
		return nil, repository.ErrForbidden
	}
	if res.Status != model.StatusConfirmed {
		return nil, ErrInvalidStateTransition
	}
	sess, err := s.sessions.GetByID(ctx, res.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.EndsAt.After(s.now()) {
		return nil, ErrInvalidSession
	}

	validFrom := sess.StartsAt.Add(-s.grace)
	validUntil := sess.EndsAt
	claims := jwt.MapClaims{
		"sub": memberID,
		"rid": reservationID,
		"sid": res.SessionID,
		"nbf": validFrom.Unix(),
		"exp": validUntil.Unix(),
		"iat": s.now().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &CheckinToken{Token: signed, ValidFrom: validFrom, ValidUntil: validUntil}, nil
}

// VerifyAndConsume validates a presented token and, on success,
// completes the bound reservation through the ledger.  Every failure is
// typed (bad signature, not yet valid, expired, or a reservation no
// longer in CONFIRMED) and performs no mutation, so a gate operator can
// tell a premature scan from a double scan.
func (s *CheckinService) VerifyAndConsume(ctx context.Context, token string) (*model.Reservation, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrTokenInvalid
		}
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	reservationID, ok := claimUint64(claims, "rid")
	if !ok {
		return nil, ErrTokenInvalid
	}
	memberID, ok := claimUint64(claims, "sub")
	if !ok {
		return nil, ErrTokenInvalid
	}

	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.MemberID != memberID {
		return nil, ErrTokenInvalid
	}
	if res.Status != model.StatusConfirmed {
		return nil, ErrInvalidStateTransition
	}
	return s.ledger.MarkReservationAsCompleted(ctx, reservationID)
}

// claimUint64 extracts a numeric claim.  MapClaims decodes JSON numbers
// as float64.
func claimUint64(claims jwt.MapClaims, key string) (uint64, bool) {
	v, ok := claims[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok || f < 0 {
		return 0, false
	}
	return uint64(f), true
}
