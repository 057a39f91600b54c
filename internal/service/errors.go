// Package service implements the booking engine: the reservation
// ledger, the availability calculator, the entitlement resolver, the
// missed-reservation sweeper, the session generator and the check-in
// token service. These sentinel values name every recoverable,
// caller-facing failure so handlers can report the specific reason
// (full, exhausted, duplicate, expired token) instead of a generic
// error.
package service

import (
	"errors"
	"fmt"
)

// ErrInvalidSession is returned when a booking targets a session that is
// unknown, inactive or already in the past.
var ErrInvalidSession = errors.New("session is not bookable")

// ErrCapacityExceeded is returned when the session is full at commit
// time.  The capacity check runs as part of the conditional increment,
// so this error is authoritative even under concurrent bookings.
var ErrCapacityExceeded = errors.New("session capacity exceeded")

// ErrEntitlementExhausted is returned when the package has no sessions
// remaining, is inactive, unpaid, outside its validity window, or is not
// compatible with the requested session (pool, education or
// swimming-ability restriction).
var ErrEntitlementExhausted = errors.New("package grants no booking for this session")

// ErrDuplicateBooking is returned when the member already holds an
// active reservation for the session.
var ErrDuplicateBooking = errors.New("active reservation already exists for this session")

// ErrInvalidStateTransition is returned when a lifecycle transition is
// attempted from a state that does not allow it, such as cancelling a
// completed reservation or double-scanning a check-in token.
var ErrInvalidStateTransition = errors.New("invalid reservation state transition")

// ErrTokenInvalid is the base error for all check-in token failures.
// ErrTokenExpired and ErrTokenNotYetValid wrap it so callers can match
// either the family or the specific reason with errors.Is.
var ErrTokenInvalid = errors.New("check-in token is invalid")

// ErrTokenExpired is returned when the token's validity window has
// closed (the session has ended).
var ErrTokenExpired = fmt.Errorf("%w: expired", ErrTokenInvalid)

// ErrTokenNotYetValid is returned when the token is presented before its
// validity window opens (grace period before session start).
var ErrTokenNotYetValid = fmt.Errorf("%w: not yet valid", ErrTokenInvalid)
