// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios with errors.Is instead of string matching. Not-found
// sentinels for individual entities live next to their repositories.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, such as cancelling another member's
// reservation without staff privileges. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as deactivating a session that would leave
// its booking counter inconsistent. Handlers should translate this into
// an HTTP 409 response.
var ErrConflict = errors.New("conflict")
