// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// reservation workflow and handlers to distinguish between different
// failure scenarios without inspecting SQL error strings themselves.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as hard-deleting a show that still
// has reservations.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ErrRSVPNotFound indicates that a reservation was not located in the DB.
var ErrRSVPNotFound = errors.New("rsvp not found")

// ErrPaymentNotFound indicates that no payment matches the given
// reference or id.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrEmailExists is returned on user creation when the email is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrTitleExists is returned on show creation when the artist already
// has a show with the same title.
var ErrTitleExists = errors.New("show title already exists for this artist")

// ErrDuplicateRSVP is returned when an insert collides with the
// UNIQUE(user_id, show_id) constraint on rsvps.  The workflow treats it
// as a concurrent duplicate registration, not a crash.
var ErrDuplicateRSVP = errors.New("rsvp already exists for this user and show")

// ErrDuplicatePayment is returned when a payment insert collides with
// the pending-uniqueness index on payments: at most one PENDING row may
// exist per (user_id, show_id).  The workflow treats it as a concurrent
// duplicate initiation.
var ErrDuplicatePayment = errors.New("a pending payment already exists for this user and show")
