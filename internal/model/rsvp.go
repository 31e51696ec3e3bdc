package model

import "time"

// RSVP status values.  A reservation is created PENDING when it awaits
// payment and REGISTERED when the claim on a ticket is final.  A
// CANCELLED row is kept and revived on re-registration instead of
// inserting a duplicate, which preserves the one-row-per-(user,show)
// uniqueness constraint.
const (
    RSVPStatusPending    = "PENDING"
    RSVPStatusRegistered = "REGISTERED"
    RSVPStatusCancelled  = "CANCELLED"
)

// RSVP records a user's claim on one ticket for a show.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – user who reserved.
//  ShowID    – show being reserved.
//  Status    – PENDING, REGISTERED or CANCELLED.
//  PaymentID – linked payment when the reservation was paid (nullable).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type RSVP struct {
    ID        uint64    // rsvps.id
    UserID    uint64    // rsvps.user_id
    ShowID    uint64    // rsvps.show_id
    Status    string    // rsvps.status
    PaymentID *uint64   // rsvps.payment_id (nullable)
    CreatedAt time.Time // rsvps.created_at
    UpdatedAt time.Time // rsvps.updated_at
}
