package model

import "time"

// Payment status values.  A payment leaves PENDING exactly once, driven
// by a verified gateway webhook; SUCCESS and FAILED are terminal.
const (
    PaymentStatusPending = "PENDING"
    PaymentStatusSuccess = "SUCCESS"
    PaymentStatusFailed  = "FAILED"
)

// ProviderPaystack is the only supported payment provider.
const ProviderPaystack = "PAYSTACK"

// Payment tracks one hosted payment session at the gateway.  The
// Reference correlates the row with gateway-side records and webhook
// events; it is unique across all payments.
//
// Fields:
//  ID          – primary key identifier.
//  Provider    – gateway tag (PAYSTACK).
//  Reference   – opaque unique reference, format RSVP_<12 hex chars>.
//  AmountCents – amount in minor units, mirrors the show's ticket price
//                at creation time.
//  Status      – PENDING, SUCCESS or FAILED.
//  UserID      – paying user.
//  ShowID      – show the ticket is for.
//  RSVPID      – reservation this payment secures.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Payment struct {
    ID          uint64    // payments.id
    Provider    string    // payments.provider
    Reference   string    // payments.reference
    AmountCents uint32    // payments.amount_cents
    Status      string    // payments.status
    UserID      uint64    // payments.user_id
    ShowID      uint64    // payments.show_id
    RSVPID      uint64    // payments.rsvp_id
    CreatedAt   time.Time // payments.created_at
    UpdatedAt   time.Time // payments.updated_at
}
