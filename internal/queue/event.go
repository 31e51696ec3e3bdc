// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair moving them.
package queue

// RSVPConfirmedEvent is published when a reservation reaches REGISTERED,
// either through the free direct path or after a confirmed payment.  It
// contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type RSVPConfirmedEvent struct {
    RSVPID      uint64 `json:"rsvp_id"`
    UserID      uint64 `json:"user_id"`
    ShowID      uint64 `json:"show_id"`
    ShowTitle   string `json:"show_title"`
    Status      string `json:"status"`
    ConfirmedAt string `json:"confirmed_at"`
}

// PaymentSettledEvent is published when a payment leaves PENDING, in
// either direction.  Exactly one settle event exists per payment since
// the status transition itself is applied at most once.
type PaymentSettledEvent struct {
    PaymentID   uint64 `json:"payment_id"`
    Reference   string `json:"reference"`
    Status      string `json:"status"`
    AmountCents uint32 `json:"amount_cents"`
    UserID      uint64 `json:"user_id"`
    ShowID      uint64 `json:"show_id"`
    RSVPID      uint64 `json:"rsvp_id"`
    SettledAt   string `json:"settled_at"`
}

// Queue names.  Both queues are declared durable by publisher and
// consumer alike so declaration order does not matter.
const (
    RSVPConfirmedQueue  = "rsvp.confirmed"
    PaymentSettledQueue = "payment.settled"
)
