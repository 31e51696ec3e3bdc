package model

import "time"

// Show statuses are expressed through the Cancelled flag rather than an
// enum: a show is either live or soft-cancelled.  Soft-cancelled shows
// remain in the database because RSVPs and payments keep referencing
// them; only shows with no references may be hard-deleted.

// Show represents a published event by an artist.  Ticket inventory is
// tracked by AvailableTickets; a nil counter means unlimited capacity.
// TotalTickets records the original capacity so cancellations can never
// push the counter above it.
//
// Fields:
//  ID               – primary key identifier.
//  ArtistID         – publishing artist (users.id).
//  Title            – show title, unique per artist.
//  Description      – optional free-form description.
//  Location         – venue or address string.
//  Date             – scheduled date and time (UTC).
//  TicketPriceCents – ticket price in minor units; 0 means free.
//  TotalTickets     – original capacity (nil = unlimited).
//  AvailableTickets – remaining tickets (nil = unlimited); invariant
//                     0 <= available <= total when tracked.
//  Cancelled        – soft-cancellation flag.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Show struct {
    ID               uint64    // shows.id
    ArtistID         uint64    // shows.artist_id
    Title            string    // shows.title
    Description      string    // shows.description
    Location         string    // shows.location
    Date             time.Time // shows.date
    TicketPriceCents uint32    // shows.ticket_price_cents
    TotalTickets     *uint32   // shows.total_tickets (nullable)
    AvailableTickets *uint32   // shows.available_tickets (nullable)
    Cancelled        bool      // shows.cancelled
    CreatedAt        time.Time // shows.created_at
    UpdatedAt        time.Time // shows.updated_at
}

// Free reports whether the show requires no payment to attend.
func (s *Show) Free() bool { return s.TicketPriceCents == 0 }

// TracksInventory reports whether the show has a finite ticket counter.
func (s *Show) TracksInventory() bool { return s.AvailableTickets != nil }
