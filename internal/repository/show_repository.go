// Package repository contains data access logic for the show domain.
// ShowRepo owns the shows table, including the available-ticket counter.
// Counter mutations are single conditional UPDATE statements so that two
// concurrent requests can never both take the last ticket or push the
// counter past the original capacity.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/show-ticketing/internal/model"
)

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *ShowRepo) DB() *sql.DB {
	return r.db
}

// Create inserts a new show and assigns the generated ID back to the
// struct.  AvailableTickets is seeded from TotalTickets.  A duplicate
// (artist_id, title) pair maps to ErrTitleExists.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	const q = `INSERT INTO shows (artist_id, title, description, location, date, ticket_price_cents, total_tickets, available_tickets)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		s.ArtistID, s.Title, s.Description, s.Location, s.Date,
		s.TicketPriceCents, nullableUint32(s.TotalTickets), nullableUint32(s.TotalTickets))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrTitleExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	// Query back the full row to populate defaults and timestamps.
	got, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// GetByID retrieves a show by its ID.  It returns ErrShowNotFound if
// there is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	const q = `SELECT id, artist_id, title, description, location, date, ticket_price_cents,
                      total_tickets, available_tickets, cancelled, created_at, updated_at
               FROM shows WHERE id = ?`
	var (
		s            model.Show
		total, avail sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.ArtistID, &s.Title, &s.Description, &s.Location, &s.Date,
		&s.TicketPriceCents, &total, &avail, &s.Cancelled, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	s.TotalTickets = uint32Ptr(total)
	s.AvailableTickets = uint32Ptr(avail)
	return &s, nil
}

// ShowDetail is a show row joined with its artist and the count of
// registered RSVPs, shaped for public browse responses.
type ShowDetail struct {
	ID               uint64    `json:"id"`
	ArtistID         uint64    `json:"artist_id"`
	ArtistName       string    `json:"artist_name"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Location         string    `json:"location"`
	Date             time.Time `json:"date"`
	TicketPriceCents uint32    `json:"ticket_price_cents"`
	AvailableTickets *uint32   `json:"available_tickets"`
	Cancelled        bool      `json:"cancelled"`
	RSVPCount        uint64    `json:"rsvp_count"`
}

// GetDetail loads a show together with its artist name and registered
// RSVP count.  Returns ErrShowNotFound when absent.
func (r *ShowRepo) GetDetail(ctx context.Context, id uint64) (*ShowDetail, error) {
	const q = `SELECT s.id, s.artist_id, u.name, s.title, s.description, s.location, s.date,
                      s.ticket_price_cents, s.available_tickets, s.cancelled,
                      (SELECT COUNT(*) FROM rsvps r WHERE r.show_id = s.id AND r.status = 'REGISTERED')
               FROM shows s
               JOIN users u ON u.id = s.artist_id
               WHERE s.id = ?`
	var (
		d     ShowDetail
		avail sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.ArtistID, &d.ArtistName, &d.Title, &d.Description, &d.Location, &d.Date,
		&d.TicketPriceCents, &avail, &d.Cancelled, &d.RSVPCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	d.AvailableTickets = uint32Ptr(avail)
	return &d, nil
}

// ShowFilter narrows List results.  Zero values mean "no constraint".
// Query matches against title and location with a LIKE pattern.
type ShowFilter struct {
	ArtistID uint64
	From     time.Time
	To       time.Time
	Query    string
	Page     int
	Limit    int
}

// List returns shows matching the filter ordered by date ascending,
// along with the total number of matching rows for pagination.
func (r *ShowRepo) List(ctx context.Context, f ShowFilter) ([]ShowDetail, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if f.ArtistID != 0 {
		where = append(where, "s.artist_id = ?")
		args = append(args, f.ArtistID)
	}
	if !f.From.IsZero() {
		where = append(where, "s.date >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "s.date <= ?")
		args = append(args, f.To)
	}
	if f.Query != "" {
		where = append(where, "(s.title LIKE ? OR s.location LIKE ?)")
		pat := "%" + f.Query + "%"
		args = append(args, pat, pat)
	}
	cond := strings.Join(where, " AND ")

	var total int
	countQ := "SELECT COUNT(*) FROM shows s WHERE " + cond
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit < 1 {
		limit = 10
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	q := `SELECT s.id, s.artist_id, u.name, s.title, s.description, s.location, s.date,
                 s.ticket_price_cents, s.available_tickets, s.cancelled,
                 (SELECT COUNT(*) FROM rsvps r WHERE r.show_id = s.id AND r.status = 'REGISTERED')
          FROM shows s
          JOIN users u ON u.id = s.artist_id
          WHERE ` + cond + `
          ORDER BY s.date ASC
          LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	result := make([]ShowDetail, 0)
	for rows.Next() {
		var (
			d     ShowDetail
			avail sql.NullInt64
		)
		if err := rows.Scan(
			&d.ID, &d.ArtistID, &d.ArtistName, &d.Title, &d.Description, &d.Location, &d.Date,
			&d.TicketPriceCents, &avail, &d.Cancelled, &d.RSVPCount,
		); err != nil {
			return nil, 0, err
		}
		d.AvailableTickets = uint32Ptr(avail)
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// DecrementTickets atomically takes one ticket from a show.  It only
// succeeds when the counter is tracked and currently positive; the
// condition lives in the statement itself so concurrent requests racing
// on the last ticket cannot both win.  It returns true when a ticket
// was taken.  Unlimited shows (NULL counter) always return false and
// callers must skip the call for them.
func (r *ShowRepo) DecrementTickets(ctx context.Context, showID uint64) (bool, error) {
	const q = `UPDATE shows SET available_tickets = available_tickets - 1
               WHERE id = ? AND available_tickets IS NOT NULL AND available_tickets > 0`
	res, err := r.db.ExecContext(ctx, q, showID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IncrementTickets atomically releases one ticket back to a show,
// capped at the original capacity so repeated or malformed cancel calls
// cannot drift the counter above total_tickets.  It is a no-op for
// unlimited shows.
func (r *ShowRepo) IncrementTickets(ctx context.Context, showID uint64) error {
	const q = `UPDATE shows
               SET available_tickets = LEAST(available_tickets + 1, COALESCE(total_tickets, available_tickets + 1))
               WHERE id = ? AND available_tickets IS NOT NULL`
	_, err := r.db.ExecContext(ctx, q, showID)
	return err
}

// HasReferences reports whether any RSVP or payment still references
// the show.  Shows with references are soft-cancelled instead of
// deleted.
func (r *ShowRepo) HasReferences(ctx context.Context, showID uint64) (bool, error) {
	var n int
	const q = `SELECT (SELECT COUNT(*) FROM rsvps WHERE show_id = ?) +
                      (SELECT COUNT(*) FROM payments WHERE show_id = ?)`
	if err := r.db.QueryRowContext(ctx, q, showID, showID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SoftCancel sets the cancellation flag without touching rows that
// other entities reference.
func (r *ShowRepo) SoftCancel(ctx context.Context, showID uint64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE shows SET cancelled = 1 WHERE id = ?`, showID)
	return err
}

// HardDelete removes a show permanently.  The deletion runs in a
// transaction with a re-check of referencing rows; ErrConflict is
// returned when an RSVP or payment appeared in the meantime.
func (r *ShowRepo) HardDelete(ctx context.Context, showID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()
	var n int
	const check = `SELECT (SELECT COUNT(*) FROM rsvps WHERE show_id = ?) +
                          (SELECT COUNT(*) FROM payments WHERE show_id = ?)`
	if err = tx.QueryRowContext(ctx, check, showID, showID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		err = ErrConflict
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM shows WHERE id = ?`, showID); err != nil {
		return err
	}
	return nil
}

func nullableUint32(v *uint32) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func uint32Ptr(v sql.NullInt64) *uint32 {
	if !v.Valid {
		return nil
	}
	u := uint32(v.Int64)
	return &u
}
