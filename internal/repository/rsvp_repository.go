package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/show-ticketing/internal/model"
)

// RSVPRepo provides CRUD operations for reservations.  At most one row
// exists per (user, show) pair, enforced by a UNIQUE constraint; the
// workflow revives a CANCELLED row instead of inserting a second one.
type RSVPRepo struct {
	db *sql.DB
}

// NewRSVPRepo returns a new RSVPRepo bound to the given database.
func NewRSVPRepo(db *sql.DB) *RSVPRepo { return &RSVPRepo{db: db} }

// Create inserts a new reservation and populates the generated ID and
// timestamps on the provided record.  An insert that collides with the
// (user_id, show_id) unique constraint returns ErrDuplicateRSVP so the
// workflow can map it to a Conflict outcome.
func (r *RSVPRepo) Create(ctx context.Context, rec *model.RSVP) error {
	const q = `INSERT INTO rsvps (user_id, show_id, status) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rec.UserID, rec.ShowID, rec.Status)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateRSVP
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM rsvps WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, rec.ID).Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

// GetByID retrieves a reservation by its ID.  It returns ErrRSVPNotFound
// if there is no matching row.
func (r *RSVPRepo) GetByID(ctx context.Context, id uint64) (*model.RSVP, error) {
	const q = `SELECT id, user_id, show_id, status, payment_id, created_at, updated_at
               FROM rsvps WHERE id = ?`
	rec, err := r.scanOne(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRSVPNotFound
		}
		return nil, err
	}
	return rec, nil
}

// GetByUserAndShow returns the reservation for a (user, show) pair, or
// (nil, nil) when none exists.  The absent case is a normal branch for
// the workflow, not an error.
func (r *RSVPRepo) GetByUserAndShow(ctx context.Context, userID, showID uint64) (*model.RSVP, error) {
	const q = `SELECT id, user_id, show_id, status, payment_id, created_at, updated_at
               FROM rsvps WHERE user_id = ? AND show_id = ?`
	rec, err := r.scanOne(r.db.QueryRowContext(ctx, q, userID, showID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// SetStatusFrom transitions a reservation's status, guarded in the
// statement on the status the caller observed.  It returns true when
// this call performed the transition; false means a concurrent writer
// moved the row first and the caller must re-decide on fresh state.
func (r *RSVPRepo) SetStatusFrom(ctx context.Context, id uint64, from, to string) (bool, error) {
	const q = `UPDATE rsvps SET status = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Cancel flips a reservation to CANCELLED, guarded in the statement so
// that only one of two racing cancel requests observes the transition.
// It returns true when this call performed the transition.
func (r *RSVPRepo) Cancel(ctx context.Context, id uint64) (bool, error) {
	const q = `UPDATE rsvps SET status = 'CANCELLED' WHERE id = ? AND status <> 'CANCELLED'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LinkPayment records the payment that secures a reservation.
func (r *RSVPRepo) LinkPayment(ctx context.Context, rsvpID, paymentID uint64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE rsvps SET payment_id = ? WHERE id = ?`, paymentID, rsvpID)
	return err
}

// AttendeeDetail is a reservation joined with its user, shaped for the
// artist-facing attendee list of a show.
type AttendeeDetail struct {
	RSVPID    uint64    `json:"rsvp_id"`
	UserID    uint64    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ListByShow returns all reservations for a show with user details,
// newest first.  When no reservations exist an empty slice is returned.
func (r *RSVPRepo) ListByShow(ctx context.Context, showID uint64) ([]AttendeeDetail, error) {
	const q = `SELECT r.id, r.user_id, u.name, u.email, r.status, r.created_at
               FROM rsvps r
               JOIN users u ON u.id = r.user_id
               WHERE r.show_id = ?
               ORDER BY r.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]AttendeeDetail, 0)
	for rows.Next() {
		var d AttendeeDetail
		if err := rows.Scan(&d.RSVPID, &d.UserID, &d.Name, &d.Email, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// RSVPDetail is a reservation joined with its show, shaped for the
// "my reservations" listing.
type RSVPDetail struct {
	ID        uint64    `json:"id"`
	ShowID    uint64    `json:"show_id"`
	ShowTitle string    `json:"show_title"`
	Location  string    `json:"location"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ListByUser returns all reservations for the given user along with
// show details, newest first.
func (r *RSVPRepo) ListByUser(ctx context.Context, userID uint64) ([]RSVPDetail, error) {
	const q = `SELECT r.id, r.show_id, s.title, s.location, s.date, r.status, r.created_at
               FROM rsvps r
               JOIN shows s ON s.id = r.show_id
               WHERE r.user_id = ?
               ORDER BY r.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]RSVPDetail, 0)
	for rows.Next() {
		var d RSVPDetail
		if err := rows.Scan(&d.ID, &d.ShowID, &d.ShowTitle, &d.Location, &d.Date, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

func (r *RSVPRepo) scanOne(row *sql.Row) (*model.RSVP, error) {
	var (
		rec       model.RSVP
		paymentID sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.ShowID, &rec.Status, &paymentID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paymentID.Valid {
		pid := uint64(paymentID.Int64)
		rec.PaymentID = &pid
	}
	return &rec, nil
}
