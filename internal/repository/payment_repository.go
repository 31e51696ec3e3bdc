package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/show-ticketing/internal/model"
)

// PaymentRepo manages persistence for payments.  A payment transitions
// out of PENDING exactly once; MarkStatus carries that guard in the
// statement so replayed webhook deliveries become no-ops.  At most one
// PENDING row may exist per (user_id, show_id): the table carries a
// functional unique index over (user_id, show_id, CASE WHEN
// status = 'PENDING' THEN 1 END), which is NULL for settled rows and
// therefore only collides while two payments are pending at once.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Create inserts a new payment row and populates the generated ID and
// timestamps on the provided record.  An insert that collides with the
// pending-uniqueness index returns ErrDuplicatePayment so the workflow
// can map it to a Conflict outcome.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (provider, reference, amount_cents, status, user_id, show_id, rsvp_id)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		p.Provider, p.Reference, p.AmountCents, p.Status, p.UserID, p.ShowID, p.RSVPID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicatePayment
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM payments WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, p.ID).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// FindByReference looks a payment up by its unique gateway reference.
// It returns ErrPaymentNotFound when no row matches.
func (r *PaymentRepo) FindByReference(ctx context.Context, reference string) (*model.Payment, error) {
	const q = `SELECT id, provider, reference, amount_cents, status, user_id, show_id, rsvp_id, created_at, updated_at
               FROM payments WHERE reference = ?`
	var p model.Payment
	err := r.db.QueryRowContext(ctx, q, reference).Scan(
		&p.ID, &p.Provider, &p.Reference, &p.AmountCents, &p.Status,
		&p.UserID, &p.ShowID, &p.RSVPID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetPendingByUserAndShow returns the active (PENDING) payment for a
// (user, show) pair, or (nil, nil) when none exists.  At most one such
// row can exist at a time.
func (r *PaymentRepo) GetPendingByUserAndShow(ctx context.Context, userID, showID uint64) (*model.Payment, error) {
	const q = `SELECT id, provider, reference, amount_cents, status, user_id, show_id, rsvp_id, created_at, updated_at
               FROM payments
               WHERE user_id = ? AND show_id = ? AND status = 'PENDING'
               ORDER BY created_at DESC LIMIT 1`
	var p model.Payment
	err := r.db.QueryRowContext(ctx, q, userID, showID).Scan(
		&p.ID, &p.Provider, &p.Reference, &p.AmountCents, &p.Status,
		&p.UserID, &p.ShowID, &p.RSVPID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// MarkStatus transitions a payment out of PENDING.  The guard is part
// of the statement: a payment that already reached SUCCESS or FAILED is
// left untouched and the call reports false, which makes webhook
// replays idempotent.
func (r *PaymentRepo) MarkStatus(ctx context.Context, id uint64, status string) (bool, error) {
	const q = `UPDATE payments SET status = ? WHERE id = ? AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
