// Package service contains the reservation workflow: the one component
// allowed to mutate the cross-entity invariants between a show's ticket
// counter, a user's reservation and a payment's lifecycle.  It is built
// against small store interfaces so tests can substitute in-memory
// fakes, and it never performs a read-then-write on the ticket counter;
// the conditional update inside the store is the only gate.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/show-ticketing/internal/model"
	"github.com/iliyamo/show-ticketing/internal/queue"
	"github.com/iliyamo/show-ticketing/internal/repository"
)

// Workflow outcome errors for expected precondition failures.  Handlers
// map these to the HTTP taxonomy; anything else is an internal error.
var (
	ErrSoldOut           = errors.New("show is sold out")
	ErrAlreadyRegistered = errors.New("user already registered for this show")
	ErrAlreadyCancelled  = errors.New("rsvp is already cancelled")
	ErrAlreadyPaid       = errors.New("already registered and paid")
	ErrActivePayment     = errors.New("an active payment already exists for this rsvp")
	ErrFreeShow          = errors.New("this show is free, no payment required")
	ErrShowCancelled     = errors.New("show is cancelled")
	ErrPaymentInit       = errors.New("payment initialization failed")
)

// Identity is the verified caller handed in by the authentication
// middleware.  The workflow trusts it without re-verifying.
type Identity struct {
	ID    uint64
	Name  string
	Email string
	Role  model.Role
}

// ShowStore is the slice of show persistence the workflow needs.
type ShowStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Show, error)
	DecrementTickets(ctx context.Context, showID uint64) (bool, error)
	IncrementTickets(ctx context.Context, showID uint64) error
}

// RSVPStore is the slice of reservation persistence the workflow needs.
type RSVPStore interface {
	GetByID(ctx context.Context, id uint64) (*model.RSVP, error)
	GetByUserAndShow(ctx context.Context, userID, showID uint64) (*model.RSVP, error)
	Create(ctx context.Context, rec *model.RSVP) error
	SetStatusFrom(ctx context.Context, id uint64, from, to string) (bool, error)
	Cancel(ctx context.Context, id uint64) (bool, error)
	LinkPayment(ctx context.Context, rsvpID, paymentID uint64) error
}

// PaymentStore is the slice of payment persistence the workflow needs.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	FindByReference(ctx context.Context, reference string) (*model.Payment, error)
	GetPendingByUserAndShow(ctx context.Context, userID, showID uint64) (*model.Payment, error)
	MarkStatus(ctx context.Context, id uint64, status string) (bool, error)
}

// Gateway initiates hosted payment sessions at the external provider.
type Gateway interface {
	InitializePayment(ctx context.Context, email string, amountCents uint32, reference, callbackURL string) (string, error)
}

// EventPublisher delivers domain events to the message broker.  Both
// methods are fire-and-forget; a broker outage never fails a request.
type EventPublisher interface {
	RSVPConfirmed(ctx context.Context, ev queue.RSVPConfirmedEvent)
	PaymentSettled(ctx context.Context, ev queue.PaymentSettledEvent)
}

// ReferenceFunc produces a fresh unique payment reference.
type ReferenceFunc func() (string, error)

// RSVPService orchestrates show inventory, the reservation ledger and
// the payment tracker.
type RSVPService struct {
	shows       ShowStore
	rsvps       RSVPStore
	payments    PaymentStore
	gateway     Gateway
	publisher   EventPublisher
	newRef      ReferenceFunc
	callbackURL string
}

// NewRSVPService constructs the workflow.  publisher may be nil to
// disable event publishing (tests, broker-less deployments).
func NewRSVPService(shows ShowStore, rsvps RSVPStore, payments PaymentStore, gateway Gateway, publisher EventPublisher, newRef ReferenceFunc, callbackURL string) *RSVPService {
	if shows == nil || rsvps == nil || payments == nil {
		panic("nil store passed to NewRSVPService")
	}
	return &RSVPService{
		shows:       shows,
		rsvps:       rsvps,
		payments:    payments,
		gateway:     gateway,
		publisher:   publisher,
		newRef:      newRef,
		callbackURL: callbackURL,
	}
}

// Reserve registers a user for a show through the direct (non-paid)
// path.  For shows with finite capacity the ticket is taken by a single
// conditional decrement; losing that race yields ErrSoldOut even when
// the earlier read saw a positive counter.  An existing CANCELLED
// reservation for the pair is revived under the same identity instead
// of inserting a duplicate row.
func (s *RSVPService) Reserve(ctx context.Context, userID, showID uint64) (*model.RSVP, error) {
	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return nil, err
	}
	if show.Cancelled {
		return nil, ErrShowCancelled
	}
	if show.TracksInventory() && *show.AvailableTickets == 0 {
		return nil, ErrSoldOut
	}
	existing, err := s.rsvps.GetByUserAndShow(ctx, userID, showID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == model.RSVPStatusRegistered {
		return nil, ErrAlreadyRegistered
	}

	if show.TracksInventory() {
		took, err := s.shows.DecrementTickets(ctx, showID)
		if err != nil {
			return nil, err
		}
		if !took {
			return nil, ErrSoldOut
		}
	}

	if existing != nil {
		// The revival is guarded on the status we observed: if another
		// request registered this pair after our read, the guard loses
		// and the ticket we took must go back.
		flipped, err := s.rsvps.SetStatusFrom(ctx, existing.ID, existing.Status, model.RSVPStatusRegistered)
		if err != nil {
			return nil, err
		}
		if !flipped {
			if show.TracksInventory() {
				if incErr := s.shows.IncrementTickets(ctx, showID); incErr != nil {
					log.Printf("rsvp: release ticket after lost revival failed: %v", incErr)
				}
			}
			return nil, ErrAlreadyRegistered
		}
		existing.Status = model.RSVPStatusRegistered
		s.publishConfirmed(ctx, existing, show)
		return existing, nil
	}

	rec := &model.RSVP{UserID: userID, ShowID: showID, Status: model.RSVPStatusRegistered}
	if err := s.rsvps.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateRSVP) {
			// Lost an insert race to a concurrent request for the same
			// pair; release the ticket we took and report the conflict.
			if show.TracksInventory() {
				if incErr := s.shows.IncrementTickets(ctx, showID); incErr != nil {
					log.Printf("rsvp: release ticket after duplicate insert failed: %v", incErr)
				}
			}
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	s.publishConfirmed(ctx, rec, show)
	return rec, nil
}

// CancelResult reports the outcome of a cancellation: the reservation's
// new status plus the show's counter after any release.
type CancelResult struct {
	RSVPID           uint64
	ShowID           uint64
	Status           string
	AvailableTickets *uint32
}

// Cancel cancels a reservation by its identifier.  Only the owner or an
// admin may cancel.  A ticket is released back to the show only when
// the reservation had actually consumed one (REGISTERED); cancelling a
// payment-pending reservation returns nothing to inventory because no
// ticket was taken yet.
func (s *RSVPService) Cancel(ctx context.Context, caller Identity, rsvpID uint64) (*CancelResult, error) {
	rec, err := s.rsvps.GetByID(ctx, rsvpID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, caller, rec)
}

// CancelByShow cancels the caller's own reservation for a show.  This
// backs the PUT /shows/:id/rsvp entry point.
func (s *RSVPService) CancelByShow(ctx context.Context, caller Identity, showID uint64) (*CancelResult, error) {
	rec, err := s.rsvps.GetByUserAndShow(ctx, caller.ID, showID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, repository.ErrRSVPNotFound
	}
	return s.cancel(ctx, caller, rec)
}

func (s *RSVPService) cancel(ctx context.Context, caller Identity, rec *model.RSVP) (*CancelResult, error) {
	if rec.Status == model.RSVPStatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if rec.UserID != caller.ID && caller.Role != model.RoleAdmin {
		return nil, repository.ErrForbidden
	}
	held := rec.Status == model.RSVPStatusRegistered
	flipped, err := s.rsvps.Cancel(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if !flipped {
		// A concurrent cancel won; inventory was released exactly once
		// by that call.
		return nil, ErrAlreadyCancelled
	}
	if held {
		if err := s.shows.IncrementTickets(ctx, rec.ShowID); err != nil {
			return nil, err
		}
	}
	show, err := s.shows.GetByID(ctx, rec.ShowID)
	if err != nil {
		return nil, err
	}
	return &CancelResult{
		RSVPID:           rec.ID,
		ShowID:           rec.ShowID,
		Status:           model.RSVPStatusCancelled,
		AvailableTickets: show.AvailableTickets,
	}, nil
}

// PaymentInit is returned to the caller of InitiatePayment: the hosted
// payment page URL and the reference correlating the session.
type PaymentInit struct {
	AuthorizationURL string
	Reference        string
}

// InitiatePayment starts the paid reservation flow for a show.  The
// reservation is created (or reused) as PENDING; no ticket is taken
// until the gateway confirms the charge via webhook.  When the gateway
// call itself fails the PENDING payment row is left in place — a
// periodic reconciliation sweep using VerifyTransaction can settle it
// later.
func (s *RSVPService) InitiatePayment(ctx context.Context, caller Identity, showID uint64) (*PaymentInit, error) {
	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return nil, err
	}
	if show.Cancelled {
		return nil, ErrShowCancelled
	}
	if show.Free() {
		return nil, ErrFreeShow
	}
	rec, err := s.rsvps.GetByUserAndShow(ctx, caller.ID, showID)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.Status == model.RSVPStatusRegistered {
		return nil, ErrAlreadyPaid
	}
	pending, err := s.payments.GetPendingByUserAndShow(ctx, caller.ID, showID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrActivePayment
	}

	reference, err := s.newRef()
	if err != nil {
		return nil, err
	}

	if rec == nil {
		rec = &model.RSVP{UserID: caller.ID, ShowID: showID, Status: model.RSVPStatusPending}
		if err := s.rsvps.Create(ctx, rec); err != nil {
			if errors.Is(err, repository.ErrDuplicateRSVP) {
				return nil, ErrActivePayment
			}
			return nil, err
		}
	} else if rec.Status != model.RSVPStatusPending {
		flipped, err := s.rsvps.SetStatusFrom(ctx, rec.ID, rec.Status, model.RSVPStatusPending)
		if err != nil {
			return nil, err
		}
		if !flipped {
			// A concurrent request registered the pair between our read
			// and the write.
			return nil, ErrAlreadyPaid
		}
	}

	pay := &model.Payment{
		Provider:    model.ProviderPaystack,
		Reference:   reference,
		AmountCents: show.TicketPriceCents,
		Status:      model.PaymentStatusPending,
		UserID:      caller.ID,
		ShowID:      showID,
		RSVPID:      rec.ID,
	}
	if err := s.payments.Create(ctx, pay); err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			// Lost an insert race to a concurrent initiation for the
			// same pair; the earlier session stays live.
			return nil, ErrActivePayment
		}
		return nil, err
	}
	if err := s.rsvps.LinkPayment(ctx, rec.ID, pay.ID); err != nil {
		return nil, err
	}

	url, err := s.gateway.InitializePayment(ctx, caller.Email, pay.AmountCents, reference, s.callbackURL)
	if err != nil {
		log.Printf("payment: gateway initialize failed for %s: %v", reference, err)
		return nil, ErrPaymentInit
	}
	return &PaymentInit{AuthorizationURL: url, Reference: reference}, nil
}

// Gateway webhook event types the workflow recognises.  Everything else
// is a no-op.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// ApplyGatewayEvent reconciles a verified webhook event against the
// payment it references.  The PENDING->terminal transition is the
// idempotency gate: a payment that already settled ignores further
// events with the same reference, so replayed deliveries never
// double-apply side effects.
func (s *RSVPService) ApplyGatewayEvent(ctx context.Context, event, reference string) error {
	pay, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		return err
	}
	switch event {
	case EventChargeSuccess:
		applied, err := s.payments.MarkStatus(ctx, pay.ID, model.PaymentStatusSuccess)
		if err != nil {
			return err
		}
		if !applied {
			return nil // replay of an already-settled payment
		}
		rec, err := s.rsvps.GetByID(ctx, pay.RSVPID)
		if err != nil {
			return err
		}
		held := rec.Status == model.RSVPStatusRegistered
		if !held {
			flipped, err := s.rsvps.SetStatusFrom(ctx, pay.RSVPID, rec.Status, model.RSVPStatusRegistered)
			if err != nil {
				return err
			}
			if !flipped {
				// A direct registration slipped in after our read and
				// already holds the ticket.
				held = true
			}
		}
		show, err := s.shows.GetByID(ctx, pay.ShowID)
		if err != nil {
			return err
		}
		// A reservation that already registered through the direct path
		// holds its ticket; confirming its charge must not take another.
		if show.TracksInventory() && !held {
			// The counter floors at zero; a paid confirmation on a show
			// that sold out in the meantime still registers the buyer.
			if _, err := s.shows.DecrementTickets(ctx, pay.ShowID); err != nil {
				return err
			}
		}
		s.publishSettled(ctx, pay, model.PaymentStatusSuccess)
		if s.publisher != nil {
			s.publisher.RSVPConfirmed(ctx, queue.RSVPConfirmedEvent{
				RSVPID:      pay.RSVPID,
				UserID:      pay.UserID,
				ShowID:      pay.ShowID,
				ShowTitle:   show.Title,
				Status:      model.RSVPStatusRegistered,
				ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
			})
		}
		return nil
	case EventChargeFailed:
		applied, err := s.payments.MarkStatus(ctx, pay.ID, model.PaymentStatusFailed)
		if err != nil {
			return err
		}
		if applied {
			// The reservation stays PENDING: the user may retry the
			// payment flow or let it expire.
			s.publishSettled(ctx, pay, model.PaymentStatusFailed)
		}
		return nil
	default:
		return nil
	}
}

func (s *RSVPService) publishConfirmed(ctx context.Context, rec *model.RSVP, show *model.Show) {
	if s.publisher == nil {
		return
	}
	s.publisher.RSVPConfirmed(ctx, queue.RSVPConfirmedEvent{
		RSVPID:      rec.ID,
		UserID:      rec.UserID,
		ShowID:      rec.ShowID,
		ShowTitle:   show.Title,
		Status:      rec.Status,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *RSVPService) publishSettled(ctx context.Context, pay *model.Payment, status string) {
	if s.publisher == nil {
		return
	}
	s.publisher.PaymentSettled(ctx, queue.PaymentSettledEvent{
		PaymentID:   pay.ID,
		Reference:   pay.Reference,
		Status:      status,
		AmountCents: pay.AmountCents,
		UserID:      pay.UserID,
		ShowID:      pay.ShowID,
		RSVPID:      pay.RSVPID,
		SettledAt:   time.Now().UTC().Format(time.RFC3339),
	})
}
