package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/iliyamo/show-ticketing/internal/model"
	"github.com/iliyamo/show-ticketing/internal/queue"
	"github.com/iliyamo/show-ticketing/internal/repository"
)

// ----- in-memory fakes -----

type fakeShows struct {
	mu   sync.Mutex
	rows map[uint64]*model.Show
}

func newFakeShows() *fakeShows { return &fakeShows{rows: map[uint64]*model.Show{}} }

func (f *fakeShows) add(s *model.Show) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.ID] = s
}

func (f *fakeShows) GetByID(_ context.Context, id uint64) (*model.Show, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	cp := *s
	if s.AvailableTickets != nil {
		v := *s.AvailableTickets
		cp.AvailableTickets = &v
	}
	return &cp, nil
}

func (f *fakeShows) DecrementTickets(_ context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok || s.AvailableTickets == nil || *s.AvailableTickets == 0 {
		return false, nil
	}
	*s.AvailableTickets--
	return true, nil
}

func (f *fakeShows) IncrementTickets(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok || s.AvailableTickets == nil {
		return nil
	}
	next := *s.AvailableTickets + 1
	if s.TotalTickets != nil && next > *s.TotalTickets {
		next = *s.TotalTickets
	}
	*s.AvailableTickets = next
	return nil
}

type fakeRSVPs struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.RSVP
}

func newFakeRSVPs() *fakeRSVPs { return &fakeRSVPs{nextID: 1, rows: map[uint64]*model.RSVP{}} }

func (f *fakeRSVPs) GetByID(_ context.Context, id uint64) (*model.RSVP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrRSVPNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRSVPs) GetByUserAndShow(_ context.Context, userID, showID uint64) (*model.RSVP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == userID && r.ShowID == showID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRSVPs) Create(_ context.Context, rec *model.RSVP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == rec.UserID && r.ShowID == rec.ShowID {
			return repository.ErrDuplicateRSVP
		}
	}
	rec.ID = f.nextID
	f.nextID++
	cp := *rec
	f.rows[rec.ID] = &cp
	return nil
}

func (f *fakeRSVPs) SetStatusFrom(_ context.Context, id uint64, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

func (f *fakeRSVPs) Cancel(_ context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Status == model.RSVPStatusCancelled {
		return false, nil
	}
	r.Status = model.RSVPStatusCancelled
	return true, nil
}

func (f *fakeRSVPs) LinkPayment(_ context.Context, rsvpID, paymentID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[rsvpID]
	if !ok {
		return repository.ErrRSVPNotFound
	}
	r.PaymentID = &paymentID
	return nil
}

type fakePayments struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.Payment
}

func newFakePayments() *fakePayments {
	return &fakePayments{nextID: 1, rows: map[uint64]*model.Payment{}}
}

func (f *fakePayments) Create(_ context.Context, p *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.Status == model.PaymentStatusPending {
		for _, row := range f.rows {
			if row.UserID == p.UserID && row.ShowID == p.ShowID && row.Status == model.PaymentStatusPending {
				return repository.ErrDuplicatePayment
			}
		}
	}
	p.ID = f.nextID
	f.nextID++
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakePayments) FindByReference(_ context.Context, reference string) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.Reference == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrPaymentNotFound
}

func (f *fakePayments) GetPendingByUserAndShow(_ context.Context, userID, showID uint64) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.UserID == userID && p.ShowID == showID && p.Status == model.PaymentStatusPending {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePayments) MarkStatus(_ context.Context, id uint64, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	return true, nil
}

func (f *fakePayments) get(id uint64) model.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[id]
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []string // references passed to InitializePayment
	fail  bool
}

func (f *fakeGateway) InitializePayment(_ context.Context, email string, amountCents uint32, reference, callbackURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("gateway down")
	}
	f.calls = append(f.calls, reference)
	return "https://checkout.example/" + reference, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	confirmed []queue.RSVPConfirmedEvent
	settled   []queue.PaymentSettledEvent
}

func (f *fakePublisher) RSVPConfirmed(_ context.Context, ev queue.RSVPConfirmedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, ev)
}

func (f *fakePublisher) PaymentSettled(_ context.Context, ev queue.PaymentSettledEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, ev)
}

// ----- helpers -----

func u32(v uint32) *uint32 { return &v }

type fixture struct {
	shows    *fakeShows
	rsvps    *fakeRSVPs
	payments *fakePayments
	gateway  *fakeGateway
	pub      *fakePublisher
	svc      *RSVPService
}

func newFixture() *fixture {
	f := &fixture{
		shows:    newFakeShows(),
		rsvps:    newFakeRSVPs(),
		payments: newFakePayments(),
		gateway:  &fakeGateway{},
		pub:      &fakePublisher{},
	}
	refN := 0
	f.svc = NewRSVPService(f.shows, f.rsvps, f.payments, f.gateway, f.pub,
		func() (string, error) {
			refN++
			return fmt.Sprintf("RSVP_%012x", refN), nil
		},
		"https://example.com/callback")
	return f
}

func (f *fixture) addShow(id uint64, price uint32, capacity *uint32) *model.Show {
	s := &model.Show{
		ID:               id,
		ArtistID:         99,
		Title:            fmt.Sprintf("show-%d", id),
		TicketPriceCents: price,
		TotalTickets:     capacity,
	}
	if capacity != nil {
		v := *capacity
		s.AvailableTickets = &v
	}
	f.shows.add(s)
	return s
}

var user = Identity{ID: 7, Name: "Ada", Email: "ada@example.com", Role: model.RoleUser}

// ----- direct reservation -----

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown show", func(t *testing.T) {
		f := newFixture()
		if _, err := f.svc.Reserve(ctx, user.ID, 404); !errors.Is(err, repository.ErrShowNotFound) {
			t.Fatalf("want ErrShowNotFound, got %v", err)
		}
	})

	t.Run("takes a ticket and registers", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 0, u32(5))
		rec, err := f.svc.Reserve(ctx, user.ID, 1)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if rec.Status != model.RSVPStatusRegistered {
			t.Fatalf("status = %s, want REGISTERED", rec.Status)
		}
		s, _ := f.shows.GetByID(ctx, 1)
		if *s.AvailableTickets != 4 {
			t.Fatalf("available = %d, want 4", *s.AvailableTickets)
		}
		if len(f.pub.confirmed) != 1 {
			t.Fatalf("confirmed events = %d, want 1", len(f.pub.confirmed))
		}
	})

	t.Run("unlimited show never decrements", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 0, nil)
		if _, err := f.svc.Reserve(ctx, user.ID, 1); err != nil {
			t.Fatalf("reserve: %v", err)
		}
		s, _ := f.shows.GetByID(ctx, 1)
		if s.AvailableTickets != nil {
			t.Fatalf("available should stay nil, got %d", *s.AvailableTickets)
		}
	})

	t.Run("sold out", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 0, u32(0))
		if _, err := f.svc.Reserve(ctx, user.ID, 1); !errors.Is(err, ErrSoldOut) {
			t.Fatalf("want ErrSoldOut, got %v", err)
		}
	})

	t.Run("cancelled show", func(t *testing.T) {
		f := newFixture()
		s := f.addShow(1, 0, u32(5))
		s.Cancelled = true
		if _, err := f.svc.Reserve(ctx, user.ID, 1); !errors.Is(err, ErrShowCancelled) {
			t.Fatalf("want ErrShowCancelled, got %v", err)
		}
	})

	t.Run("duplicate registration", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 0, u32(5))
		if _, err := f.svc.Reserve(ctx, user.ID, 1); err != nil {
			t.Fatalf("first reserve: %v", err)
		}
		if _, err := f.svc.Reserve(ctx, user.ID, 1); !errors.Is(err, ErrAlreadyRegistered) {
			t.Fatalf("want ErrAlreadyRegistered, got %v", err)
		}
		s, _ := f.shows.GetByID(ctx, 1)
		if *s.AvailableTickets != 4 {
			t.Fatalf("available = %d, want 4 (no double take)", *s.AvailableTickets)
		}
	})

	t.Run("cancelled reservation revives under same id", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 0, u32(5))
		first, err := f.svc.Reserve(ctx, user.ID, 1)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if _, err := f.svc.Cancel(ctx, user, first.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		second, err := f.svc.Reserve(ctx, user.ID, 1)
		if err != nil {
			t.Fatalf("re-reserve: %v", err)
		}
		if second.ID != first.ID {
			t.Fatalf("re-reserve created id %d, want revived %d", second.ID, first.ID)
		}
		if second.Status != model.RSVPStatusRegistered {
			t.Fatalf("status = %s, want REGISTERED", second.Status)
		}
		s, _ := f.shows.GetByID(ctx, 1)
		if *s.AvailableTickets != 4 {
			t.Fatalf("available = %d, want 4", *s.AvailableTickets)
		}
	})
}

// Registrations never exceed capacity, no matter how many requests race
// for the last tickets.
func TestReserveConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	const capacity = 5
	const callers = 40
	f.addShow(1, 0, u32(capacity))

	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := f.svc.Reserve(ctx, uid, 1)
			results <- err
		}(uint64(100 + i))
	}
	wg.Wait()
	close(results)

	won := 0
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSoldOut):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != capacity {
		t.Fatalf("registered %d callers, want exactly %d", won, capacity)
	}
	s, _ := f.shows.GetByID(ctx, 1)
	if *s.AvailableTickets != 0 {
		t.Fatalf("available = %d, want 0", *s.AvailableTickets)
	}
}

// staleRSVPs serves a fixed pre-write snapshot from pair reads while
// delegating writes to the real fake.  It simulates two requests that
// both read the reservation before either one wrote it.
type staleRSVPs struct {
	*fakeRSVPs
	snapshot model.RSVP
}

func (s *staleRSVPs) GetByUserAndShow(context.Context, uint64, uint64) (*model.RSVP, error) {
	cp := s.snapshot
	return &cp, nil
}

// Two requests racing to revive the same cancelled reservation must
// register it once and consume exactly one ticket; the loser gives its
// ticket back.
func TestReserveRevivalRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addShow(1, 0, u32(5))
	rec, err := f.svc.Reserve(ctx, user.ID, 1)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, user, rec.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	stale := &staleRSVPs{
		fakeRSVPs: f.rsvps,
		snapshot:  model.RSVP{ID: rec.ID, UserID: user.ID, ShowID: 1, Status: model.RSVPStatusCancelled},
	}
	svc := NewRSVPService(f.shows, stale, f.payments, f.gateway, f.pub,
		func() (string, error) { return "RSVP_00000000beef", nil }, "")

	if _, err := svc.Reserve(ctx, user.ID, 1); err != nil {
		t.Fatalf("first revival: %v", err)
	}
	if _, err := svc.Reserve(ctx, user.ID, 1); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second revival: want ErrAlreadyRegistered, got %v", err)
	}

	got, _ := f.rsvps.GetByID(ctx, rec.ID)
	if got.Status != model.RSVPStatusRegistered {
		t.Fatalf("status = %s, want REGISTERED", got.Status)
	}
	s, _ := f.shows.GetByID(ctx, 1)
	if *s.AvailableTickets != 4 {
		t.Fatalf("one registration consumed %d tickets: available=%d, want 4",
			5-*s.AvailableTickets, *s.AvailableTickets)
	}
}

// ----- cancellation -----

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("owner releases the ticket", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 0, u32(5))
		rec, _ := f.svc.Reserve(ctx, user.ID, 1)
		res, err := f.svc.Cancel(ctx, user, rec.ID)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if res.Status != model.RSVPStatusCancelled {
			t.Fatalf("status = %s, want CANCELLED", res.Status)
		}
		if *res.AvailableTickets != 5 {
			t.Fatalf("available = %d, want 5", *res.AvailableTickets)
		}
	})

	t.Run("double cancel", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 0, u32(5))
		rec, _ := f.svc.Reserve(ctx, user.ID, 1)
		if _, err := f.svc.Cancel(ctx, user, rec.ID); err != nil {
			t.Fatalf("first cancel: %v", err)
		}
		if _, err := f.svc.Cancel(ctx, user, rec.ID); !errors.Is(err, ErrAlreadyCancelled) {
			t.Fatalf("want ErrAlreadyCancelled, got %v", err)
		}
		s, _ := f.shows.GetByID(ctx, 1)
		if *s.AvailableTickets != 5 {
			t.Fatalf("available = %d, want 5 (single release)", *s.AvailableTickets)
		}
	})

	t.Run("stranger is forbidden, admin is not", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 0, u32(5))
		rec, _ := f.svc.Reserve(ctx, user.ID, 1)

		stranger := Identity{ID: 8, Role: model.RoleUser}
		if _, err := f.svc.Cancel(ctx, stranger, rec.ID); !errors.Is(err, repository.ErrForbidden) {
			t.Fatalf("want ErrForbidden, got %v", err)
		}
		admin := Identity{ID: 9, Role: model.RoleAdmin}
		if _, err := f.svc.Cancel(ctx, admin, rec.ID); err != nil {
			t.Fatalf("admin cancel: %v", err)
		}
	})

	t.Run("pending reservation returns nothing to inventory", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 2500, u32(5))
		if _, err := f.svc.InitiatePayment(ctx, user, 1); err != nil {
			t.Fatalf("initiate: %v", err)
		}
		res, err := f.svc.CancelByShow(ctx, user, 1)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if *res.AvailableTickets != 5 {
			t.Fatalf("available = %d, want 5 (no ticket was held)", *res.AvailableTickets)
		}
	})

	t.Run("cancel by show without reservation", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 0, u32(5))
		if _, err := f.svc.CancelByShow(ctx, user, 1); !errors.Is(err, repository.ErrRSVPNotFound) {
			t.Fatalf("want ErrRSVPNotFound, got %v", err)
		}
	})
}

// ----- paid flow -----

// blindPayments never sees a pending payment on reads, simulating two
// initiations whose checks both ran before either insert landed.
type blindPayments struct {
	*fakePayments
}

func (*blindPayments) GetPendingByUserAndShow(context.Context, uint64, uint64) (*model.Payment, error) {
	return nil, nil
}

func TestInitiatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("free show is rejected", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 0, u32(5))
		if _, err := f.svc.InitiatePayment(ctx, user, 1); !errors.Is(err, ErrFreeShow) {
			t.Fatalf("want ErrFreeShow, got %v", err)
		}
		if len(f.payments.rows) != 0 {
			t.Fatalf("free path created %d payments", len(f.payments.rows))
		}
	})

	t.Run("creates pending pair and returns checkout url", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 2500, u32(5))
		init, err := f.svc.InitiatePayment(ctx, user, 1)
		if err != nil {
			t.Fatalf("initiate: %v", err)
		}
		if init.AuthorizationURL != "https://checkout.example/"+init.Reference {
			t.Fatalf("unexpected url %s", init.AuthorizationURL)
		}
		rec, _ := f.rsvps.GetByUserAndShow(ctx, user.ID, 1)
		if rec == nil || rec.Status != model.RSVPStatusPending {
			t.Fatalf("rsvp = %+v, want PENDING", rec)
		}
		if rec.PaymentID == nil {
			t.Fatal("rsvp not linked to payment")
		}
		pay := f.payments.get(*rec.PaymentID)
		if pay.Status != model.PaymentStatusPending || pay.AmountCents != 2500 {
			t.Fatalf("payment = %+v", pay)
		}
		// No ticket is taken until the charge confirms.
		s, _ := f.shows.GetByID(ctx, 1)
		if *s.AvailableTickets != 5 {
			t.Fatalf("available = %d, want 5", *s.AvailableTickets)
		}
	})

	t.Run("already registered", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 2500, u32(5))
		f.addShow(2, 0, u32(5))
		// direct reservation on show 1 via the free path helper
		rec := &model.RSVP{UserID: user.ID, ShowID: 1, Status: model.RSVPStatusRegistered}
		_ = f.rsvps.Create(ctx, rec)
		if _, err := f.svc.InitiatePayment(ctx, user, 1); !errors.Is(err, ErrAlreadyPaid) {
			t.Fatalf("want ErrAlreadyPaid, got %v", err)
		}
	})

	t.Run("second initiation conflicts", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 2500, u32(5))
		if _, err := f.svc.InitiatePayment(ctx, user, 1); err != nil {
			t.Fatalf("first initiate: %v", err)
		}
		if _, err := f.svc.InitiatePayment(ctx, user, 1); !errors.Is(err, ErrActivePayment) {
			t.Fatalf("want ErrActivePayment, got %v", err)
		}
	})

	t.Run("stale pending check still yields one payment", func(t *testing.T) {
		// Both initiations pass the pending-payment read; the store's
		// pending-uniqueness index must reject the second insert.
		f := newFixture()
		f.addShow(1, 2500, u32(5))
		blind := &blindPayments{fakePayments: f.payments}
		svc := NewRSVPService(f.shows, f.rsvps, blind, f.gateway, f.pub,
			f.svc.newRef, "https://example.com/callback")

		if _, err := svc.InitiatePayment(ctx, user, 1); err != nil {
			t.Fatalf("first initiate: %v", err)
		}
		if _, err := svc.InitiatePayment(ctx, user, 1); !errors.Is(err, ErrActivePayment) {
			t.Fatalf("second initiate: want ErrActivePayment, got %v", err)
		}
		if n := len(f.payments.rows); n != 1 {
			t.Fatalf("payment rows = %d, want 1", n)
		}
	})

	t.Run("gateway failure keeps the pending payment", func(t *testing.T) {
		f := newFixture()
		f.addShow(1, 2500, u32(5))
		f.gateway.fail = true
		if _, err := f.svc.InitiatePayment(ctx, user, 1); !errors.Is(err, ErrPaymentInit) {
			t.Fatalf("want ErrPaymentInit, got %v", err)
		}
		pending, _ := f.payments.GetPendingByUserAndShow(ctx, user.ID, 1)
		if pending == nil {
			t.Fatal("pending payment should survive a gateway failure")
		}
	})
}

// ----- webhook reconciliation -----

func TestApplyGatewayEvent(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, string) {
		t.Helper()
		f := newFixture()
		f.addShow(1, 2500, u32(5))
		init, err := f.svc.InitiatePayment(ctx, user, 1)
		if err != nil {
			t.Fatalf("initiate: %v", err)
		}
		return f, init.Reference
	}

	t.Run("unknown reference", func(t *testing.T) {
		f := newFixture()
		err := f.svc.ApplyGatewayEvent(ctx, EventChargeSuccess, "RSVP_000000000000")
		if !errors.Is(err, repository.ErrPaymentNotFound) {
			t.Fatalf("want ErrPaymentNotFound, got %v", err)
		}
	})

	t.Run("charge.success settles everything once", func(t *testing.T) {
		f, ref := setup(t)
		if err := f.svc.ApplyGatewayEvent(ctx, EventChargeSuccess, ref); err != nil {
			t.Fatalf("apply: %v", err)
		}
		pay, _ := f.payments.FindByReference(ctx, ref)
		if pay.Status != model.PaymentStatusSuccess {
			t.Fatalf("payment status = %s, want SUCCESS", pay.Status)
		}
		rec, _ := f.rsvps.GetByID(ctx, pay.RSVPID)
		if rec.Status != model.RSVPStatusRegistered {
			t.Fatalf("rsvp status = %s, want REGISTERED", rec.Status)
		}
		s, _ := f.shows.GetByID(ctx, 1)
		if *s.AvailableTickets != 4 {
			t.Fatalf("available = %d, want 4", *s.AvailableTickets)
		}
		if len(f.pub.settled) != 1 || len(f.pub.confirmed) != 1 {
			t.Fatalf("events settled=%d confirmed=%d, want 1/1", len(f.pub.settled), len(f.pub.confirmed))
		}
	})

	t.Run("replayed delivery is a no-op", func(t *testing.T) {
		f, ref := setup(t)
		if err := f.svc.ApplyGatewayEvent(ctx, EventChargeSuccess, ref); err != nil {
			t.Fatalf("first apply: %v", err)
		}
		if err := f.svc.ApplyGatewayEvent(ctx, EventChargeSuccess, ref); err != nil {
			t.Fatalf("replay: %v", err)
		}
		s, _ := f.shows.GetByID(ctx, 1)
		if *s.AvailableTickets != 4 {
			t.Fatalf("available = %d after replay, want 4", *s.AvailableTickets)
		}
		if len(f.pub.settled) != 1 {
			t.Fatalf("settled events = %d after replay, want 1", len(f.pub.settled))
		}
	})

	t.Run("charge.failed leaves the reservation pending", func(t *testing.T) {
		f, ref := setup(t)
		if err := f.svc.ApplyGatewayEvent(ctx, EventChargeFailed, ref); err != nil {
			t.Fatalf("apply: %v", err)
		}
		pay, _ := f.payments.FindByReference(ctx, ref)
		if pay.Status != model.PaymentStatusFailed {
			t.Fatalf("payment status = %s, want FAILED", pay.Status)
		}
		rec, _ := f.rsvps.GetByID(ctx, pay.RSVPID)
		if rec.Status != model.RSVPStatusPending {
			t.Fatalf("rsvp status = %s, want PENDING", rec.Status)
		}
		s, _ := f.shows.GetByID(ctx, 1)
		if *s.AvailableTickets != 5 {
			t.Fatalf("available = %d, want 5", *s.AvailableTickets)
		}
	})

	t.Run("unknown event type is ignored", func(t *testing.T) {
		f, ref := setup(t)
		if err := f.svc.ApplyGatewayEvent(ctx, "subscription.create", ref); err != nil {
			t.Fatalf("apply: %v", err)
		}
		pay, _ := f.payments.FindByReference(ctx, ref)
		if pay.Status != model.PaymentStatusPending {
			t.Fatalf("payment status = %s, want PENDING", pay.Status)
		}
	})
}
