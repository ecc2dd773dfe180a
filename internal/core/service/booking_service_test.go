package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/policy"
	"github.com/civicore/community-api/internal/core/ports"
)

type stubBusRepo struct {
	mu          sync.Mutex
	buses       map[string]*domain.Bus
	nextID      int
	failRelease int
}

func newStubBusRepo() *stubBusRepo {
	return &stubBusRepo{buses: make(map[string]*domain.Bus)}
}

func cloneBus(b *domain.Bus) *domain.Bus {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}

func (r *stubBusRepo) Create(_ context.Context, bus *domain.Bus) (*domain.Bus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.buses {
		if b.BusNumber == bus.BusNumber {
			return nil, domain.ErrDuplicateBus
		}
	}
	r.nextID++
	copy := cloneBus(bus)
	copy.ID = "b-" + strconv.Itoa(r.nextID)
	r.buses[copy.ID] = cloneBus(copy)
	return cloneBus(copy), nil
}

func (r *stubBusRepo) FindByID(_ context.Context, id string) (*domain.Bus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buses[id]; ok {
		return cloneBus(b), nil
	}
	return nil, domain.ErrBusNotFound
}

func (r *stubBusRepo) List(_ context.Context) ([]*domain.Bus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Bus
	for _, b := range r.buses {
		out = append(out, cloneBus(b))
	}
	return out, nil
}

func (r *stubBusRepo) Update(_ context.Context, bus *domain.Bus) (*domain.Bus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buses[bus.ID]; !ok {
		return nil, domain.ErrBusNotFound
	}
	r.buses[bus.ID] = cloneBus(bus)
	return cloneBus(bus), nil
}

func (r *stubBusRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buses[id]; !ok {
		return domain.ErrBusNotFound
	}
	delete(r.buses, id)
	return nil
}

// ReserveSeats mirrors the store's conditional decrement: the check and the
// write happen under one lock, exactly like a single filtered update.
func (r *stubBusRepo) ReserveSeats(_ context.Context, busID string, seats int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buses[busID]
	if !ok {
		return domain.ErrBusNotFound
	}
	if b.Status != domain.BusActive {
		return domain.ErrBusInactive
	}
	if b.Capacity < seats {
		return domain.ErrCapacityExceeded
	}
	b.Capacity -= seats
	return nil
}

func (r *stubBusRepo) ReleaseSeats(_ context.Context, busID string, seats int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRelease > 0 {
		r.failRelease--
		return errors.New("release refused")
	}
	b, ok := r.buses[busID]
	if !ok {
		return domain.ErrBusNotFound
	}
	b.Capacity += seats
	return nil
}

type stubTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	nextID  int
	failIns bool
}

func newStubTicketRepo() *stubTicketRepo {
	return &stubTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

func (r *stubTicketRepo) Insert(_ context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIns {
		return nil, errors.New("insert refused")
	}
	r.nextID++
	copy := cloneTicket(ticket)
	copy.ID = "t-" + strconv.Itoa(r.nextID)
	r.tickets[copy.ID] = cloneTicket(copy)
	return cloneTicket(copy), nil
}

func (r *stubTicketRepo) FindByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tk, ok := r.tickets[id]; ok {
		return cloneTicket(tk), nil
	}
	return nil, domain.ErrTicketNotFound
}

func (r *stubTicketRepo) ListByOwner(_ context.Context, ownerID string) ([]*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Ticket
	for _, tk := range r.tickets {
		if tk.OwnerID == ownerID {
			out = append(out, cloneTicket(tk))
		}
	}
	return out, nil
}

func (r *stubTicketRepo) ListAll(_ context.Context) ([]*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Ticket
	for _, tk := range r.tickets {
		out = append(out, cloneTicket(tk))
	}
	return out, nil
}

func (r *stubTicketRepo) CancelIfBooked(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tk, ok := r.tickets[id]
	if !ok {
		return domain.ErrTicketNotFound
	}
	if tk.Status != domain.TicketBooked {
		return domain.ErrTicketCanceled
	}
	tk.Status = domain.TicketCanceled
	return nil
}

func (r *stubTicketRepo) RebookIfCanceled(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tk, ok := r.tickets[id]
	if !ok {
		return domain.ErrTicketNotFound
	}
	if tk.Status == domain.TicketCanceled {
		tk.Status = domain.TicketBooked
	}
	return nil
}

func (r *stubTicketRepo) HasBookedForBus(_ context.Context, busID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tk := range r.tickets {
		if tk.BusID == busID && tk.Status == domain.TicketBooked {
			return true, nil
		}
	}
	return false, nil
}

func newBookingService(buses *stubBusRepo, tickets *stubTicketRepo) *BookingService {
	return NewBookingService(buses, tickets, &captureRecorder{}, zerolog.Nop())
}

func seedBus(t *testing.T, svc *BookingService, capacity int) *domain.Bus {
	t.Helper()
	bus, err := svc.CreateBus(context.Background(), ports.CreateBusInput{
		BusNumber: "B-" + strconv.Itoa(capacity),
		Capacity:  capacity,
		Route:     "downtown loop",
	})
	if err != nil {
		t.Fatalf("seed bus: %v", err)
	}
	return bus
}

func TestBookingService_CreateBus_Validation(t *testing.T) {
	svc := newBookingService(newStubBusRepo(), newStubTicketRepo())

	cases := []ports.CreateBusInput{
		{BusNumber: "", Capacity: 10, Route: "r"},
		{BusNumber: "B1", Capacity: 0, Route: "r"},
		{BusNumber: "B1", Capacity: 10, Route: ""},
		{BusNumber: "B1", Capacity: 10, Route: "r", Status: "flying"},
	}
	for i, input := range cases {
		if _, err := svc.CreateBus(context.Background(), input); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}

	bus, err := svc.CreateBus(context.Background(), ports.CreateBusInput{BusNumber: "B1", Capacity: 10, Route: "r"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if bus.Status != domain.BusActive {
		t.Fatalf("status must default to active, got %q", bus.Status)
	}
	if bus.TotalCapacity != 10 || bus.Capacity != 10 {
		t.Fatalf("fresh bus must have all seats free: %+v", bus)
	}
}

func TestBookingService_Book_ConcurrentNeverOversells(t *testing.T) {
	buses := newStubBusRepo()
	svc := newBookingService(buses, newStubTicketRepo())
	bus := seedBus(t, svc, 5)

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			subject := policy.Subject{ID: "u" + strconv.Itoa(i), Role: domain.RoleMember, Authenticated: true}
			_, errs[i] = svc.Book(context.Background(), subject, bus.ID, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrCapacityExceeded):
		default:
			t.Fatalf("unexpected booking error: %v", err)
		}
	}
	if succeeded != 5 {
		t.Fatalf("expected exactly 5 of 20 bookings to win, got %d", succeeded)
	}

	final, err := buses.FindByID(context.Background(), bus.ID)
	if err != nil {
		t.Fatalf("find bus: %v", err)
	}
	if final.Capacity != 0 {
		t.Fatalf("expected no seats left, got %d", final.Capacity)
	}
}

func TestBookingService_Book_InactiveBus(t *testing.T) {
	svc := newBookingService(newStubBusRepo(), newStubTicketRepo())
	bus, err := svc.CreateBus(context.Background(), ports.CreateBusInput{
		BusNumber: "B2", Capacity: 10, Route: "r", Status: "maintenance",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	subject := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}
	if _, err := svc.Book(context.Background(), subject, bus.ID, 1); !errors.Is(err, domain.ErrBusInactive) {
		t.Fatalf("expected ErrBusInactive, got %v", err)
	}
}

func TestBookingService_Book_CompensatesFailedInsert(t *testing.T) {
	buses := newStubBusRepo()
	tickets := newStubTicketRepo()
	svc := newBookingService(buses, tickets)
	bus := seedBus(t, svc, 5)

	tickets.failIns = true
	subject := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}
	if _, err := svc.Book(context.Background(), subject, bus.ID, 3); err == nil {
		t.Fatalf("expected booking to fail")
	}

	final, _ := buses.FindByID(context.Background(), bus.ID)
	if final.Capacity != 5 {
		t.Fatalf("reserved seats must be released after insert failure, got %d", final.Capacity)
	}
}

func TestBookingService_Cancel_RestoresSeats(t *testing.T) {
	buses := newStubBusRepo()
	svc := newBookingService(buses, newStubTicketRepo())
	bus := seedBus(t, svc, 5)

	subject := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}
	ticket, err := svc.Book(context.Background(), subject, bus.ID, 3)
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	canceled, err := svc.Cancel(context.Background(), subject, ticket.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.Status != domain.TicketCanceled {
		t.Fatalf("expected canceled status, got %q", canceled.Status)
	}

	final, _ := buses.FindByID(context.Background(), bus.ID)
	if final.Capacity != 5 {
		t.Fatalf("seats must return to the bus, got %d", final.Capacity)
	}

	// A second cancel must not restore seats twice.
	if _, err := svc.Cancel(context.Background(), subject, ticket.ID); !errors.Is(err, domain.ErrTicketCanceled) {
		t.Fatalf("expected ErrTicketCanceled, got %v", err)
	}
	final, _ = buses.FindByID(context.Background(), bus.ID)
	if final.Capacity != 5 {
		t.Fatalf("double cancel must not double-release seats, got %d", final.Capacity)
	}
}

func TestBookingService_Cancel_RebooksWhenReleaseFails(t *testing.T) {
	buses := newStubBusRepo()
	tickets := newStubTicketRepo()
	svc := newBookingService(buses, tickets)
	bus := seedBus(t, svc, 5)

	subject := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}
	ticket, err := svc.Book(context.Background(), subject, bus.ID, 3)
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	buses.failRelease = 1
	if _, err := svc.Cancel(context.Background(), subject, ticket.ID); err == nil {
		t.Fatalf("expected cancel to surface the release failure")
	}

	// The ticket must be back in booked state so the seats are not stranded.
	after, err := tickets.FindByID(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("find ticket: %v", err)
	}
	if after.Status != domain.TicketBooked {
		t.Fatalf("ticket must be rebooked after a failed release, got %q", after.Status)
	}

	// A retry now runs the full cancel and releases the seats exactly once.
	canceled, err := svc.Cancel(context.Background(), subject, ticket.ID)
	if err != nil {
		t.Fatalf("retried cancel failed: %v", err)
	}
	if canceled.Status != domain.TicketCanceled {
		t.Fatalf("expected canceled status, got %q", canceled.Status)
	}
	final, _ := buses.FindByID(context.Background(), bus.ID)
	if final.Capacity != 5 {
		t.Fatalf("expected all seats back, got %d", final.Capacity)
	}
}

func TestBookingService_Cancel_OwnershipEnforced(t *testing.T) {
	svc := newBookingService(newStubBusRepo(), newStubTicketRepo())
	bus := seedBus(t, svc, 5)

	owner := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}
	other := policy.Subject{ID: "u2", Role: domain.RoleMember, Authenticated: true}
	admin := policy.Subject{ID: "a1", Role: domain.RoleAdmin, Authenticated: true}

	ticket, err := svc.Book(context.Background(), owner, bus.ID, 1)
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	if _, err := svc.Cancel(context.Background(), other, ticket.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
	if _, err := svc.Cancel(context.Background(), admin, ticket.ID); err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
}

func TestBookingService_DeleteBus_GuardedByBookedTickets(t *testing.T) {
	svc := newBookingService(newStubBusRepo(), newStubTicketRepo())
	bus := seedBus(t, svc, 5)

	subject := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}
	ticket, err := svc.Book(context.Background(), subject, bus.ID, 2)
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}

	if err := svc.DeleteBus(context.Background(), bus.ID); !errors.Is(err, domain.ErrBusHasTickets) {
		t.Fatalf("expected ErrBusHasTickets, got %v", err)
	}

	if _, err := svc.Cancel(context.Background(), subject, ticket.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if err := svc.DeleteBus(context.Background(), bus.ID); err != nil {
		t.Fatalf("delete after cancel failed: %v", err)
	}
}

func TestBookingService_UpdateBus_CapacityDelta(t *testing.T) {
	buses := newStubBusRepo()
	svc := newBookingService(buses, newStubTicketRepo())
	bus := seedBus(t, svc, 10)

	subject := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}
	if _, err := svc.Book(context.Background(), subject, bus.ID, 4); err != nil {
		t.Fatalf("book failed: %v", err)
	}

	// Shrinking below the 4 booked seats is rejected.
	if _, err := svc.UpdateBus(context.Background(), bus.ID, ports.CreateBusInput{
		BusNumber: bus.BusNumber, Capacity: 3, Route: bus.Route,
	}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	// Growing to 12 keeps the 4 booked seats accounted for.
	updated, err := svc.UpdateBus(context.Background(), bus.ID, ports.CreateBusInput{
		BusNumber: bus.BusNumber, Capacity: 12, Route: bus.Route,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.TotalCapacity != 12 || updated.Capacity != 8 {
		t.Fatalf("expected total 12 with 8 free, got total %d free %d", updated.TotalCapacity, updated.Capacity)
	}
}

func TestBookingService_MyTickets_JoinsBuses(t *testing.T) {
	svc := newBookingService(newStubBusRepo(), newStubTicketRepo())
	bus := seedBus(t, svc, 5)

	subject := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}
	if _, err := svc.Book(context.Background(), subject, bus.ID, 2); err != nil {
		t.Fatalf("book failed: %v", err)
	}

	views, err := svc.MyTickets(context.Background(), subject)
	if err != nil {
		t.Fatalf("my tickets failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 ticket, got %d", len(views))
	}
	if views[0].Bus == nil || views[0].Bus.ID != bus.ID {
		t.Fatalf("ticket view must carry its bus")
	}
}
