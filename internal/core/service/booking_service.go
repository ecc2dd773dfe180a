package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicore/community-api/internal/api/metrics"
	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/policy"
	"github.com/civicore/community-api/internal/core/ports"
)

// BookingService implements bus administration and the seat-capacity ledger.
type BookingService struct {
	buses    ports.BusRepository
	tickets  ports.TicketRepository
	activity ports.ActivityRecorder
	log      zerolog.Logger
}

func NewBookingService(buses ports.BusRepository, tickets ports.TicketRepository, activity ports.ActivityRecorder, log zerolog.Logger) *BookingService {
	return &BookingService{buses: buses, tickets: tickets, activity: activity, log: log}
}

func (s *BookingService) CreateBus(ctx context.Context, input ports.CreateBusInput) (*domain.Bus, error) {
	bus, err := busFromInput(input)
	if err != nil {
		return nil, err
	}
	return s.buses.Create(ctx, bus)
}

func (s *BookingService) UpdateBus(ctx context.Context, busID string, input ports.CreateBusInput) (*domain.Bus, error) {
	existing, err := s.buses.FindByID(ctx, busID)
	if err != nil {
		return nil, err
	}

	bus, err := busFromInput(input)
	if err != nil {
		return nil, err
	}
	bus.ID = existing.ID
	bus.CreatedAt = existing.CreatedAt

	// Editing total capacity shifts the remaining seats by the same delta so
	// existing bookings stay accounted for. The result may not go negative.
	booked := existing.TotalCapacity - existing.Capacity
	if bus.TotalCapacity < booked {
		return nil, fmt.Errorf("%w: capacity below booked seats", domain.ErrValidation)
	}
	bus.Capacity = bus.TotalCapacity - booked

	return s.buses.Update(ctx, bus)
}

// DeleteBus removes a bus, refusing while booked tickets still reference it.
func (s *BookingService) DeleteBus(ctx context.Context, busID string) error {
	hasBooked, err := s.tickets.HasBookedForBus(ctx, busID)
	if err != nil {
		return err
	}
	if hasBooked {
		return domain.ErrBusHasTickets
	}
	return s.buses.Delete(ctx, busID)
}

func (s *BookingService) ListBuses(ctx context.Context) ([]*domain.Bus, error) {
	return s.buses.List(ctx)
}

// Book reserves seats and issues a ticket. The reservation is a single
// conditional decrement in the store, so concurrent bookings can never
// collectively exceed the bus's capacity. If the ticket insert fails after the
// seats were taken, the decrement is compensated.
func (s *BookingService) Book(ctx context.Context, subject policy.Subject, busID string, seats int) (*domain.Ticket, error) {
	if d := policy.Check(subject, policy.ActionTicketBook, ""); !d.Allow {
		return nil, d.Reason
	}
	if seats <= 0 {
		return nil, fmt.Errorf("%w: seats must be positive", domain.ErrValidation)
	}

	if err := s.buses.ReserveSeats(ctx, busID, seats); err != nil {
		metrics.SeatsBookedTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	ticket, err := s.tickets.Insert(ctx, &domain.Ticket{
		BusID:   busID,
		OwnerID: subject.ID,
		Seats:   seats,
		Status:  domain.TicketBooked,
	})
	if err != nil {
		if relErr := s.buses.ReleaseSeats(ctx, busID, seats); relErr != nil {
			s.log.Error().Err(relErr).Str("bus_id", busID).Int("seats", seats).Msg("failed to release seats after ticket insert failure")
		}
		return nil, fmt.Errorf("insert ticket: %w", err)
	}

	metrics.SeatsBookedTotal.WithLabelValues("booked").Inc()
	s.activity.Record(domain.ActivityEvent{
		ActorID:    subject.ID,
		Action:     domain.ActivitySeatsBooked,
		Resource:   "bus",
		ResourceID: busID,
		Detail:     fmt.Sprintf("seats=%d", seats),
		OccurredAt: time.Now().UTC(),
	})
	return ticket, nil
}

// Cancel flips a booked ticket to canceled and returns its seats to the bus.
func (s *BookingService) Cancel(ctx context.Context, subject policy.Subject, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if d := policy.Check(subject, policy.ActionTicketCancel, ticket.OwnerID); !d.Allow {
		return nil, d.Reason
	}

	// The conditional flip is the authority on "already canceled": a
	// concurrent cancel loses here, not on the stale read above.
	if err := s.tickets.CancelIfBooked(ctx, ticketID); err != nil {
		return nil, err
	}

	if err := s.buses.ReleaseSeats(ctx, ticket.BusID, ticket.Seats); err != nil {
		// Flip the ticket back so a retried cancel releases the seats
		// exactly once instead of hitting ErrTicketCanceled with the seats
		// still withheld.
		if rbErr := s.tickets.RebookIfCanceled(ctx, ticketID); rbErr != nil {
			s.log.Error().Err(rbErr).Str("ticket_id", ticketID).Msg("failed to rebook ticket after seat release failure")
		}
		s.log.Error().Err(err).Str("ticket_id", ticketID).Str("bus_id", ticket.BusID).Msg("failed to restore seats for canceled ticket")
		return nil, err
	}

	ticket.Status = domain.TicketCanceled
	s.activity.Record(domain.ActivityEvent{
		ActorID:    subject.ID,
		Action:     domain.ActivityTicketCanceled,
		Resource:   "ticket",
		ResourceID: ticketID,
		Detail:     fmt.Sprintf("seats=%d", ticket.Seats),
		OccurredAt: time.Now().UTC(),
	})
	return ticket, nil
}

func (s *BookingService) MyTickets(ctx context.Context, subject policy.Subject) ([]ports.TicketView, error) {
	if d := policy.Check(subject, policy.ActionTicketListOwn, ""); !d.Allow {
		return nil, d.Reason
	}
	tickets, err := s.tickets.ListByOwner(ctx, subject.ID)
	if err != nil {
		return nil, err
	}
	return s.withBuses(ctx, tickets), nil
}

func (s *BookingService) AllTickets(ctx context.Context) ([]ports.TicketView, error) {
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.withBuses(ctx, tickets), nil
}

// withBuses joins each ticket with its bus; a missing bus leaves the view
// without one rather than failing the listing.
func (s *BookingService) withBuses(ctx context.Context, tickets []*domain.Ticket) []ports.TicketView {
	cache := make(map[string]*domain.Bus)
	views := make([]ports.TicketView, 0, len(tickets))
	for _, t := range tickets {
		bus, ok := cache[t.BusID]
		if !ok {
			var err error
			bus, err = s.buses.FindByID(ctx, t.BusID)
			if err != nil {
				bus = nil
			}
			cache[t.BusID] = bus
		}
		views = append(views, ports.TicketView{Ticket: t, Bus: bus})
	}
	return views
}

func busFromInput(input ports.CreateBusInput) (*domain.Bus, error) {
	number := strings.TrimSpace(input.BusNumber)
	route := strings.TrimSpace(input.Route)
	if number == "" || route == "" {
		return nil, fmt.Errorf("%w: bus number and route are required", domain.ErrValidation)
	}
	if input.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", domain.ErrValidation)
	}

	status := domain.BusStatus(input.Status)
	if input.Status == "" {
		status = domain.BusActive
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown bus status %q", domain.ErrValidation, input.Status)
	}

	return &domain.Bus{
		BusNumber:     number,
		Capacity:      input.Capacity,
		TotalCapacity: input.Capacity,
		Route:         route,
		Status:        status,
	}, nil
}
