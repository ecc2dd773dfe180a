package ports

import (
	"context"

	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/policy"
)

// CreateBusInput carries the admin-provided bus attributes.
type CreateBusInput struct {
	BusNumber string
	Capacity  int
	Route     string
	Status    string
}

// TicketView joins a ticket with its bus for list responses.
type TicketView struct {
	Ticket *domain.Ticket `json:"ticket"`
	Bus    *domain.Bus    `json:"bus,omitempty"`
}

// BookingService covers bus administration and the seat-capacity ledger.
type BookingService interface {
	CreateBus(ctx context.Context, input CreateBusInput) (*domain.Bus, error)
	UpdateBus(ctx context.Context, busID string, input CreateBusInput) (*domain.Bus, error)
	// DeleteBus refuses to remove a bus that still has booked tickets.
	DeleteBus(ctx context.Context, busID string) error
	ListBuses(ctx context.Context) ([]*domain.Bus, error)

	// Book atomically reserves seats on an active bus and issues a ticket.
	Book(ctx context.Context, subject policy.Subject, busID string, seats int) (*domain.Ticket, error)
	// Cancel flips a booked ticket to canceled and returns its seats to the
	// bus. Only the ticket owner or an admin may cancel.
	Cancel(ctx context.Context, subject policy.Subject, ticketID string) (*domain.Ticket, error)
	MyTickets(ctx context.Context, subject policy.Subject) ([]TicketView, error)
	AllTickets(ctx context.Context) ([]TicketView, error)
}
