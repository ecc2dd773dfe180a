package ports

import (
	"context"

	"github.com/civicore/community-api/internal/core/domain"
)

// BusRepository persists buses. ReserveSeats and ReleaseSeats are the ledger
// primitives: ReserveSeats performs a single conditional check-and-decrement
// (bus active, capacity >= seats) so two concurrent bookings can never both
// pass the capacity check against a stale read.
type BusRepository interface {
	Create(ctx context.Context, bus *domain.Bus) (*domain.Bus, error)
	FindByID(ctx context.Context, id string) (*domain.Bus, error)
	List(ctx context.Context) ([]*domain.Bus, error)
	Update(ctx context.Context, bus *domain.Bus) (*domain.Bus, error)
	Delete(ctx context.Context, id string) error
	// ReserveSeats atomically decrements available capacity. It fails with
	// domain.ErrBusNotFound, domain.ErrBusInactive, or
	// domain.ErrCapacityExceeded depending on why the condition did not hold.
	ReserveSeats(ctx context.Context, busID string, seats int) error
	// ReleaseSeats atomically returns seats to the bus.
	ReleaseSeats(ctx context.Context, busID string, seats int) error
}

// TicketRepository persists bookings. CancelIfBooked flips the status only
// when it is still "booked", making cancellation idempotence-safe.
type TicketRepository interface {
	Insert(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	FindByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Ticket, error)
	ListAll(ctx context.Context) ([]*domain.Ticket, error)
	CancelIfBooked(ctx context.Context, id string) error
	// RebookIfCanceled is the compensation for CancelIfBooked: it flips the
	// status back to "booked" when the seat release could not complete, so a
	// later cancel attempt releases the seats exactly once.
	RebookIfCanceled(ctx context.Context, id string) error
	// HasBookedForBus reports whether any booked ticket still references the
	// bus (guards bus deletion).
	HasBookedForBus(ctx context.Context, busID string) (bool, error)
}
