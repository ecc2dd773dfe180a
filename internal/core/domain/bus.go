package domain

import "time"

// BusStatus represents the operational state of a bus.
type BusStatus string

const (
	BusActive      BusStatus = "active"
	BusMaintenance BusStatus = "maintenance"
	BusInactive    BusStatus = "inactive"
)

// Valid reports whether s is one of the known bus statuses.
func (s BusStatus) Valid() bool {
	switch s {
	case BusActive, BusMaintenance, BusInactive:
		return true
	}
	return false
}

// Bus carries passengers on a fixed route. Capacity is the number of seats
// still available; booked seats plus Capacity always equals TotalCapacity.
// Editing TotalCapacity shifts Capacity by the same delta so the identity
// holds across fleet updates.
type Bus struct {
	ID            string    `json:"id"`
	BusNumber     string    `json:"bus_number"`
	Capacity      int       `json:"capacity"`
	TotalCapacity int       `json:"total_capacity"`
	Route         string    `json:"route"`
	Status        BusStatus `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TicketStatus is the lifecycle state of a booking.
type TicketStatus string

const (
	TicketBooked   TicketStatus = "booked"
	TicketCanceled TicketStatus = "canceled"
)

// Ticket is a member's claim on seats of a bus.
type Ticket struct {
	ID        string       `json:"id"`
	BusID     string       `json:"bus_id"`
	OwnerID   string       `json:"owner_id"`
	Seats     int          `json:"seats"`
	Status    TicketStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}
