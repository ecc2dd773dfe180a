package domain

import "time"

// Activity actions recorded in the audit trail.
const (
	ActivityHabitCompleted = "habit_completed"
	ActivitySeatsBooked    = "seats_booked"
	ActivityTicketCanceled = "ticket_canceled"
	ActivityVoteCast       = "vote_cast"
	ActivityVoteRevoked    = "vote_revoked"
)

// ActivityEvent is an append-only audit record of a ledger mutation. Events
// for the same resource are written in order; events for different resources
// carry no ordering guarantee.
type ActivityEvent struct {
	ActorID    string
	Action     string
	Resource   string
	ResourceID string
	Detail     string
	OccurredAt time.Time
}
