package domain

import "errors"

// ErrValidation marks malformed or missing input on an otherwise authorized
// request.
var ErrValidation = errors.New("invalid input")

// Authentication / account errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrReservedName       = errors.New("username is reserved")
	ErrUserNotFound       = errors.New("user not found")
)

// Session and policy errors. ErrUnauthorized means no valid session was
// presented (re-login recovers); ErrForbidden means the session is valid but
// the policy denies the action (nothing to recover).
var (
	ErrNoSession    = errors.New("no session")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Derived-state ledger errors.
var (
	ErrHabitNotFound     = errors.New("habit not found")
	ErrBusNotFound       = errors.New("bus not found")
	ErrDuplicateBus      = errors.New("bus number already exists")
	ErrBusInactive       = errors.New("bus is not active")
	ErrBusHasTickets     = errors.New("bus has active tickets")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrTicketCanceled    = errors.New("ticket is already canceled")
	ErrCapacityExceeded  = errors.New("not enough seats available")
	ErrPartyNotFound     = errors.New("party not found")
	ErrDuplicateParty    = errors.New("party name already exists")
	ErrVoteNotFound      = errors.New("no vote found to revoke")
	ErrConflictingUpdate = errors.New("conflicting concurrent update")
)
