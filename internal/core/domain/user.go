package domain

import (
	"sync"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// reservedUsernames can never be registered through the public endpoint; they
// are claimed by the startup bootstrap. The set starts with "admin" and grows
// with whatever name the bootstrap actually runs under.
var (
	reservedMu        sync.RWMutex
	reservedUsernames = map[string]struct{}{
		"admin": {},
	}
)

// ReserveUsername adds name to the reserved set. The bootstrap calls it with
// the configured admin username so a renamed admin account stays protected.
func ReserveUsername(name string) {
	if name == "" {
		return
	}
	reservedMu.Lock()
	reservedUsernames[name] = struct{}{}
	reservedMu.Unlock()
}

// IsReservedUsername reports whether name is held back for system accounts.
// Matching is case-sensitive, like username uniqueness itself.
func IsReservedUsername(name string) bool {
	reservedMu.RLock()
	_, ok := reservedUsernames[name]
	reservedMu.RUnlock()
	return ok
}

// Identity models an authenticated actor in the system.
type Identity struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
