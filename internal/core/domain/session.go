package domain

import "time"

// Session binds an opaque token to an authenticated identity for a bounded
// time. Sessions live exclusively in the session registry; the credential
// store never sees them. The role is snapshotted at login.
type Session struct {
	Token      string    `json:"-"`
	IdentityID string    `json:"identity_id"`
	Username   string    `json:"username"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given instant.
// The registry's backing store reclaims expired entries on its own; this check
// is the lazy enforcement at resolve time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
