package ports

import (
	"context"

	"github.com/civicore/community-api/internal/core/domain"
)

// AuthService implements the credential-store contract plus session issuance.
// Register and Login both return a freshly minted session so the transport can
// set the cookie in one round trip.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.Identity, *domain.Session, error)
	Login(ctx context.Context, username, password string) (*domain.Identity, *domain.Session, error)
	Logout(ctx context.Context, token string) error
	CurrentIdentity(ctx context.Context, identityID string) (*domain.Identity, error)
	// ChangePassword verifies the current password, stores the new hash, and
	// revokes every live session of the identity.
	ChangePassword(ctx context.Context, identityID, current, next string) error
	// EnsureAdmin creates the bootstrap admin account when absent. Called
	// once at startup, never from a request path.
	EnsureAdmin(ctx context.Context, username, password string) error
}
