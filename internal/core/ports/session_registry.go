package ports

import (
	"context"

	"github.com/civicore/community-api/internal/core/domain"
)

// SessionRegistry owns the token-to-identity mapping. Create always mints a
// fresh unguessable token, so logging in again rotates the session and the old
// token can never be fixated. Resolve returns domain.ErrNoSession for unknown,
// destroyed, and expired tokens alike.
type SessionRegistry interface {
	Create(ctx context.Context, identity *domain.Identity) (*domain.Session, error)
	Resolve(ctx context.Context, token string) (*domain.Session, error)
	Destroy(ctx context.Context, token string) error
	// DestroyAllForIdentity revokes every live session of an identity, used
	// after a password change.
	DestroyAllForIdentity(ctx context.Context, identityID string) error
}
