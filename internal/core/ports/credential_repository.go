package ports

import (
	"context"

	"github.com/civicore/community-api/internal/core/domain"
)

// CredentialRepository persists identity records. Username uniqueness is
// enforced by the store itself (unique index), not only by the service.
type CredentialRepository interface {
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	FindByUsername(ctx context.Context, username string) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
