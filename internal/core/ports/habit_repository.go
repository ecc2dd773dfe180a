package ports

import (
	"context"
	"time"

	"github.com/civicore/community-api/internal/core/domain"
)

// HabitRepository persists habits. CompleteIfVersion is the ledger primitive:
// the write only applies when the stored version still matches the one the
// caller read, otherwise domain.ErrConflictingUpdate is returned and the
// caller must re-read and retry.
type HabitRepository interface {
	Create(ctx context.Context, habit *domain.Habit) (*domain.Habit, error)
	FindByID(ctx context.Context, id string) (*domain.Habit, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Habit, error)
	Rename(ctx context.Context, id, name string) (*domain.Habit, error)
	Delete(ctx context.Context, id string) error
	CompleteIfVersion(ctx context.Context, id string, version int64, streak int, completedAt time.Time) error
}
