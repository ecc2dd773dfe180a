package ports

import (
	"context"
	"time"

	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/policy"
)

// HabitService covers the habit CRUD surface and the streak ledger operation.
// Ownership checks happen here (the route only proves authentication); the
// subject is the resolved session principal.
type HabitService interface {
	Create(ctx context.Context, subject policy.Subject, name string) (*domain.Habit, error)
	List(ctx context.Context, subject policy.Subject) ([]*domain.Habit, error)
	Rename(ctx context.Context, subject policy.Subject, habitID, name string) (*domain.Habit, error)
	Delete(ctx context.Context, subject policy.Subject, habitID string) error
	// Complete applies the streak transition for today. Calling it twice on
	// the same calendar day is a no-op the second time.
	Complete(ctx context.Context, subject policy.Subject, habitID string, today time.Time) (*domain.Habit, error)
}
