package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicore/community-api/internal/api/metrics"
	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/policy"
	"github.com/civicore/community-api/internal/core/ports"
)

// completeRetries bounds the compare-and-swap retry loop. Conflicts only
// happen when the same habit is completed concurrently, so losing the race
// once or twice is the realistic worst case.
const completeRetries = 3

// HabitService implements habit CRUD and the streak ledger operation.
type HabitService struct {
	repo     ports.HabitRepository
	activity ports.ActivityRecorder
	log      zerolog.Logger
}

func NewHabitService(repo ports.HabitRepository, activity ports.ActivityRecorder, log zerolog.Logger) *HabitService {
	return &HabitService{repo: repo, activity: activity, log: log}
}

func (s *HabitService) Create(ctx context.Context, subject policy.Subject, name string) (*domain.Habit, error) {
	if d := policy.Check(subject, policy.ActionHabitCreate, ""); !d.Allow {
		return nil, d.Reason
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: habit name is required", domain.ErrValidation)
	}

	return s.repo.Create(ctx, &domain.Habit{
		OwnerID: subject.ID,
		Name:    name,
	})
}

func (s *HabitService) List(ctx context.Context, subject policy.Subject) ([]*domain.Habit, error) {
	if d := policy.Check(subject, policy.ActionHabitList, ""); !d.Allow {
		return nil, d.Reason
	}
	return s.repo.ListByOwner(ctx, subject.ID)
}

func (s *HabitService) Rename(ctx context.Context, subject policy.Subject, habitID, name string) (*domain.Habit, error) {
	habit, err := s.authorize(ctx, subject, policy.ActionHabitUpdate, habitID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: habit name is required", domain.ErrValidation)
	}
	return s.repo.Rename(ctx, habit.ID, name)
}

func (s *HabitService) Delete(ctx context.Context, subject policy.Subject, habitID string) error {
	habit, err := s.authorize(ctx, subject, policy.ActionHabitDelete, habitID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, habit.ID)
}

// Complete applies the streak transition for today under a version
// compare-and-swap. Two concurrent completions of the same habit can not both
// take the "yesterday" branch: the second write sees a changed version, fails,
// re-reads, and lands on the same-day no-op.
func (s *HabitService) Complete(ctx context.Context, subject policy.Subject, habitID string, today time.Time) (*domain.Habit, error) {
	habit, err := s.authorize(ctx, subject, policy.ActionHabitComplete, habitID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		streak, changed := habit.NextStreak(today)
		if !changed {
			// Already completed today.
			metrics.HabitCompletionsTotal.WithLabelValues("noop").Inc()
			return habit, nil
		}

		err = s.repo.CompleteIfVersion(ctx, habit.ID, habit.Version, streak, today)
		if err == nil {
			habit.Streak = streak
			habit.LastCompleted = today
			habit.Version++
			metrics.HabitCompletionsTotal.WithLabelValues("applied").Inc()
			s.activity.Record(domain.ActivityEvent{
				ActorID:    subject.ID,
				Action:     domain.ActivityHabitCompleted,
				Resource:   "habit",
				ResourceID: habit.ID,
				Detail:     fmt.Sprintf("streak=%d", streak),
				OccurredAt: today,
			})
			return habit, nil
		}
		if !errors.Is(err, domain.ErrConflictingUpdate) {
			return nil, err
		}

		metrics.LedgerConflictsTotal.WithLabelValues("habit").Inc()
		if attempt >= completeRetries {
			return nil, err
		}

		habit, err = s.repo.FindByID(ctx, habit.ID)
		if err != nil {
			return nil, err
		}
		s.log.Debug().Str("habit_id", habitID).Int("attempt", attempt+1).Msg("completion conflict, retrying")
	}
}

// authorize loads the habit and checks the subject against the ownership rule.
func (s *HabitService) authorize(ctx context.Context, subject policy.Subject, action policy.Action, habitID string) (*domain.Habit, error) {
	habit, err := s.repo.FindByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if d := policy.Check(subject, action, habit.OwnerID); !d.Allow {
		return nil, d.Reason
	}
	return habit, nil
}
