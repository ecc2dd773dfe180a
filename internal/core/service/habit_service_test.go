package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/policy"
)

// captureRecorder collects audit events synchronously for assertions.
type captureRecorder struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
}

func (r *captureRecorder) Record(event domain.ActivityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *captureRecorder) count(action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Action == action {
			n++
		}
	}
	return n
}

type stubHabitRepo struct {
	mu     sync.Mutex
	habits map[string]*domain.Habit
	nextID int
}

func newStubHabitRepo() *stubHabitRepo {
	return &stubHabitRepo{habits: make(map[string]*domain.Habit)}
}

func cloneHabit(h *domain.Habit) *domain.Habit {
	if h == nil {
		return nil
	}
	clone := *h
	return &clone
}

func (r *stubHabitRepo) Create(_ context.Context, habit *domain.Habit) (*domain.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	copy := cloneHabit(habit)
	copy.ID = "h-" + strconv.Itoa(r.nextID)
	copy.CreatedAt = time.Now().UTC()
	r.habits[copy.ID] = cloneHabit(copy)
	return cloneHabit(copy), nil
}

func (r *stubHabitRepo) FindByID(_ context.Context, id string) (*domain.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.habits[id]; ok {
		return cloneHabit(h), nil
	}
	return nil, domain.ErrHabitNotFound
}

func (r *stubHabitRepo) ListByOwner(_ context.Context, ownerID string) ([]*domain.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Habit
	for _, h := range r.habits {
		if h.OwnerID == ownerID {
			out = append(out, cloneHabit(h))
		}
	}
	return out, nil
}

func (r *stubHabitRepo) Rename(_ context.Context, id, name string) (*domain.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.habits[id]
	if !ok {
		return nil, domain.ErrHabitNotFound
	}
	h.Name = name
	return cloneHabit(h), nil
}

func (r *stubHabitRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.habits[id]; !ok {
		return domain.ErrHabitNotFound
	}
	delete(r.habits, id)
	return nil
}

// CompleteIfVersion mirrors the store's conditional update: the write applies
// only when the stored version still matches.
func (r *stubHabitRepo) CompleteIfVersion(_ context.Context, id string, version int64, streak int, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.habits[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	if h.Version != version {
		return domain.ErrConflictingUpdate
	}
	h.Streak = streak
	h.LastCompleted = domain.DayOf(completedAt)
	h.Version++
	return nil
}

func newHabitService(repo *stubHabitRepo, rec *captureRecorder) *HabitService {
	return NewHabitService(repo, rec, zerolog.Nop())
}

func TestHabitService_Create_Validation(t *testing.T) {
	svc := newHabitService(newStubHabitRepo(), &captureRecorder{})
	owner := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}

	if _, err := svc.Create(context.Background(), owner, "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank name, got %v", err)
	}

	habit, err := svc.Create(context.Background(), owner, "  read daily  ")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if habit.Name != "read daily" {
		t.Fatalf("expected trimmed name, got %q", habit.Name)
	}
	if habit.OwnerID != "u1" {
		t.Fatalf("habit must belong to the creator, got %q", habit.OwnerID)
	}
}

func TestHabitService_Complete_StreakProgression(t *testing.T) {
	repo := newStubHabitRepo()
	rec := &captureRecorder{}
	svc := newHabitService(repo, rec)
	owner := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}

	habit, err := svc.Create(context.Background(), owner, "exercise")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	// Five consecutive days build a streak of five.
	for i := 0; i < 5; i++ {
		got, err := svc.Complete(context.Background(), owner, habit.ID, start.AddDate(0, 0, i))
		if err != nil {
			t.Fatalf("day %d: complete failed: %v", i, err)
		}
		if got.Streak != i+1 {
			t.Fatalf("day %d: expected streak %d, got %d", i, i+1, got.Streak)
		}
	}

	// Second completion on the same day is a no-op.
	got, err := svc.Complete(context.Background(), owner, habit.ID, start.AddDate(0, 0, 4).Add(6*time.Hour))
	if err != nil {
		t.Fatalf("same-day complete failed: %v", err)
	}
	if got.Streak != 5 {
		t.Fatalf("same-day completion must not change the streak, got %d", got.Streak)
	}

	// A two-day gap resets to one.
	got, err = svc.Complete(context.Background(), owner, habit.ID, start.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("post-gap complete failed: %v", err)
	}
	if got.Streak != 1 {
		t.Fatalf("expected reset to 1 after gap, got %d", got.Streak)
	}

	// Six applied completions were audited; the no-op was not.
	if n := rec.count(domain.ActivityHabitCompleted); n != 6 {
		t.Fatalf("expected 6 audit events, got %d", n)
	}
}

func TestHabitService_Complete_ConcurrentSameDay(t *testing.T) {
	repo := newStubHabitRepo()
	svc := newHabitService(repo, &captureRecorder{})
	owner := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}

	habit, err := svc.Create(context.Background(), owner, "meditate")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	today := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Complete(context.Background(), owner, habit.ID, today)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}

	final, err := repo.FindByID(context.Background(), habit.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if final.Streak != 1 {
		t.Fatalf("16 same-day completions must produce streak 1, got %d", final.Streak)
	}
	if final.Version != 1 {
		t.Fatalf("exactly one write must have applied, got version %d", final.Version)
	}
}

// conflictingHabitRepo rejects the first conditional write to simulate a
// concurrent writer landing between the service's read and its write.
type conflictingHabitRepo struct {
	*stubHabitRepo
	conflicts int
}

func (r *conflictingHabitRepo) CompleteIfVersion(ctx context.Context, id string, version int64, streak int, completedAt time.Time) error {
	if r.conflicts > 0 {
		r.conflicts--
		// The competing write also advanced yesterday's completion.
		yesterday := domain.DayOf(completedAt).AddDate(0, 0, -1)
		if err := r.stubHabitRepo.CompleteIfVersion(ctx, id, version, streak, yesterday); err != nil {
			return err
		}
		return domain.ErrConflictingUpdate
	}
	return r.stubHabitRepo.CompleteIfVersion(ctx, id, version, streak, completedAt)
}

func TestHabitService_Complete_RetriesOnConflict(t *testing.T) {
	repo := &conflictingHabitRepo{stubHabitRepo: newStubHabitRepo(), conflicts: 1}
	svc := NewHabitService(repo, &captureRecorder{}, zerolog.Nop())
	owner := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}

	habit, err := repo.Create(context.Background(), &domain.Habit{OwnerID: owner.ID, Name: "journal"})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	today := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	got, err := svc.Complete(context.Background(), owner, habit.ID, today)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	// The competing write completed yesterday, so the retry lands on the
	// consecutive-day branch.
	if got.Streak != 2 {
		t.Fatalf("expected streak 2 after retry, got %d", got.Streak)
	}
}

func TestHabitService_OwnershipEnforced(t *testing.T) {
	repo := newStubHabitRepo()
	svc := newHabitService(repo, &captureRecorder{})
	owner := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}
	other := policy.Subject{ID: "u2", Role: domain.RoleMember, Authenticated: true}
	admin := policy.Subject{ID: "a1", Role: domain.RoleAdmin, Authenticated: true}

	habit, err := svc.Create(context.Background(), owner, "stretch")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Complete(context.Background(), other, habit.ID, time.Now()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
	if err := svc.Delete(context.Background(), other, habit.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner delete, got %v", err)
	}

	// Admin overrides ownership.
	if err := svc.Delete(context.Background(), admin, habit.ID); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
}

func TestHabitService_Complete_UnknownHabit(t *testing.T) {
	svc := newHabitService(newStubHabitRepo(), &captureRecorder{})
	owner := policy.Subject{ID: "u1", Role: domain.RoleMember, Authenticated: true}

	if _, err := svc.Complete(context.Background(), owner, "missing", time.Now()); !errors.Is(err, domain.ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound, got %v", err)
	}
}
