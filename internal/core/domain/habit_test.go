package domain

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDayOf_TruncatesToMidnightUTC(t *testing.T) {
	in := time.Date(2024, 3, 15, 23, 59, 59, 999, time.UTC)
	if got := DayOf(in); !got.Equal(day(2024, 3, 15)) {
		t.Fatalf("expected 2024-03-15T00:00:00Z, got %v", got)
	}

	// A timestamp in a non-UTC zone lands on the UTC calendar day.
	loc := time.FixedZone("UTC+5", 5*3600)
	in = time.Date(2024, 3, 15, 2, 0, 0, 0, loc) // 2024-03-14T21:00Z
	if got := DayOf(in); !got.Equal(day(2024, 3, 14)) {
		t.Fatalf("expected 2024-03-14T00:00:00Z, got %v", got)
	}
}

func TestNextStreak_FirstCompletion(t *testing.T) {
	h := &Habit{}
	streak, changed := h.NextStreak(day(2024, 3, 15))
	if !changed || streak != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", streak, changed)
	}
}

func TestNextStreak_SameDayIsNoop(t *testing.T) {
	h := &Habit{Streak: 4, LastCompleted: day(2024, 3, 15)}
	streak, changed := h.NextStreak(day(2024, 3, 15).Add(8 * time.Hour))
	if changed {
		t.Fatalf("expected no-op for same-day completion")
	}
	if streak != 4 {
		t.Fatalf("expected streak unchanged at 4, got %d", streak)
	}
}

func TestNextStreak_ConsecutiveDayIncrements(t *testing.T) {
	h := &Habit{Streak: 4, LastCompleted: day(2024, 3, 15)}
	streak, changed := h.NextStreak(day(2024, 3, 16))
	if !changed || streak != 5 {
		t.Fatalf("expected (5, true), got (%d, %v)", streak, changed)
	}
}

func TestNextStreak_GapResets(t *testing.T) {
	h := &Habit{Streak: 9, LastCompleted: day(2024, 3, 15)}
	streak, changed := h.NextStreak(day(2024, 3, 18))
	if !changed || streak != 1 {
		t.Fatalf("expected reset to (1, true), got (%d, %v)", streak, changed)
	}
}

func TestNextStreak_FutureLastCompletedIsNoop(t *testing.T) {
	// Clock skew: last completion recorded "tomorrow" must not wind the
	// streak back.
	h := &Habit{Streak: 2, LastCompleted: day(2024, 3, 16)}
	streak, changed := h.NextStreak(day(2024, 3, 15))
	if changed {
		t.Fatalf("expected no-op when last completion is ahead of today")
	}
	if streak != 2 {
		t.Fatalf("expected streak unchanged at 2, got %d", streak)
	}
}

func TestIsReservedUsername(t *testing.T) {
	if !IsReservedUsername("admin") {
		t.Fatalf("admin must be reserved")
	}
	if IsReservedUsername("Admin") {
		t.Fatalf("matching is case-sensitive")
	}
	if IsReservedUsername("alice") {
		t.Fatalf("alice must not be reserved")
	}
}
