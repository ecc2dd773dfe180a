package domain

import "time"

// Habit is a member-owned counter of consecutive completion days.
type Habit struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name"`
	Streak        int       `json:"streak"`
	LastCompleted time.Time `json:"last_completed,omitempty"`
	// Version guards the read-modify-write on completion; every write
	// increments it so stale updates can be detected.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// DayOf truncates t to midnight UTC. Streak arithmetic works on calendar days,
// never on raw timestamps.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextStreak computes the streak value a completion on today should produce:
//   - already completed today: unchanged (the caller treats this as a no-op)
//   - last completed exactly yesterday: streak + 1
//   - anything else (first completion or a gap of two or more days): 1
func (h *Habit) NextStreak(today time.Time) (streak int, changed bool) {
	day := DayOf(today)
	if !h.LastCompleted.IsZero() {
		last := DayOf(h.LastCompleted)
		if !last.Before(day) {
			return h.Streak, false
		}
		if last.Equal(day.AddDate(0, 0, -1)) {
			return h.Streak + 1, true
		}
	}
	return 1, true
}
