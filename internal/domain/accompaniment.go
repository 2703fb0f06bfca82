package domain

import "time"

// Accompaniment is a periodic follow-up record on a project. The most recent
// one decides whether the schedule is paused.
type Accompaniment struct {
	ID             string
	ProjectID      string
	RecordedAt     time.Time
	SchedulePaused bool
	Notes          string
	CreatedAt      time.Time
}
