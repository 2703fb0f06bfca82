package domain

import "time"

// DateLayout is the civil-date format used for every planned, actual and
// projected date.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the calendar day n days after t (n may be negative).
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// InclusiveDuration is the number of days covered by [start, finish],
// counting both ends: a task starting and finishing the same day lasts 1.
func InclusiveDuration(start, finish time.Time) int {
	return DaysBetween(start, finish) + 1
}

// FinishFromDuration is the last day of a task that starts on start and
// lasts duration days.
func FinishFromDuration(start time.Time, duration int) time.Time {
	return AddDays(start, duration-1)
}

// StartFromDuration is the first day of a task that finishes on finish and
// lasts duration days.
func StartFromDuration(finish time.Time, duration int) time.Time {
	return AddDays(finish, -(duration - 1))
}

// ParseDate parses a YYYY-MM-DD string into a UTC day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// MaxDate returns the later of a and b, treating nil as absent.
func MaxDate(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.After(*b) {
		return a
	}
	return b
}

// MinDate returns the earlier of a and b, treating nil as absent.
func MinDate(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.Before(*b) {
		return a
	}
	return b
}

// SameDate reports whether two optional dates hold the same calendar day.
func SameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Day(*a).Equal(Day(*b))
}

// SameInt reports whether two optional ints are equal.
func SameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// DatePtr returns a pointer to the calendar day of t.
func DatePtr(t time.Time) *time.Time {
	d := Day(t)
	return &d
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
