package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/google/uuid"
)

var testShortIDCounter atomic.Int64

// Date parses a YYYY-MM-DD literal and panics on malformed input.
func Date(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(fmt.Sprintf("testutil.Date(%q): %v", s, err))
	}
	return d
}

// DatePtr is Date returning a pointer.
func DatePtr(s string) *time.Time {
	d := Date(s)
	return &d
}

// Project options
type ProjectOption func(*domain.Project)

func WithShortID(id string) ProjectOption {
	return func(p *domain.Project) {
		p.ShortID = id
	}
}

func WithProjectDuration(days int) ProjectOption {
	return func(p *domain.Project) {
		p.PlannedDuration = &days
	}
}

func WithTolerance(pct int) ProjectOption {
	return func(p *domain.Project) {
		p.TolerancePct = pct
	}
}

func WithMaxDepth(depth int) ProjectOption {
	return func(p *domain.Project) {
		p.MaxTaskDepth = depth
	}
}

func WithProjectFinished(d time.Time) ProjectOption {
	return func(p *domain.Project) {
		p.ActualFinish = &d
	}
}

func defaultShortID(name string) string {
	upper := strings.ToUpper(name)
	var letters []byte
	for i := 0; i < len(upper) && len(letters) < 3; i++ {
		if upper[i] >= 'A' && upper[i] <= 'Z' {
			letters = append(letters, upper[i])
		}
	}
	for len(letters) < 3 {
		letters = append(letters, 'X')
	}
	n := testShortIDCounter.Add(1)
	return fmt.Sprintf("%s%02d", string(letters), n)
}

func NewTestProject(name string, opts ...ProjectOption) *domain.Project {
	now := time.Now().UTC().Truncate(time.Second)
	p := &domain.Project{
		ID:             uuid.New().String(),
		ShortID:        defaultShortID(name),
		Name:           name,
		MaxTaskDepth:   domain.DefaultMaxTaskDepth,
		ScheduleStatus: domain.ScheduleOnTime,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Task options
type TaskOption func(*domain.Task)

// WithParent places the task one level below parent.
func WithParent(parent *domain.Task) TaskOption {
	return func(t *domain.Task) {
		id := parent.ID
		t.ParentID = &id
		t.Level = parent.Level + 1
	}
}

func WithNumber(n int) TaskOption {
	return func(t *domain.Task) {
		t.Number = n
	}
}

// WithPlanned sets a consistent planned start, duration and finish.
func WithPlanned(start string, duration int) TaskOption {
	return func(t *domain.Task) {
		s := Date(start)
		f := domain.FinishFromDuration(s, duration)
		t.PlannedStart = &s
		t.PlannedFinish = &f
		t.PlannedDuration = &duration
	}
}

func WithPlannedDuration(duration int) TaskOption {
	return func(t *domain.Task) {
		t.PlannedDuration = &duration
	}
}

func WithActualStart(start string) TaskOption {
	return func(t *domain.Task) {
		t.ActualStart = DatePtr(start)
	}
}

func WithActualFinish(finish string) TaskOption {
	return func(t *domain.Task) {
		t.ActualFinish = DatePtr(finish)
	}
}

func WithDependency(prerequisiteID string, typ domain.DependencyType, latency int) TaskOption {
	return func(t *domain.Task) {
		t.Dependencies = append(t.Dependencies, domain.Dependency{
			TaskID:         t.ID,
			PrerequisiteID: prerequisiteID,
			Type:           typ,
			Latency:        latency,
		})
	}
}

func WithChildCount(n int) TaskOption {
	return func(t *domain.Task) {
		t.ChildCount = n
	}
}

func NewTestTask(projectID, title string, opts ...TaskOption) *domain.Task {
	now := time.Now().UTC().Truncate(time.Second)
	t := &domain.Task{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Level:     1,
		Number:    1,
		Title:     title,
		CreatedBy: "test",
		UpdatedBy: "test",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
