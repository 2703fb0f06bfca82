package domain

import "time"

type Task struct {
	ID        string
	ProjectID string
	ParentID  *string
	Level     int
	Number    int

	Title          string
	Description    string
	ResponsibleOrg string
	IsMilestone    bool

	PlannedStart    *time.Time
	PlannedFinish   *time.Time
	PlannedDuration *int

	// Computed flags record that the matching planned field was derived from
	// dependencies rather than supplied.
	PlannedStartComputed    bool
	PlannedFinishComputed   bool
	PlannedDurationComputed bool

	ActualStart    *time.Time
	ActualFinish   *time.Time
	ActualDuration *int

	EstimatedCost     *float64
	ActualCost        *float64
	CompletionPercent *float64

	// ChildCount is derived from live rows on read; it is never written.
	ChildCount int

	// Last persisted projection.
	ProjectedStart  *time.Time
	ProjectedFinish *time.Time
	ProjectedDelay  *int

	StartTopoPosition  *int
	FinishTopoPosition *int

	Dependencies []Dependency

	CreatedBy string
	UpdatedBy string
	RemovedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
	RemovedAt *time.Time
}

// IsLeaf reports whether the task has no live children.
func (t *Task) IsLeaf() bool {
	return t.ChildCount == 0
}

// IsCompleted reports whether the task has an actual finish date.
func (t *Task) IsCompleted() bool {
	return t.ActualFinish != nil
}

// HasPlannedSchedule reports whether start, finish and duration are all set.
func (t *Task) HasPlannedSchedule() bool {
	return t.PlannedStart != nil && t.PlannedFinish != nil && t.PlannedDuration != nil
}

// Dependency is a timing constraint owned by TaskID on PrerequisiteID.
type Dependency struct {
	TaskID         string
	PrerequisiteID string
	Type           DependencyType
	Latency        int
}
