package domain

import (
	"fmt"
	"regexp"
	"time"
)

var shortIDPattern = regexp.MustCompile(`^[A-Z]{3,6}[0-9]{2,4}$`)

// Project is the aggregate a task tree belongs to. The schedule fields
// (Delay through ScheduleStatus) are written only by the projection engine.
type Project struct {
	ID      string
	ShortID string
	Name    string

	PlannedDuration *int // days
	TolerancePct    int
	MaxTaskDepth    int

	ActualFinish *time.Time

	Delay           *int
	ProjectedFinish *time.Time
	IsLate          bool
	LatePct         *int
	ScheduleStatus  ScheduleStatus

	NextRecomputeAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultMaxTaskDepth applies when a project does not configure one.
const DefaultMaxTaskDepth = 5

// ValidateShortID checks that ShortID is non-empty and matches the required
// format: 3-6 uppercase letters followed by 2-4 digits (e.g. OBR01, PAVE0234).
func (p *Project) ValidateShortID() error {
	if p.ShortID == "" {
		return fmt.Errorf("short ID is required (use --id flag)")
	}
	if !shortIDPattern.MatchString(p.ShortID) {
		return fmt.Errorf("short ID %q must be 3-6 uppercase letters followed by 2-4 digits (e.g. OBR01)", p.ShortID)
	}
	return nil
}

// DisplayID returns the best short identifier for display.
// It prefers ShortID; if empty it truncates ID to 8 characters.
func (p *Project) DisplayID() string {
	if p.ShortID != "" {
		return p.ShortID
	}
	if len(p.ID) >= 8 {
		return p.ID[:8]
	}
	return p.ID
}

// ValidateDepth checks that a task at level fits under the project's limit.
func (p *Project) ValidateDepth(level int) error {
	limit := p.MaxTaskDepth
	if limit <= 0 {
		limit = DefaultMaxTaskDepth
	}
	if level < 1 {
		return NewValidationError("level", "must be at least 1, got %d", level)
	}
	if level > limit {
		return &StructuralConflictError{
			Kind:    ConflictDepthExceeded,
			Message: fmt.Sprintf("level %d exceeds configured maximum depth (%d)", level, limit),
		}
	}
	return nil
}

// Rollup is the set of project fields derived from its level-1 tasks.
type Rollup struct {
	Delay           *int
	ProjectedFinish *time.Time
	IsLate          bool
	LatePct         *int
	Status          ScheduleStatus
}

// Rollup returns the project's currently persisted rollup fields.
func (p *Project) Rollup() Rollup {
	return Rollup{
		Delay:           p.Delay,
		ProjectedFinish: p.ProjectedFinish,
		IsLate:          p.IsLate,
		LatePct:         p.LatePct,
		Status:          p.ScheduleStatus,
	}
}

// Equal reports whether two rollups would persist identically.
func (r Rollup) Equal(o Rollup) bool {
	return SameInt(r.Delay, o.Delay) &&
		SameDate(r.ProjectedFinish, o.ProjectedFinish) &&
		r.IsLate == o.IsLate &&
		SameInt(r.LatePct, o.LatePct) &&
		r.Status == o.Status
}

// ApplyRollup copies rollup fields onto the project.
func (p *Project) ApplyRollup(r Rollup, now time.Time) {
	p.Delay = r.Delay
	p.ProjectedFinish = r.ProjectedFinish
	p.IsLate = r.IsLate
	p.LatePct = r.LatePct
	p.ScheduleStatus = r.Status
	p.UpdatedAt = now
}
