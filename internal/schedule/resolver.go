package schedule

import (
	"strings"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
)

// FieldValue is one resolved schedule field. Computed is set when the value
// was derived rather than supplied by the caller.
type FieldValue[T any] struct {
	Value    *T
	Computed bool
}

// Resolution is the resolved planned triple of a task.
type Resolution struct {
	Start    FieldValue[time.Time]
	Finish   FieldValue[time.Time]
	Duration FieldValue[int]
}

// PrerequisiteDates is the schedule state of a prerequisite task that a
// dependency boundary is read from.
type PrerequisiteDates struct {
	PlannedStart    *time.Time
	PlannedFinish   *time.Time
	ActualStart     *time.Time
	ActualFinish    *time.Time
	ProjectedStart  *time.Time
	ProjectedFinish *time.Time
}

// DatesOf extracts the dates of t used for dependency boundaries.
func DatesOf(t *domain.Task) PrerequisiteDates {
	return PrerequisiteDates{
		PlannedStart:    t.PlannedStart,
		PlannedFinish:   t.PlannedFinish,
		ActualStart:     t.ActualStart,
		ActualFinish:    t.ActualFinish,
		ProjectedStart:  t.ProjectedStart,
		ProjectedFinish: t.ProjectedFinish,
	}
}

// DependencyInput is a dependency together with its prerequisite's dates.
type DependencyInput struct {
	PrerequisiteID string
	Type           domain.DependencyType
	Latency        int
	Prerequisite   PrerequisiteDates
}

// Boundary returns the date this dependency proposes for the dependent task,
// or nil when the prerequisite has no usable date. The actual date wins when
// known; otherwise the later of planned and projected is used.
func (d DependencyInput) Boundary() *time.Time {
	p := d.Prerequisite
	var base *time.Time
	if d.Type.UsesPrerequisiteFinish() {
		base = p.ActualFinish
		if base == nil {
			base = domain.MaxDate(p.PlannedFinish, p.ProjectedFinish)
		}
	} else {
		base = p.ActualStart
		if base == nil {
			base = domain.MaxDate(p.PlannedStart, p.ProjectedStart)
		}
	}
	if base == nil {
		return nil
	}
	b := domain.AddDays(*base, d.Latency)
	return &b
}

// Bounds aggregates dependency boundaries per class. Both classes take the
// latest proposed date.
func Bounds(deps []DependencyInput) (start, finish *time.Time) {
	for _, d := range deps {
		b := d.Boundary()
		if b == nil {
			continue
		}
		if d.Type.AffectsStart() {
			start = domain.MaxDate(start, b)
		} else {
			finish = domain.MaxDate(finish, b)
		}
	}
	return start, finish
}

// ResolveDates resolves the planned start, finish and duration of a task.
// Dependency bounds are authoritative for the fields they drive; the caller's
// values fill in the rest. Duration is inclusive: finish - start + 1.
func ResolveDates(deps []DependencyInput, currentStart, currentFinish *time.Time, currentDuration *int) (*Resolution, error) {
	startBound, finishBound := Bounds(deps)
	start, finish := dayPtr(currentStart), dayPtr(currentFinish)

	var r Resolution
	switch {
	case startBound != nil && finishBound != nil:
		r.Start = computed(*startBound)
		r.Finish = computed(*finishBound)
		r.Duration = computed(domain.InclusiveDuration(*startBound, *finishBound))

	case startBound != nil:
		r.Start = computed(*startBound)
		switch {
		case currentDuration != nil:
			r.Duration = supplied(currentDuration)
			r.Finish = computed(domain.FinishFromDuration(*startBound, *currentDuration))
		case finish != nil:
			r.Finish = supplied(finish)
			r.Duration = computed(domain.InclusiveDuration(*startBound, *finish))
		}

	case finishBound != nil:
		r.Finish = computed(*finishBound)
		switch {
		case currentDuration != nil:
			r.Duration = supplied(currentDuration)
			r.Start = computed(domain.StartFromDuration(*finishBound, *currentDuration))
		case start != nil:
			r.Start = supplied(start)
			r.Duration = computed(domain.InclusiveDuration(*start, *finishBound))
		}

	default:
		if err := resolveSupplied(&r, start, finish, currentDuration); err != nil {
			return nil, err
		}
		return &r, nil
	}

	if r.Duration.Value != nil && *r.Duration.Value <= 0 {
		return nil, domain.NewValidationError("planned_duration",
			"dependency configuration yields a non-positive interval (%d days)", *r.Duration.Value)
	}
	return &r, nil
}

// resolveSupplied handles the case where no dependency yields a bound.
func resolveSupplied(r *Resolution, start, finish *time.Time, duration *int) error {
	var missing []string
	if start == nil {
		missing = append(missing, "planned_start")
	}
	if finish == nil {
		missing = append(missing, "planned_finish")
	}
	if duration == nil {
		missing = append(missing, "planned_duration")
	}

	switch len(missing) {
	case 0:
		want := domain.InclusiveDuration(*start, *finish)
		if *duration != want {
			return domain.NewValidationError("planned_duration",
				"must equal finish - start + 1 (%d), got %d", want, *duration)
		}
		r.Start, r.Finish, r.Duration = supplied(start), supplied(finish), supplied(duration)
	case 1:
		switch missing[0] {
		case "planned_start":
			r.Finish, r.Duration = supplied(finish), supplied(duration)
			r.Start = computed(domain.StartFromDuration(*finish, *duration))
		case "planned_finish":
			r.Start, r.Duration = supplied(start), supplied(duration)
			r.Finish = computed(domain.FinishFromDuration(*start, *duration))
		default:
			r.Start, r.Finish = supplied(start), supplied(finish)
			r.Duration = computed(domain.InclusiveDuration(*start, *finish))
		}
	case 2:
		return domain.NewValidationError(missing[0],
			"insufficient schedule data: %s required", strings.Join(missing, " and "))
	}

	if r.Duration.Value != nil && *r.Duration.Value <= 0 {
		if r.Duration.Computed {
			return domain.NewValidationError("planned_finish", "must not be before planned_start")
		}
		return domain.NewValidationError("planned_duration", "must be positive, got %d", *r.Duration.Value)
	}
	return nil
}

func computed[T any](v T) FieldValue[T] {
	return FieldValue[T]{Value: &v, Computed: true}
}

func supplied[T any](v *T) FieldValue[T] {
	c := *v
	return FieldValue[T]{Value: &c}
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return domain.DatePtr(*t)
}
