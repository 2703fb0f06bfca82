package schedule

import (
	"math"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
)

// ProjectRollup derives the project's delay, projected finish and schedule
// status from its level-1 tasks. paused is the flag of the latest
// accompaniment record.
func ProjectRollup(p *domain.Project, tasks []*domain.Task, projections map[string]Projection, paused bool) domain.Rollup {
	var maxPlanned, maxProjected *time.Time
	for _, t := range tasks {
		if t.Level != 1 {
			continue
		}
		if t.PlannedFinish != nil {
			maxPlanned = domain.MaxDate(maxPlanned, domain.DatePtr(*t.PlannedFinish))
		}
		if pr, ok := projections[t.ID]; ok && pr.Finish != nil {
			maxProjected = domain.MaxDate(maxProjected, pr.Finish)
		}
	}

	r := domain.Rollup{Status: domain.ScheduleOnTime}
	switch {
	case p.ActualFinish != nil:
		r.Status = domain.ScheduleCompleted
	case paused:
		r.Status = domain.SchedulePaused
	}

	if maxPlanned == nil || maxProjected == nil {
		return r
	}
	delay := max(0, domain.DaysBetween(*maxPlanned, *maxProjected))
	r.Delay = &delay
	r.ProjectedFinish = maxProjected

	if delay > 0 && p.PlannedDuration != nil && *p.PlannedDuration > 0 {
		ratio := float64(delay) / float64(*p.PlannedDuration) * 100
		pct := int(math.Round(ratio))
		r.LatePct = &pct
		r.IsLate = pct >= p.TolerancePct
		if r.IsLate && r.Status == domain.ScheduleOnTime {
			r.Status = domain.ScheduleLate
		}
	}
	return r
}
