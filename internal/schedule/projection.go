package schedule

import (
	"sort"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
)

// Projection is the forecast start, finish and delay of one task.
type Projection struct {
	Start  *time.Time
	Finish *time.Time
	Delay  *int
}

// Equal compares projections at day granularity.
func (p Projection) Equal(o Projection) bool {
	return domain.SameDate(p.Start, o.Start) && domain.SameDate(p.Finish, o.Finish) && domain.SameInt(p.Delay, o.Delay)
}

// Cached returns the projection currently stored on t.
func Cached(t *domain.Task) Projection {
	return Projection{Start: t.ProjectedStart, Finish: t.ProjectedFinish, Delay: t.ProjectedDelay}
}

// Warning reports a task the engine could not project. Warnings never abort
// a recompute.
type Warning struct {
	TaskID string
	Reason string
}

// Result is the outcome of projecting one project's tasks.
type Result struct {
	Projections map[string]Projection
	// Changed lists, in input order, the tasks whose projection differs
	// from the cached one.
	Changed  []string
	Warnings []Warning
}

// Project computes projected dates and delay for every task of a project.
// Leaf tasks must carry their dependencies. The computation is pure: the
// same tasks and today always produce the same result.
func Project(tasks []*domain.Task, today time.Time) *Result {
	p := &projector{
		tasks:    tasks,
		byID:     make(map[string]*domain.Task, len(tasks)),
		today:    domain.Day(today),
		proj:     make(map[string]*Projection, len(tasks)),
		children: make(map[string][]*domain.Task),
	}
	for _, t := range tasks {
		p.byID[t.ID] = t
		p.proj[t.ID] = &Projection{}
		if t.ParentID != nil {
			p.children[*t.ParentID] = append(p.children[*t.ParentID], t)
		}
	}

	p.run()

	res := &Result{
		Projections: make(map[string]Projection, len(tasks)),
		Warnings:    p.warnings,
	}
	for _, t := range tasks {
		pr := *p.proj[t.ID]
		res.Projections[t.ID] = pr
		if !pr.Equal(Cached(t)) {
			res.Changed = append(res.Changed, t.ID)
		}
	}
	return res
}

type projector struct {
	tasks    []*domain.Task
	byID     map[string]*domain.Task
	today    time.Time
	proj     map[string]*Projection
	children map[string][]*domain.Task
	warnings []Warning
}

func (p *projector) warn(id, reason string) {
	p.warnings = append(p.warnings, Warning{TaskID: id, Reason: reason})
}

func (p *projector) isLeaf(t *domain.Task) bool {
	return len(p.children[t.ID]) == 0
}

// run projects every task in evaluation order. A parent is rolled up as
// soon as its last child is projected, so dependents of a parent always read
// its projection from this run.
func (p *projector) run() {
	for _, id := range p.evaluationOrder() {
		t := p.byID[id]
		if t.ActualFinish != nil {
			p.fixCompleted(t)
		}
		switch {
		case !p.isLeaf(t):
			p.rollUpParent(t)
		case t.ActualFinish != nil:
			// pinned above
		case len(t.Dependencies) > 0 && t.ActualStart == nil:
			p.resolveLeaf(t)
		default:
			p.seedLeaf(t)
		}
	}

	for _, t := range p.tasks {
		if t.Level != 1 || !p.isLeaf(t) || t.ActualFinish != nil || t.PlannedFinish == nil {
			continue
		}
		pr := p.proj[t.ID]
		if pr.Finish == nil {
			continue
		}
		d := max(0, domain.DaysBetween(*t.PlannedFinish, *pr.Finish))
		pr.Delay = &d
	}
}

// fixCompleted pins a finished task to {actual start or today, actual finish}.
func (p *projector) fixCompleted(t *domain.Task) {
	start := p.today
	if t.ActualStart != nil {
		start = domain.Day(*t.ActualStart)
	}
	pr := p.proj[t.ID]
	pr.Start = &start
	pr.Finish = domain.DatePtr(*t.ActualFinish)
}

// seedLeaf projects a leaf that has no dependencies or has already started.
func (p *projector) seedLeaf(t *domain.Task) {
	if !t.HasPlannedSchedule() {
		p.warn(t.ID, "missing planned start, finish or duration")
		return
	}
	start := p.today
	if t.ActualStart != nil {
		start = domain.Day(*t.ActualStart)
	}
	finish := domain.FinishFromDuration(start, *t.PlannedDuration)
	pr := p.proj[t.ID]
	pr.Start, pr.Finish = &start, &finish
}

// resolveLeaf projects an unstarted leaf from the pressure of its
// prerequisites.
func (p *projector) resolveLeaf(t *domain.Task) {
	var startPressure, finishPressure *time.Time
	for _, d := range t.Dependencies {
		pre, ok := p.byID[d.PrerequisiteID]
		if !ok {
			continue
		}
		date := domain.AddDays(p.prerequisiteDate(pre, d.Type.UsesPrerequisiteFinish()), d.Latency)
		if d.Type.AffectsStart() {
			startPressure = domain.MaxDate(startPressure, &date)
		} else {
			finishPressure = domain.MaxDate(finishPressure, &date)
		}
	}

	start := p.today
	if startPressure != nil && startPressure.After(start) {
		start = *startPressure
	}
	pr := p.proj[t.ID]
	switch {
	case finishPressure != nil:
		pr.Start, pr.Finish = &start, domain.DatePtr(*finishPressure)
	case t.PlannedDuration != nil:
		finish := domain.FinishFromDuration(start, *t.PlannedDuration)
		pr.Start, pr.Finish = &start, &finish
	default:
		p.warn(t.ID, "missing planned duration and no finish-affecting dependency")
	}
}

// prerequisiteDate is the actual date of pre when known, else its projection
// from this run, else today.
func (p *projector) prerequisiteDate(pre *domain.Task, finish bool) time.Time {
	actual, projected := pre.ActualStart, p.proj[pre.ID].Start
	if finish {
		actual, projected = pre.ActualFinish, p.proj[pre.ID].Finish
	}
	switch {
	case actual != nil:
		return domain.Day(*actual)
	case projected != nil:
		return *projected
	}
	return p.today
}

// evaluationOrder sorts tasks over dependency edges (prerequisite before
// dependent) and hierarchy edges (child before parent). A cyclic graph falls
// back to leaves in input order followed by parents deepest first, with a
// warning.
func (p *projector) evaluationOrder() []string {
	g := NewGraph()
	for _, t := range p.tasks {
		g.AddNode(t.ID)
	}
	for _, t := range p.tasks {
		if t.ParentID != nil {
			if _, ok := p.byID[*t.ParentID]; ok {
				g.AddEdge(t.ID, *t.ParentID)
			}
		}
		for _, d := range t.Dependencies {
			if _, ok := p.byID[d.PrerequisiteID]; ok {
				g.AddEdge(d.PrerequisiteID, t.ID)
			}
		}
	}
	order, err := g.TopologicalSort()
	if err == nil {
		return order
	}

	cycle := g.FindCycle()
	id := ""
	if len(cycle) > 0 {
		id = cycle[0]
	}
	p.warn(id, "stored dependencies contain a cycle; projecting in outline order")

	var leaves, parents []*domain.Task
	for _, t := range p.tasks {
		if p.isLeaf(t) {
			leaves = append(leaves, t)
		} else {
			parents = append(parents, t)
		}
	}
	sort.SliceStable(parents, func(i, j int) bool { return parents[i].Level > parents[j].Level })
	order = make([]string, 0, len(p.tasks))
	for _, t := range append(leaves, parents...) {
		order = append(order, t.ID)
	}
	return order
}

// rollUpParent aggregates the children of t into its projection and derives
// their delay against t's planned finish.
func (p *projector) rollUpParent(t *domain.Task) {
	if t.PlannedFinish == nil {
		p.warn(t.ID, "missing planned finish; children not rolled up")
		return
	}
	plannedFinish := domain.Day(*t.PlannedFinish)
	kids := p.children[t.ID]

	allDone := true
	for _, c := range kids {
		if c.ActualFinish == nil {
			allDone = false
			break
		}
	}

	var minStart, maxFinish *time.Time
	maxDelay := 0
	for _, c := range kids {
		cp := p.proj[c.ID]
		if cp.Finish == nil {
			continue
		}
		minStart = domain.MinDate(minStart, cp.Start)
		if c.ActualFinish != nil && !allDone {
			continue
		}
		maxFinish = domain.MaxDate(maxFinish, cp.Finish)
		if c.ActualFinish != nil {
			continue
		}
		d := max(0, domain.DaysBetween(plannedFinish, *cp.Finish))
		cp.Delay = &d
		maxDelay = max(maxDelay, d)
	}

	pr := p.proj[t.ID]
	pr.Delay = &maxDelay
	if t.ActualFinish != nil {
		return
	}
	if minStart != nil {
		pr.Start = minStart
	} else {
		p.warn(t.ID, "no child has a projected start")
	}
	if maxFinish != nil {
		pr.Finish = maxFinish
	}
}
