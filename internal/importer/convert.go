package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/schedule"
	"github.com/google/uuid"
)

// Plan is a converted import file, ready to be created task by task.
type Plan struct {
	Project *domain.Project
	// Tasks are ordered so that parents and prerequisites precede the tasks
	// that reference them.
	Tasks []PlannedTask
}

// PlannedTask is one task of the plan. Task carries the descriptive,
// planned and actual fields; placement is derived from ParentRef.
type PlannedTask struct {
	Ref       string
	ParentRef string
	// Number is the position among siblings in file order.
	Number       int
	Task         *domain.Task
	Dependencies []PlannedDependency
}

// PlannedDependency references its prerequisite by import ref.
type PlannedDependency struct {
	PrerequisiteRef string
	Type            domain.DependencyType
	Latency         int
}

// Convert transforms a validated ImportSchema into a creation plan.
// Call ValidateImportSchema first; Convert assumes the schema is valid.
func Convert(schema *ImportSchema) (*Plan, error) {
	now := time.Now().UTC()
	p := schema.Project

	project := &domain.Project{
		ID:              uuid.New().String(),
		ShortID:         strings.ToUpper(p.ShortID),
		Name:            p.Name,
		PlannedDuration: p.PlannedDuration,
		TolerancePct:    domain.ValueOr(0, p.TolerancePct),
		MaxTaskDepth:    domain.ValueOr(domain.DefaultMaxTaskDepth, p.MaxTaskDepth),
		ScheduleStatus:  domain.ScheduleOnTime,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	defaults := schema.Defaults
	if defaults == nil {
		defaults = &DefaultsImport{}
	}

	siblings := make(map[string]int)
	byRef := make(map[string]*PlannedTask, len(schema.Tasks))
	planned := make([]*PlannedTask, 0, len(schema.Tasks))
	for _, ti := range schema.Tasks {
		t := &domain.Task{
			ProjectID:       project.ID,
			Title:           ti.Title,
			Description:     ti.Description,
			ResponsibleOrg:  domain.Coalesce(ti.ResponsibleOrg, defaults.ResponsibleOrg),
			IsMilestone:     domain.ValueOr(false, ti.Milestone),
			PlannedStart:    parseOptionalDate(ti.PlannedStart),
			PlannedFinish:   parseOptionalDate(ti.PlannedFinish),
			PlannedDuration: ti.PlannedDuration,
			ActualStart:     parseOptionalDate(ti.ActualStart),
			ActualFinish:    parseOptionalDate(ti.ActualFinish),
			EstimatedCost:   ti.EstimatedCost,
		}
		pt := &PlannedTask{Ref: ti.Ref, Task: t}
		if ti.ParentRef != nil {
			pt.ParentRef = *ti.ParentRef
		}
		siblings[pt.ParentRef]++
		pt.Number = siblings[pt.ParentRef]
		byRef[ti.Ref] = pt
		planned = append(planned, pt)
	}

	for _, d := range schema.Dependencies {
		pt, ok := byRef[d.TaskRef]
		if !ok {
			return nil, fmt.Errorf("task_ref %q not found", d.TaskRef)
		}
		if _, ok := byRef[d.PrerequisiteRef]; !ok {
			return nil, fmt.Errorf("prerequisite_ref %q not found", d.PrerequisiteRef)
		}
		typ, ok := domain.ParseDependencyType(domain.Coalesce(d.Type, defaults.DependencyType, string(domain.FinishToStart)))
		if !ok {
			return nil, fmt.Errorf("dependency %s -> %s: invalid type %q", d.TaskRef, d.PrerequisiteRef, d.Type)
		}
		pt.Dependencies = append(pt.Dependencies, PlannedDependency{
			PrerequisiteRef: d.PrerequisiteRef,
			Type:            typ,
			Latency:         domain.ValueOr(0, d.Latency, defaults.Latency),
		})
	}

	order, err := creationOrder(planned)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Project: project, Tasks: make([]PlannedTask, 0, len(order))}
	for _, ref := range order {
		plan.Tasks = append(plan.Tasks, *byRef[ref])
	}
	return plan, nil
}

// creationOrder sorts refs so that every parent and prerequisite comes
// first, keeping file order among independent tasks.
func creationOrder(tasks []*PlannedTask) ([]string, error) {
	g := schedule.NewGraph()
	for _, t := range tasks {
		g.AddNode(t.Ref)
	}
	for _, t := range tasks {
		if t.ParentRef != "" {
			g.AddEdge(t.ParentRef, t.Ref)
		}
		for _, d := range t.Dependencies {
			g.AddEdge(d.PrerequisiteRef, t.Ref)
		}
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("ordering tasks: %s: %w", strings.Join(g.FindCycle(), " -> "), err)
	}
	return order, nil
}

func parseOptionalDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := domain.ParseDate(*s)
	if err != nil {
		return nil
	}
	return &t
}
