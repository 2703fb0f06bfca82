package importer

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/schedule"
)

// ValidateImportSchema checks the import schema for errors before conversion.
// Returns a slice of all validation errors found.
func ValidateImportSchema(schema *ImportSchema) []error {
	var errs []error

	errs = append(errs, validateProject(&schema.Project)...)
	errs = append(errs, validateDefaults(schema.Defaults)...)

	levels := make(map[string]int)
	errs = append(errs, validateTasks(schema.Tasks, maxDepth(&schema.Project), levels)...)
	errs = append(errs, validateDependencies(schema.Dependencies, schema.Tasks, levels)...)

	return errs
}

func maxDepth(p *ProjectImport) int {
	return domain.ValueOr(domain.DefaultMaxTaskDepth, p.MaxTaskDepth)
}

func validateProject(p *ProjectImport) []error {
	var errs []error

	proj := domain.Project{ShortID: strings.ToUpper(p.ShortID)}
	if err := proj.ValidateShortID(); err != nil {
		errs = append(errs, fmt.Errorf("project.short_id: %w", err))
	}
	if p.Name == "" {
		errs = append(errs, fmt.Errorf("project.name is required"))
	}
	if p.PlannedDuration != nil && *p.PlannedDuration <= 0 {
		errs = append(errs, fmt.Errorf("project.planned_duration must be positive"))
	}
	if p.TolerancePct != nil && (*p.TolerancePct < 0 || *p.TolerancePct > 100) {
		errs = append(errs, fmt.Errorf("project.tolerance_pct must be between 0 and 100"))
	}
	if p.MaxTaskDepth != nil && *p.MaxTaskDepth < 1 {
		errs = append(errs, fmt.Errorf("project.max_task_depth must be at least 1"))
	}

	return errs
}

func validateDefaults(d *DefaultsImport) []error {
	if d == nil || d.DependencyType == "" {
		return nil
	}
	if _, ok := domain.ParseDependencyType(d.DependencyType); !ok {
		return []error{fmt.Errorf("defaults.dependency_type: invalid value %q", d.DependencyType)}
	}
	return nil
}

func validateTasks(tasks []TaskImport, depth int, levels map[string]int) []error {
	var errs []error

	for i, t := range tasks {
		prefix := fmt.Sprintf("tasks[%d]", i)

		level := 1
		if t.ParentRef != nil && *t.ParentRef != "" {
			parentLevel, ok := levels[*t.ParentRef]
			if !ok {
				errs = append(errs, fmt.Errorf("%s.parent_ref: ref %q not found (must appear earlier in tasks list)", prefix, *t.ParentRef))
			}
			level = parentLevel + 1
		}

		if t.Ref == "" {
			errs = append(errs, fmt.Errorf("%s.ref is required", prefix))
		} else if _, dup := levels[t.Ref]; dup {
			errs = append(errs, fmt.Errorf("%s.ref: duplicate ref %q", prefix, t.Ref))
		} else {
			levels[t.Ref] = level
		}

		if t.Title == "" {
			errs = append(errs, fmt.Errorf("%s.title is required", prefix))
		}
		if level > depth {
			errs = append(errs, fmt.Errorf("%s: level %d exceeds configured maximum depth (%d)", prefix, level, depth))
		}
		if t.PlannedDuration != nil && *t.PlannedDuration <= 0 {
			errs = append(errs, fmt.Errorf("%s.planned_duration must be positive", prefix))
		}

		errs = append(errs, validateOptionalDate(prefix+".planned_start", t.PlannedStart)...)
		errs = append(errs, validateOptionalDate(prefix+".planned_finish", t.PlannedFinish)...)
		errs = append(errs, validateOptionalDate(prefix+".actual_start", t.ActualStart)...)
		errs = append(errs, validateOptionalDate(prefix+".actual_finish", t.ActualFinish)...)
	}

	return errs
}

func validateDependencies(deps []DependencyImport, tasks []TaskImport, levels map[string]int) []error {
	var errs []error

	parents := make(map[string]bool)
	for _, t := range tasks {
		if t.ParentRef != nil && *t.ParentRef != "" {
			parents[*t.ParentRef] = true
		}
	}

	for i, d := range deps {
		prefix := fmt.Sprintf("dependencies[%d]", i)

		if d.TaskRef == "" {
			errs = append(errs, fmt.Errorf("%s.task_ref is required", prefix))
		} else if _, ok := levels[d.TaskRef]; !ok {
			errs = append(errs, fmt.Errorf("%s.task_ref: ref %q not found in tasks", prefix, d.TaskRef))
		} else if parents[d.TaskRef] {
			errs = append(errs, fmt.Errorf("%s.task_ref: %q has children and cannot hold dependencies", prefix, d.TaskRef))
		}

		if d.PrerequisiteRef == "" {
			errs = append(errs, fmt.Errorf("%s.prerequisite_ref is required", prefix))
		} else if _, ok := levels[d.PrerequisiteRef]; !ok {
			errs = append(errs, fmt.Errorf("%s.prerequisite_ref: ref %q not found in tasks", prefix, d.PrerequisiteRef))
		}

		if d.TaskRef != "" && d.TaskRef == d.PrerequisiteRef {
			errs = append(errs, fmt.Errorf("%s: self-dependency (task_ref == prerequisite_ref == %q)", prefix, d.TaskRef))
		}
		if d.Type != "" {
			if _, ok := domain.ParseDependencyType(d.Type); !ok {
				errs = append(errs, fmt.Errorf("%s.type: invalid value %q", prefix, d.Type))
			}
		}
	}

	if len(deps) > 1 {
		errs = append(errs, detectCycles(deps)...)
	}

	return errs
}

// detectCycles checks the combined dependency graph of the file.
func detectCycles(deps []DependencyImport) []error {
	g := schedule.NewGraph()
	for _, d := range deps {
		if d.TaskRef != "" && d.PrerequisiteRef != "" && d.TaskRef != d.PrerequisiteRef {
			g.AddEdge(d.PrerequisiteRef, d.TaskRef)
		}
	}
	if _, err := g.TopologicalSort(); err == nil {
		return nil
	}
	if cycle := g.FindCycle(); len(cycle) > 0 {
		return []error{fmt.Errorf("circular dependency detected: %s", strings.Join(cycle, " -> "))}
	}
	return []error{fmt.Errorf("circular dependency detected")}
}

func validateOptionalDate(field string, dateStr *string) []error {
	if dateStr == nil || *dateStr == "" {
		return nil
	}
	if _, err := domain.ParseDate(*dateStr); err != nil {
		return []error{fmt.Errorf("%s: invalid date format %q (expected YYYY-MM-DD)", field, *dateStr)}
	}
	return nil
}
