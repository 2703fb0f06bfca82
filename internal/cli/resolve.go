package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/service"
)

func resolveProject(ctx context.Context, app *App, ref string) (*domain.Project, error) {
	if ref == "" {
		return nil, fmt.Errorf("project is required (use --project)")
	}
	p, err := app.Projects.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", ref, err)
	}
	return p, nil
}

// resolveTask finds a task in tree by outline code (e.g. 1.2.3) or by ID.
func resolveTask(tree *service.TaskTree, ref string) (*domain.Task, error) {
	for _, t := range tree.Tasks {
		if tree.Codes[t.ID] == ref || t.ID == ref {
			return t, nil
		}
	}
	return nil, fmt.Errorf("task %q not found in project %s", ref, tree.Project.DisplayID())
}

// loadTask resolves the project and one of its tasks in a single tree read.
func loadTask(ctx context.Context, app *App, projectRef, taskRef string) (*service.TaskTree, *domain.Task, error) {
	p, err := resolveProject(ctx, app, projectRef)
	if err != nil {
		return nil, nil, err
	}
	tree, err := app.Tasks.ListTree(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}
	t, err := resolveTask(tree, taskRef)
	if err != nil {
		return nil, nil, err
	}
	return tree, t, nil
}

// labeler renders task IDs as "code title" for display.
func labeler(tree *service.TaskTree) func(id string) string {
	titles := make(map[string]string, len(tree.Tasks))
	for _, t := range tree.Tasks {
		titles[t.ID] = t.Title
	}
	return func(id string) string {
		code, ok := tree.Codes[id]
		if !ok {
			return id
		}
		return code + " " + titles[id]
	}
}

func parseDateFlag(name, value string) (*time.Time, error) {
	d, err := domain.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", name, value)
	}
	return &d, nil
}

// parseDependency parses REF[:TYPE[:LATENCY]], where TYPE is fs, ss, sf or
// ff (default fs) and LATENCY is a signed day count.
func parseDependency(tree *service.TaskTree, raw string) (domain.Dependency, error) {
	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return domain.Dependency{}, fmt.Errorf("invalid dependency %q: expected REF[:TYPE[:LATENCY]]", raw)
	}

	prereq, err := resolveTask(tree, parts[0])
	if err != nil {
		return domain.Dependency{}, err
	}
	dep := domain.Dependency{PrerequisiteID: prereq.ID, Type: domain.FinishToStart}

	if len(parts) > 1 && parts[1] != "" {
		typ, ok := domain.ParseDependencyType(strings.ToLower(parts[1]))
		if !ok {
			return domain.Dependency{}, fmt.Errorf("invalid dependency type %q in %q", parts[1], raw)
		}
		dep.Type = typ
	}
	if len(parts) > 2 {
		latency, err := strconv.Atoi(parts[2])
		if err != nil {
			return domain.Dependency{}, fmt.Errorf("invalid latency %q in %q", parts[2], raw)
		}
		dep.Latency = latency
	}
	return dep, nil
}

func parseDependencies(tree *service.TaskTree, raws []string) ([]domain.Dependency, error) {
	deps := make([]domain.Dependency, 0, len(specs))
	for _, s := range raws {
		dep, err := parseDependency(tree, s)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}
