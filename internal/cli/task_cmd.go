package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/tempo/internal/cli/formatter"
	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cliActor is recorded as creator or updater of tasks changed from the CLI.
const cliActor = "cli"

func newTaskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage WBS tasks",
	}

	cmd.AddCommand(
		newTaskAddCmd(app),
		newTaskUpdateCmd(app),
		newTaskRemoveCmd(app),
		newTaskListCmd(app),
		newTaskShowCmd(app),
	)

	return cmd
}

// plannedFlags are the schedule flags shared by task add, task update and
// deps check.
type plannedFlags struct {
	start, finish string
	duration      int
}

func (f *plannedFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.start, "start", "", "Planned start (YYYY-MM-DD)")
	fs.StringVar(&f.finish, "finish", "", "Planned finish (YYYY-MM-DD)")
	fs.IntVar(&f.duration, "duration", 0, "Planned duration in days")
}

func (f *plannedFlags) parse(cmd *cobra.Command) (start, finish *time.Time, duration *int, err error) {
	if cmd.Flags().Changed("start") {
		if start, err = parseDateFlag("start", f.start); err != nil {
			return nil, nil, nil, err
		}
	}
	if cmd.Flags().Changed("finish") {
		if finish, err = parseDateFlag("finish", f.finish); err != nil {
			return nil, nil, nil, err
		}
	}
	if cmd.Flags().Changed("duration") {
		duration = &f.duration
	}
	return start, finish, duration, nil
}

func optionalDate(cmd *cobra.Command, name, value string) (*time.Time, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	return parseDateFlag(name, value)
}

func newTaskAddCmd(app *App) *cobra.Command {
	var projectRef, title, parentRef, description, responsible string
	var actualStart, actualFinish string
	var number int
	var cost float64
	var milestone bool
	var deps []string
	var planned plannedFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task, optionally under a parent and with dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := resolveProject(ctx, app, projectRef)
			if err != nil {
				return err
			}
			tree, err := app.Tasks.ListTree(ctx, p.ID)
			if err != nil {
				return err
			}

			req := service.CreateTaskRequest{
				ProjectID:      p.ID,
				Number:         number,
				Title:          title,
				Description:    description,
				ResponsibleOrg: responsible,
				IsMilestone:    milestone,
				Actor:          cliActor,
			}
			if parentRef != "" {
				parent, err := resolveTask(tree, parentRef)
				if err != nil {
					return err
				}
				req.ParentID = &parent.ID
			}
			if req.PlannedStart, req.PlannedFinish, req.PlannedDuration, err = planned.parse(cmd); err != nil {
				return err
			}
			if req.ActualStart, err = optionalDate(cmd, "actual-start", actualStart); err != nil {
				return err
			}
			if req.ActualFinish, err = optionalDate(cmd, "actual-finish", actualFinish); err != nil {
				return err
			}
			if cmd.Flags().Changed("cost") {
				req.EstimatedCost = &cost
			}
			if req.Dependencies, err = parseDependencies(tree, deps); err != nil {
				return err
			}

			t, err := app.Tasks.Create(ctx, req)
			if err != nil {
				return err
			}

			tree, err = app.Tasks.ListTree(ctx, p.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s %s\n", tree.Codes[t.ID], t.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectRef, "project", "", "Project short ID or ID")
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&parentRef, "parent", "", "Parent task code or ID")
	cmd.Flags().IntVar(&number, "number", 0, "Position among siblings (default appends)")
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&responsible, "responsible", "", "Responsible organization")
	cmd.Flags().BoolVar(&milestone, "milestone", false, "Mark as milestone")
	cmd.Flags().StringVar(&actualStart, "actual-start", "", "Actual start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&actualFinish, "actual-finish", "", "Actual finish (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&cost, "cost", 0, "Estimated cost")
	cmd.Flags().StringArrayVar(&deps, "dep", nil, "Dependency REF[:TYPE[:LATENCY]], repeatable (e.g. 1.2:fs:2)")
	planned.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newTaskUpdateCmd(app *App) *cobra.Command {
	var projectRef, title, description, responsible, parentRef string
	var actualStart, actualFinish string
	var number int
	var cost, actualCost, progress float64
	var milestone, clearDeps bool
	var deps []string
	var planned plannedFlags

	cmd := &cobra.Command{
		Use:   "update TASK",
		Short: "Update, reschedule or move a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tree, t, err := loadTask(ctx, app, projectRef, args[0])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			req := service.UpdateTaskRequest{ID: t.ID, Actor: cliActor}
			if flags.Changed("title") {
				req.Title = &title
			}
			if flags.Changed("description") {
				req.Description = &description
			}
			if flags.Changed("responsible") {
				req.ResponsibleOrg = &responsible
			}
			if flags.Changed("milestone") {
				req.IsMilestone = &milestone
			}
			if req.PlannedStart, req.PlannedFinish, req.PlannedDuration, err = planned.parse(cmd); err != nil {
				return err
			}
			if req.ActualStart, err = optionalDate(cmd, "actual-start", actualStart); err != nil {
				return err
			}
			if req.ActualFinish, err = optionalDate(cmd, "actual-finish", actualFinish); err != nil {
				return err
			}
			if flags.Changed("cost") {
				req.EstimatedCost = &cost
			}
			if flags.Changed("actual-cost") {
				req.ActualCost = &actualCost
			}
			if flags.Changed("progress") {
				req.CompletionPercent = &progress
			}

			switch {
			case clearDeps && len(deps) > 0:
				return fmt.Errorf("--clear-deps and --dep are mutually exclusive")
			case clearDeps:
				req.Dependencies = &[]domain.Dependency{}
			case len(deps) > 0:
				parsed, err := parseDependencies(tree, deps)
				if err != nil {
					return err
				}
				req.Dependencies = &parsed
			}

			if flags.Changed("parent") || flags.Changed("number") {
				move := &service.TaskMove{ParentID: t.ParentID, Number: number}
				if flags.Changed("parent") {
					move.ParentID = nil
					if parentRef != "" && parentRef != "root" {
						parent, err := resolveTask(tree, parentRef)
						if err != nil {
							return err
						}
						move.ParentID = &parent.ID
					}
				}
				req.Move = move
			}

			updated, err := app.Tasks.Update(ctx, req)
			if err != nil {
				return err
			}

			tree, err = app.Tasks.ListTree(ctx, tree.Project.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s %s\n", tree.Codes[updated.ID], updated.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectRef, "project", "", "Project short ID or ID")
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&responsible, "responsible", "", "Responsible organization")
	cmd.Flags().BoolVar(&milestone, "milestone", false, "Mark as milestone")
	cmd.Flags().StringVar(&actualStart, "actual-start", "", "Actual start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&actualFinish, "actual-finish", "", "Actual finish (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&cost, "cost", 0, "Estimated cost")
	cmd.Flags().Float64Var(&actualCost, "actual-cost", 0, "Actual cost")
	cmd.Flags().Float64Var(&progress, "progress", 0, "Completion percent (0-100)")
	cmd.Flags().StringArrayVar(&deps, "dep", nil, "Replace dependencies with REF[:TYPE[:LATENCY]], repeatable")
	cmd.Flags().BoolVar(&clearDeps, "clear-deps", false, "Remove all dependencies")
	cmd.Flags().StringVar(&parentRef, "parent", "", "Move under this task code or ID (root for top level)")
	cmd.Flags().IntVar(&number, "number", 0, "Move to this sibling position (default appends)")
	planned.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newTaskRemoveCmd(app *App) *cobra.Command {
	var projectRef string

	cmd := &cobra.Command{
		Use:   "remove TASK",
		Short: "Remove a leaf task that no other task depends on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tree, t, err := loadTask(ctx, app, projectRef, args[0])
			if err != nil {
				return err
			}
			if err := app.Tasks.Remove(ctx, t.ID, cliActor); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed task %s %s\n", tree.Codes[t.ID], t.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectRef, "project", "", "Project short ID or ID")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newTaskListCmd(app *App) *cobra.Command {
	var projectRef string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the WBS outline with planned and projected finish",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := resolveProject(ctx, app, projectRef)
			if err != nil {
				return err
			}
			tree, err := app.Tasks.ListTree(ctx, p.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatter.FormatTaskTree(tree.Project, tree.Tasks, tree.Codes))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectRef, "project", "", "Project short ID or ID")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newTaskShowCmd(app *App) *cobra.Command {
	var projectRef string

	cmd := &cobra.Command{
		Use:   "show TASK",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, t, err := loadTask(cmd.Context(), app, projectRef, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatter.FormatTask(t, tree.Codes[t.ID], labeler(tree)))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectRef, "project", "", "Project short ID or ID")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
