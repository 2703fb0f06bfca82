package cli

import (
	"fmt"

	"github.com/alexanderramin/tempo/internal/cli/formatter"
	"github.com/alexanderramin/tempo/internal/service"
	"github.com/spf13/cobra"
)

func newDepsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Inspect task dependencies",
	}

	cmd.AddCommand(newDepsCheckCmd(app))

	return cmd
}

func newDepsCheckCmd(app *App) *cobra.Command {
	var projectRef, taskRef, parentRef string
	var deps []string
	var planned plannedFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Dry-run a dependency set: cycle check, orders and resulting dates",
		Long: `Validates dependencies for an existing task (--task) or a task about to
be created (--parent, or neither for a top-level task) without writing
anything. Prints the start and finish evaluation orders and the planned
dates the dependencies imply.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if taskRef != "" && parentRef != "" {
				return fmt.Errorf("--task and --parent are mutually exclusive")
			}
			p, err := resolveProject(ctx, app, projectRef)
			if err != nil {
				return err
			}
			tree, err := app.Tasks.ListTree(ctx, p.ID)
			if err != nil {
				return err
			}

			req := service.CheckDependenciesRequest{ProjectID: p.ID}
			if taskRef != "" {
				t, err := resolveTask(tree, taskRef)
				if err != nil {
					return err
				}
				req.TaskID = t.ID
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
			if req.Dependencies, err = parseDependencies(tree, deps); err != nil {
				return err
			}

			check, err := app.Tasks.CheckDependencies(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDependencyCheck(check.Order, check.Resolution, labeler(tree)))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectRef, "project", "", "Project short ID or ID")
	cmd.Flags().StringVar(&taskRef, "task", "", "Existing task code or ID")
	cmd.Flags().StringVar(&parentRef, "parent", "", "Parent of the task about to be created")
	cmd.Flags().StringArrayVar(&deps, "dep", nil, "Dependency REF[:TYPE[:LATENCY]], repeatable")
	planned.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
