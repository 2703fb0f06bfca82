package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tempo/internal/cli/formatter"
	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/spf13/cobra"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(
		newProjectAddCmd(app),
		newProjectListCmd(app),
		newProjectShowCmd(app),
		newProjectUpdateCmd(app),
		newProjectFinishCmd(app),
		newProjectAccompanyCmd(app),
		newProjectRecomputeCmd(app),
	)

	return cmd
}

func newProjectAddCmd(app *App) *cobra.Command {
	var name, shortID string
	var duration, tolerance, maxDepth int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a new project",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &domain.Project{
				ShortID:      shortID,
				Name:         name,
				TolerancePct: tolerance,
				MaxTaskDepth: maxDepth,
			}
			if cmd.Flags().Changed("duration") {
				p.PlannedDuration = &duration
			}

			if err := app.Projects.Create(cmd.Context(), p); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s [%s]\n", p.Name, p.DisplayID())
			return nil
		},
	}

	cmd.Flags().StringVar(&shortID, "id", "", "Short ID (3-6 letters + 2-4 digits, e.g. ESC01)")
	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().IntVar(&duration, "duration", 0, "Planned duration in days")
	cmd.Flags().IntVar(&tolerance, "tolerance", 0, "Late tolerance in percent of the planned duration")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, fmt.Sprintf("Maximum task level (default %d)", domain.DefaultMaxTaskDepth))
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newProjectListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects with their schedule status",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := app.Projects.List(cmd.Context())
			if err != nil {
				return err
			}

			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects found.")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatter.FormatProjectList(projects))
			return nil
		},
	}
}

func newProjectShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show PROJECT",
		Short: "Show project settings, rollup and follow-ups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := resolveProject(ctx, app, args[0])
			if err != nil {
				return err
			}
			tree, err := app.Tasks.ListTree(ctx, p.ID)
			if err != nil {
				return err
			}
			accompaniments, err := app.Accompaniments.ListByProject(ctx, p.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatter.FormatProjectShow(formatter.ProjectShowData{
				Project:        tree.Project,
				TaskCount:      len(tree.Tasks),
				Accompaniments: accompaniments,
			}))
			return nil
		},
	}
}

func newProjectUpdateCmd(app *App) *cobra.Command {
	var name, shortID string
	var duration, tolerance, maxDepth int

	cmd := &cobra.Command{
		Use:   "update PROJECT",
		Short: "Update project settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := resolveProject(ctx, app, args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("id") {
				p.ShortID = strings.ToUpper(shortID)
			}
			if cmd.Flags().Changed("name") {
				p.Name = name
			}
			if cmd.Flags().Changed("duration") {
				p.PlannedDuration = &duration
			}
			if cmd.Flags().Changed("tolerance") {
				p.TolerancePct = tolerance
			}
			if cmd.Flags().Changed("max-depth") {
				p.MaxTaskDepth = maxDepth
			}

			if err := app.Projects.Update(ctx, p); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated project %s [%s]\n", p.Name, p.DisplayID())
			return nil
		},
	}

	cmd.Flags().StringVar(&shortID, "id", "", "Short ID")
	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().IntVar(&duration, "duration", 0, "Planned duration in days")
	cmd.Flags().IntVar(&tolerance, "tolerance", 0, "Late tolerance in percent")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum task level")

	return cmd
}

func newProjectFinishCmd(app *App) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "finish PROJECT",
		Short: "Record the actual finish of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := resolveProject(ctx, app, args[0])
			if err != nil {
				return err
			}
			day, err := parseDateFlag("at", at)
			if err != nil {
				return err
			}
			if err := app.Projects.Finish(ctx, p.ID, *day); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Finished project %s on %s\n", p.DisplayID(), formatter.FormatDate(day))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Finish date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func newProjectAccompanyCmd(app *App) *cobra.Command {
	var notes, at string
	var paused bool

	cmd := &cobra.Command{
		Use:   "accompany PROJECT",
		Short: "Record a follow-up, optionally pausing the schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := resolveProject(ctx, app, args[0])
			if err != nil {
				return err
			}

			a := &domain.Accompaniment{
				ProjectID:      p.ID,
				SchedulePaused: paused,
				Notes:          notes,
			}
			if at != "" {
				day, err := parseDateFlag("at", at)
				if err != nil {
					return err
				}
				a.RecordedAt = *day
			}
			if err := app.Accompaniments.Record(ctx, a); err != nil {
				return err
			}

			state := "running"
			if paused {
				state = "paused"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded follow-up for %s (schedule %s)\n", p.DisplayID(), state)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Free-text notes")
	cmd.Flags().StringVar(&at, "at", "", "Record date (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&paused, "paused", false, "Mark the schedule as paused")

	return cmd
}

func newProjectRecomputeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute PROJECT",
		Short: "Recompute projected dates and the rollup now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := resolveProject(ctx, app, args[0])
			if err != nil {
				return err
			}
			res, err := app.Projections.RecomputeProjections(ctx, p.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recomputed %s: %d tasks updated, status %s\n",
				p.DisplayID(), res.TasksWritten, formatter.StatusPill(res.Rollup.Status))
			if len(res.Warnings) == 0 {
				return nil
			}

			tree, err := app.Tasks.ListTree(ctx, p.ID)
			if err != nil {
				return err
			}
			label := labeler(tree)
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "  %s %s: %s\n", formatter.StyleYellow.Render("!"), label(w.TaskID), w.Reason)
			}
			return nil
		},
	}
}
