package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a project and its WBS from a JSON or YAML file",
		Long: `Creates a project with its full task tree and dependencies in one
transaction. Tasks reference each other by the file's local "ref" keys;
nothing is written when any part of the file is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Import.ImportProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported project %s [%s]: %d tasks, %d dependencies\n",
				result.Project.Name, result.Project.DisplayID(), result.TaskCount, result.DependencyCount)
			return nil
		},
	}
}
