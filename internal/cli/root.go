package cli

import (
	"log/slog"

	"github.com/alexanderramin/tempo/internal/config"
	"github.com/alexanderramin/tempo/internal/service"
	"github.com/spf13/cobra"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Projects       service.ProjectService
	Tasks          service.TaskService
	Accompaniments service.AccompanimentService
	Projections    service.ProjectionService
	Sweep          service.SweepService
	Import         service.ImportService

	Config *config.Config
	Logger *slog.Logger

	// Open wires the services from the resolved configuration. It runs once,
	// before any subcommand. Tests leave it nil and set the services directly.
	Open func(cfg *config.Config) error
}

// NewRootCmd creates the top-level "tempo" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	v := config.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "tempo",
		Short:         "WBS task dependencies and schedule projection",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Open == nil {
				return nil
			}
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			app.Config = cfg
			return app.Open(cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./tempo.yaml or $HOME/.tempo/tempo.yaml)")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	_ = v.BindPFlag(config.KeyDBPath, flags.Lookup("db"))
	_ = v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))

	root.AddCommand(
		newProjectCmd(app),
		newTaskCmd(app),
		newDepsCmd(app),
		newImportCmd(app),
		newSweepCmd(app, v),
	)

	return root
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.New(slog.DiscardHandler)
}
