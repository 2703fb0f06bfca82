package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/alexanderramin/tempo/internal/cli"
	"github.com/alexanderramin/tempo/internal/cli/formatter"
	"github.com/alexanderramin/tempo/internal/config"
	"github.com/alexanderramin/tempo/internal/db"
	"github.com/alexanderramin/tempo/internal/lock"
	"github.com/alexanderramin/tempo/internal/repository"
	"github.com/alexanderramin/tempo/internal/service"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	formatter.SetPlain(!isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()))

	var database *sql.DB
	defer func() {
		if database != nil {
			database.Close()
		}
	}()

	app := &cli.App{}
	app.Open = func(cfg *config.Config) error {
		// Open database
		var err error
		database, err = db.OpenDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}

		logger := cfg.Log.NewLogger(os.Stderr)
		app.Logger = logger

		// Wire repositories
		projectRepo := repository.NewSQLiteProjectRepo(database)
		taskRepo := repository.NewSQLiteTaskRepo(database)
		depRepo := repository.NewSQLiteDependencyRepo(database)
		accompanimentRepo := repository.NewSQLiteAccompanimentRepo(database)

		// Wire unit of work and the per-project structural lock
		uow := db.NewSQLiteUnitOfWork(database)
		locker := lock.NewKeyedMutex(
			lock.WithWait(cfg.Lock.Wait),
			lock.WithWaitObserver(service.ObserveLockWait),
		)

		opts := []service.Option{
			service.WithLogger(logger),
			service.WithObserver(service.NewSlogUseCaseObserver(logger)),
			service.WithTimeout(cfg.Lock.Timeout),
			service.WithSweepBatch(cfg.Sweep.BatchSize, cfg.Sweep.Concurrency),
		}

		// Wire services
		app.Projects = service.NewProjectService(projectRepo, uow, locker, opts...)
		app.Tasks = service.NewTaskService(taskRepo, depRepo, uow, locker, opts...)
		app.Accompaniments = service.NewAccompanimentService(accompanimentRepo, uow, locker, opts...)
		app.Projections = service.NewProjectionService(uow, opts...)
		app.Sweep = service.NewSweepService(projectRepo, uow, opts...)
		app.Import = service.NewImportService(uow, locker, opts...)
		return nil
	}

	// Execute root command
	rootCmd := cli.NewRootCmd(app)
	return rootCmd.Execute()
}
