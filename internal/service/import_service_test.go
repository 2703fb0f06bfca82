package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/importer"
	"github.com/alexanderramin/tempo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wbsImportSchema() *importer.ImportSchema {
	return &importer.ImportSchema{
		Project: importer.ProjectImport{
			ShortID:         "ESC02",
			Name:            "Escola",
			PlannedDuration: intPtr(60),
			TolerancePct:    intPtr(10),
		},
		Tasks: []importer.TaskImport{
			{Ref: "fund", Title: "Fundação", PlannedStart: strPtr("2024-01-01"), PlannedFinish: strPtr("2024-01-20")},
			{Ref: "conc", ParentRef: strPtr("fund"), Title: "Concretagem", PlannedDuration: intPtr(5)},
			{Ref: "esc", ParentRef: strPtr("fund"), Title: "Escavação", PlannedStart: strPtr("2024-01-01"), PlannedDuration: intPtr(10)},
			{Ref: "estr", Title: "Estrutura", PlannedDuration: intPtr(20)},
		},
		Dependencies: []importer.DependencyImport{
			{TaskRef: "conc", PrerequisiteRef: "esc", Latency: intPtr(1)},
			{TaskRef: "estr", PrerequisiteRef: "conc"},
		},
	}
}

func TestImportService_ImportsWBS(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	svc := NewImportService(env.uow, env.locker, env.opts()...)

	res, err := svc.ImportProjectFromSchema(context.Background(), wbsImportSchema())
	require.NoError(t, err)
	assert.Equal(t, 4, res.TaskCount)
	assert.Equal(t, 2, res.DependencyCount)

	tasks := env.taskService()
	tree, err := tasks.ListTree(context.Background(), res.Project.ID)
	require.NoError(t, err)
	byTitle := make(map[string]*domain.Task, len(tree.Tasks))
	for _, task := range tree.Tasks {
		byTitle[task.Title] = task
	}

	// File order wins over creation order for numbering.
	assert.Equal(t, "1.1", tree.Codes[byTitle["Concretagem"].ID])
	assert.Equal(t, "1.2", tree.Codes[byTitle["Escavação"].ID])
	assert.Equal(t, "2", tree.Codes[byTitle["Estrutura"].ID])

	conc := byTitle["Concretagem"]
	assert.Equal(t, testutil.Date("2024-01-11"), *conc.PlannedStart)
	assert.Equal(t, testutil.Date("2024-01-15"), *conc.PlannedFinish)
	assert.Equal(t, testutil.Date("2024-01-15"), *conc.ProjectedFinish)

	estr := byTitle["Estrutura"]
	assert.Equal(t, testutil.Date("2024-01-15"), *estr.ProjectedStart)
	assert.Equal(t, testutil.Date("2024-02-03"), *estr.ProjectedFinish)
	assert.Len(t, tree.Edges, 2)
}

func TestImportService_ValidationErrorsListed(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	svc := NewImportService(env.uow, env.locker, env.opts()...)

	schema := wbsImportSchema()
	schema.Project.Name = ""
	schema.Dependencies = append(schema.Dependencies, importer.DependencyImport{TaskRef: "fund", PrerequisiteRef: "estr"})

	_, err := svc.ImportProjectFromSchema(context.Background(), schema)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Contains(t, err.Error(), "import validation failed (2 errors)")

	projects, err := env.projects.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestImportService_RollbackOnTaskFailure(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")

	// Exec #1 creates the project, #2 the first task.
	failUoW := &testutil.FailOnNthExecUoW{DB: env.db, FailOn: 2, Err: fmt.Errorf("injected task failure")}
	svc := NewImportService(failUoW, env.locker, env.opts()...)

	_, err := svc.ImportProjectFromSchema(context.Background(), wbsImportSchema())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected task failure")

	projects, err := env.projects.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects, "project must be rolled back")
}

func TestImportService_RejectsInconsistentDates(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	svc := NewImportService(env.uow, env.locker, env.opts()...)

	schema := wbsImportSchema()
	schema.Tasks[3].PlannedStart = strPtr("2024-03-01")
	schema.Tasks[3].PlannedFinish = strPtr("2024-03-02")
	schema.Tasks[3].PlannedDuration = nil
	schema.Dependencies = schema.Dependencies[:1]
	schema.Tasks = append(schema.Tasks, importer.TaskImport{
		Ref: "bad", Title: "Bad", PlannedStart: strPtr("2024-01-10"), PlannedFinish: strPtr("2024-01-01"),
	})

	_, err := svc.ImportProjectFromSchema(context.Background(), schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `creating task "bad"`)
}

func TestImportService_ImportProjectFromYAMLFile(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	svc := NewImportService(env.uow, env.locker, env.opts()...)

	path := filepath.Join(t.TempDir(), "obra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
project:
  short_id: obr07
  name: Obra
tasks:
  - ref: a
    title: A
    planned_start: "2024-01-01"
    planned_duration: 2
`), 0o644))

	res, err := svc.ImportProject(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "OBR07", res.Project.ShortID)
	assert.Equal(t, 1, res.TaskCount)
}
